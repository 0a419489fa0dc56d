package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"pybun/internal/schema"
)

type stubServe struct {
	err error
}

func (s stubServe) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.err
}

func TestMcpServe_WrapsCleanShutdownInOKEnvelope(t *testing.T) {
	envelope := McpServe(context.Background(), stubServe{}, McpServeOptions{In: &bytes.Buffer{}, Out: &bytes.Buffer{}})

	if envelope.Status != schema.StatusOK {
		t.Fatalf("expected ok status, got %s: %+v", envelope.Status, envelope.Diagnostics)
	}
	detail := envelope.Detail.(McpServeDetail)
	if detail.Summary == "" {
		t.Fatalf("expected a non-empty summary")
	}
}

func TestMcpServe_WrapsServeErrorAsIODiagnostic(t *testing.T) {
	envelope := McpServe(context.Background(), stubServe{err: errors.New("boom")}, McpServeOptions{In: &bytes.Buffer{}, Out: &bytes.Buffer{}})

	if envelope.Status != schema.StatusError {
		t.Fatalf("expected error status, got %s", envelope.Status)
	}
	if envelope.Diagnostics[0].Code != schema.CodeIOGeneric {
		t.Fatalf("expected an io diagnostic, got %s", envelope.Diagnostics[0].Code)
	}
}
