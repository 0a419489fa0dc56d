package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"pybun/internal/cache"
	"pybun/internal/command"
)

func serveLines(t *testing.T, srv *Server, input string) []Response {
	t.Helper()
	in := strings.NewReader(input)
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve returned an error: %v", err)
	}

	var responses []Response
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("decoding response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_Initialize(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("expected no error, got %+v", responses[0].Error)
	}
	var result map[string]any
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result["protocol_version"] != Version {
		t.Fatalf("expected protocol_version %s, got %v", Version, result["protocol_version"])
	}
}

func TestServer_ToolsList(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(result.Tools) != len(toolDefs) {
		t.Fatalf("expected %d tools, got %d", len(toolDefs), len(result.Tools))
	}
}

func TestServer_ResourcesList(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`+"\n")

	var result struct {
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(result.Resources) != len(resourceDefs) {
		t.Fatalf("expected %d resources, got %d", len(resourceDefs), len(result.Resources))
	}
}

func TestServer_ResourcesReadCacheInfo(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	srv := NewServer(command.Deps{Cache: root}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"cache/info"}}`+"\n")

	var result cacheInfo
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Dir != root.Dir {
		t.Fatalf("expected dir %s, got %s", root.Dir, result.Dir)
	}
}

func TestServer_ResourcesReadUnknownURIIsError(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"nope"}}`+"\n")

	if responses[0].Error == nil {
		t.Fatalf("expected an error response")
	}
	if responses[0].Error.Code != ErrInvalidParams {
		t.Fatalf("expected ErrInvalidParams, got %d", responses[0].Error.Code)
	}
}

func TestServer_ToolsCallGC(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	srv := NewServer(command.Deps{Cache: root}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"gc","arguments":{"max_size_bytes":1000,"dry_run":true}}}`+"\n")

	if responses[0].Error != nil {
		t.Fatalf("expected no error, got %+v", responses[0].Error)
	}
}

func TestServer_ToolsCallUnknownToolIsError(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`+"\n")

	if responses[0].Error == nil {
		t.Fatalf("expected an error response")
	}
	if responses[0].Error.Code != ErrInvalidParams {
		t.Fatalf("expected ErrInvalidParams, got %d", responses[0].Error.Code)
	}
}

func TestServer_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","id":1,"method":"nope"}`+"\n")

	if responses[0].Error == nil || responses[0].Error.Code != ErrMethodNotFound {
		t.Fatalf("expected ErrMethodNotFound, got %+v", responses[0].Error)
	}
}

func TestServer_MalformedLineReturnsParseError(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `not json`+"\n")

	if responses[0].Error == nil || responses[0].Error.Code != ErrParseError {
		t.Fatalf("expected ErrParseError, got %+v", responses[0].Error)
	}
}

func TestServer_NotificationWithoutIDGetsNoResponse(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	responses := serveLines(t, srv, `{"jsonrpc":"2.0","method":"tools/list"}`+"\n")

	if len(responses) != 0 {
		t.Fatalf("expected no response to a notification, got %d", len(responses))
	}
}

func TestServer_ShutdownStopsTheLoop(t *testing.T) {
	srv := NewServer(command.Deps{}, "pybun", "0.1.0")
	input := `{"jsonrpc":"2.0","id":1,"method":"shutdown"}` + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	responses := serveLines(t, srv, input)

	if len(responses) != 1 {
		t.Fatalf("expected only the shutdown response, got %d", len(responses))
	}
}
