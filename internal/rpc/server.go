package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"pybun/internal/command"
	"pybun/internal/schema"
)

// maxLineBytes bounds a single request line; tools/call arguments for
// inline scripts can be large, so this is generous rather than the
// bufio.Scanner default 64KiB.
const maxLineBytes = 8 << 20

// Server is the RPC control surface spec.md §4.8 requires: a
// newline-delimited JSON-RPC 2.0 server dispatching into the same
// internal/command functions a CLI shell would call.
type Server struct {
	Deps          command.Deps
	ServerName    string
	ServerVersion string

	writeMu sync.Mutex
}

// NewServer builds a Server bound to deps, the same Deps bundle every
// other command entry point uses.
func NewServer(deps command.Deps, name, version string) *Server {
	return &Server{Deps: deps, ServerName: name, ServerVersion: version}
}

// Serve runs the read-dispatch-write loop until r is exhausted, ctx is
// cancelled, or a "shutdown" request is handled. It returns nil on a
// clean shutdown or EOF, and a non-nil error only for an unrecoverable
// I/O failure on the underlying stream.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		req, parseErr := decodeRequest(line)
		if parseErr != nil {
			s.writeLine(bw, errorResponse(nil, ErrParseError, "invalid JSON-RPC request", parseErr.Error()))
			continue
		}

		resp, shutdown := s.dispatch(ctx, req)
		if len(req.ID) > 0 {
			s.writeLine(bw, resp)
		}
		if shutdown {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("rpc: reading request stream: %w", err)
	}
	return nil
}

func decodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, err
	}
	if req.Method == "" {
		return Request{}, errors.New("missing method")
	}
	return req, nil
}

// dispatch handles one decoded request and reports whether the server
// should stop serving after this call (true only for "shutdown").
func (s *Server) dispatch(ctx context.Context, req Request) (Response, bool) {
	switch req.Method {
	case "initialize":
		return newResponse(req.ID, map[string]any{
			"protocol_version": Version,
			"server": map[string]string{
				"name":    s.ServerName,
				"version": s.ServerVersion,
			},
			"capabilities": map[string]any{
				"tools":     true,
				"resources": true,
			},
		}), false

	case "tools/list":
		return newResponse(req.ID, map[string]any{"tools": toolDefs}), false

	case "tools/call":
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, ErrInvalidParams, "invalid tools/call params", err.Error()), false
		}
		envelope, err := callTool(ctx, s.Deps, params)
		if err != nil {
			return errorResponse(req.ID, ErrInvalidParams, err.Error(), nil), false
		}
		return envelopeResponse(req.ID, envelope), false

	case "resources/list":
		return newResponse(req.ID, map[string]any{"resources": resourceDefs}), false

	case "resources/read":
		var params readResourceParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, ErrInvalidParams, "invalid resources/read params", err.Error()), false
		}
		result, err := readResource(ctx, s.Deps, params)
		if err != nil {
			return errorResponse(req.ID, ErrInvalidParams, err.Error(), nil), false
		}
		return newResponse(req.ID, result), false

	case "shutdown":
		return newResponse(req.ID, map[string]any{"ok": true}), true

	default:
		return errorResponse(req.ID, ErrMethodNotFound, "unknown method "+req.Method, nil), false
	}
}

// envelopeResponse turns a command envelope into a JSON-RPC response. A
// command that recorded diagnostics (status "error") is reported as a
// JSON-RPC error per spec.md §4.8 ("failures inside RPC tool calls are
// reported as JSON-RPC errors with the same diagnostic code in the error
// data"), carrying the full envelope in Data so a caller still gets
// events and every diagnostic, not just the first one.
func envelopeResponse(id json.RawMessage, envelope schema.Envelope) Response {
	if envelope.Status != schema.StatusOK {
		code := "E_UNKNOWN"
		message := string(envelope.Status)
		if len(envelope.Diagnostics) > 0 {
			code = string(envelope.Diagnostics[0].Code)
			message = envelope.Diagnostics[0].Message
		}
		return errorResponse(id, ErrInternal, message, map[string]any{
			"code":     code,
			"envelope": envelope,
		})
	}
	return newResponse(id, envelope)
}

func (s *Server) writeLine(bw *bufio.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	bw.Write(data)
	bw.WriteByte('\n')
	bw.Flush()
}

