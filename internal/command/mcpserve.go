package command

import (
	"context"
	"io"

	"pybun/internal/schema"
)

// McpServeOptions mirrors spec.md §6's `mcp serve --stdio`.
type McpServeOptions struct {
	In  io.Reader
	Out io.Writer
}

// McpServeDetail is the envelope detail for `mcp serve`: emitted once,
// after the serve loop exits (on EOF or an explicit `shutdown` call),
// since the RPC server itself streams its own per-call responses
// directly to Out rather than through this envelope.
type McpServeDetail struct {
	Summary string `json:"summary"`
}

// Serve is the seam McpServe calls into. internal/rpc.Server implements
// it; defined here (rather than importing internal/rpc directly) so
// internal/command has no dependency on internal/rpc — the RPC package
// depends on internal/command to dispatch tool calls, and a Go import
// cycle would follow if this package imported it back. cmd/pybun wires
// the concrete *rpc.Server in.
type Serve interface {
	Serve(ctx context.Context, r io.Reader, w io.Writer) error
}

// McpServe runs srv's newline-delimited JSON-RPC loop until the stream
// closes or a shutdown request is handled (spec.md §4.8).
func McpServe(ctx context.Context, srv Serve, opts McpServeOptions) schema.Envelope {
	return run("mcp-serve", func(collector *schema.Collector) (any, error) {
		if err := srv.Serve(ctx, opts.In, opts.Out); err != nil {
			return nil, errIO("rpc server: %v", err)
		}
		return McpServeDetail{Summary: "rpc server stopped"}, nil
	})
}
