package schema

import "time"

// Status is the top-level outcome of a command.
type Status string

const (
	StatusOK        Status = "ok"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Envelope is the stable v1 JSON object every pybun command emits on
// stdout, exactly once, per spec.md §6.
type Envelope struct {
	Version    string       `json:"version"`
	Command    string       `json:"command"`
	Status     Status       `json:"status"`
	DurationMs int64        `json:"duration_ms"`
	Detail     any          `json:"detail,omitempty"`
	Events     []Event      `json:"events"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	TraceID    string       `json:"trace_id,omitempty"`
}

// EnvelopeVersion is the schema version this build emits.
const EnvelopeVersion = "1"

// Build assembles the final envelope for a command. start is the time the
// command began, used only to compute duration_ms — it never appears in
// the envelope itself.
func (c *Collector) Build(command string, status Status, detail any, traceID string, start time.Time) Envelope {
	return Envelope{
		Version:     EnvelopeVersion,
		Command:     command,
		Status:      status,
		DurationMs:  time.Since(start).Milliseconds(),
		Detail:      detail,
		Events:      c.Events(),
		Diagnostics: c.Diagnostics(),
		TraceID:     traceID,
	}
}
