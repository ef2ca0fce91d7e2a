package actionlog

import (
	"encoding/json"
)

// Status labels for a recorded invocation.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Record describes a single instrumented invocation: what was called, with
// what inputs, how it ended and how long it took. Records are transient;
// they are discarded as soon as the appender has written them.
type Record struct {
	TS         string `json:"ts"`          // wall-clock timestamp, RFC3339Nano UTC
	ServerType string `json:"server_type"` // tag for the owning server/agent
	Tool       string `json:"tool"`        // operation name
	Args       string `json:"args"`        // truncated snapshot of the inputs
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`

	// Result is set on ok, Error on error and cancelled, Traceback on error.
	// Pointers so that the key set per status is exact even for empty values.
	Result    *string `json:"result,omitempty"`
	Error     *string `json:"error,omitempty"`
	Traceback *string `json:"traceback,omitempty"`
}

// MarshalLine serializes the record to a single newline-terminated JSON line.
// json.Marshal never emits raw line breaks, so the line is self-contained.
func (r Record) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
