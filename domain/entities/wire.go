// Package entities defines core domain types and wire protocol structures.
// These types serve dual purpose: domain entities AND JSON wire format DTOs.
package entities

import "time"

// ContextWire is the JSON wire format for context.Context propagation across
// the host/guest boundary: a session's deadline and cancellation state.
type ContextWire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// LogMessageWire is the wire format for a single log record crossing the
// guest's stderr channel into the host's log sink (§4.2).
type LogMessageWire struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}
