package entities

import "encoding/json"

// SessionStatus is a session's terminal state (§4.1 Lifecycle).
type SessionStatus string

const (
	SessionReturned  SessionStatus = "returned"
	SessionTrapped   SessionStatus = "trapped"
	SessionCancelled SessionStatus = "cancelled"
	SessionTimedOut  SessionStatus = "timed_out"
)

// SessionResult is what the executor delivers to a caller once a session
// reaches a terminal state: either a result value or a structured error,
// never both.
type SessionResult struct {
	Metadata *SessionMetadata `json:"metadata,omitempty"`
	Value    json.RawMessage  `json:"value,omitempty"`
	Error    *ErrorDetail     `json:"error,omitempty"`
	Status   SessionStatus    `json:"status"`
}

// Success builds a SessionResult carrying the guest's returned value.
func Success(value json.RawMessage) SessionResult {
	return SessionResult{Status: SessionReturned, Value: value}
}

// Failed builds a SessionResult carrying a terminal error with its status.
func Failed(status SessionStatus, err *ErrorDetail) SessionResult {
	return SessionResult{Status: status, Error: err}
}

// WithMetadata returns a copy of the SessionResult with metadata attached.
func (r SessionResult) WithMetadata(m *SessionMetadata) SessionResult {
	r.Metadata = m
	return r
}

// IsSuccess reports whether the session returned a value normally.
func (r SessionResult) IsSuccess() bool {
	return r.Status == SessionReturned && r.Error == nil
}
