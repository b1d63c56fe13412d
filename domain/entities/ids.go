package entities

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// PluginId stably identifies a loaded plugin across its lifetime.
type PluginId string

// NewPluginId allocates a fresh, process-unique plugin identifier.
func NewPluginId() PluginId {
	return PluginId(uuid.NewString())
}

// EntityId stably identifies a registered entity.
// Allocated by the host at registration time unless the registering plugin
// requests a specific id.
type EntityId string

// NewEntityId allocates a fresh, process-unique entity identifier.
func NewEntityId() EntityId {
	return EntityId(uuid.NewString())
}

// SessionId identifies one in-flight invocation of a plugin. Session ids are
// monotonically increasing within a single host process so that scheduling
// and log correlation can rely on ordering, not just uniqueness.
type SessionId uint64

// sessionCounter backs SessionId allocation across the whole host.
var sessionCounter atomic.Uint64

// NewSessionId returns the next monotonically increasing session id.
func NewSessionId() SessionId {
	return SessionId(sessionCounter.Add(1))
}

// Key names one slot in a plugin's persisted key-value state.
type Key string

// Value is an opaque byte blob stored under a Key.
type Value []byte
