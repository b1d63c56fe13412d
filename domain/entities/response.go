package entities

import "encoding/json"

// LockKeyResponse is the result shape of host.lock_key: the value committed
// under the key at the moment the lock was granted, or Present=false if the
// key has never been written.
type LockKeyResponse struct {
	Value   Value `json:"value,omitempty"`
	Present bool  `json:"present"`
}

// SetKeyResponse is the result shape of host.set_key and host.set_key_and_unlock.
type SetKeyResponse struct {
	OK bool `json:"ok"`
}

// UnlockKeyResponse is the result shape of host.unlock_key.
type UnlockKeyResponse struct {
	OK bool `json:"ok"`
}

// GetKeySnapshotResponse is the result shape of host.get_key_snapshot.
type GetKeySnapshotResponse struct {
	Value   Value `json:"value,omitempty"`
	Present bool  `json:"present"`
}

// RegisterEntityResponse is the result shape of host.register_entity.
type RegisterEntityResponse struct {
	EntityID EntityId `json:"entity_id"`
}

// CallEntityResponse is the result shape of host.call_entity: either the
// target's result value or a structured error, mirroring SessionResult's
// one-or-the-other shape.
type CallEntityResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorDetail    `json:"error,omitempty"`
}

// ResolveResponse is the result shape of host.resolve.
type ResolveResponse struct {
	EntityIDs []EntityId     `json:"entity_ids"`
	Strategy  MethodStrategy `json:"strategy"`
}
