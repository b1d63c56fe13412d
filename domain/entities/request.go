package entities

import "encoding/json"

// LockKeyRequest is the params shape of host.lock_key.
type LockKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

// SetKeyRequest is the params shape of host.set_key and the write half of
// host.set_key_and_unlock.
type SetKeyRequest struct {
	Key   string `json:"key" validate:"required"`
	Value []byte `json:"value"`
}

// UnlockKeyRequest is the params shape of host.unlock_key.
type UnlockKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

// GetKeySnapshotRequest is the params shape of host.get_key_snapshot.
type GetKeySnapshotRequest struct {
	Key string `json:"key" validate:"required"`
}

// RegisterEntityRequest is the params shape of host.register_entity.
type RegisterEntityRequest struct {
	Domain       Domain          `json:"domain" validate:"required"`
	EntityID     string          `json:"entity_id,omitempty"`
	ScopingRules json.RawMessage `json:"scoping_rules,omitempty"`
}

// CallEntityRequest is the params shape of host.call_entity.
type CallEntityRequest struct {
	EntityID string          `json:"entity_id" validate:"required"`
	Method   string          `json:"method" validate:"required"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// ResolveRequest is the params shape of host.resolve.
type ResolveRequest struct {
	Domain Domain `json:"domain" validate:"required"`
	Method string `json:"method" validate:"required"`
	Scope  string `json:"scope,omitempty"`
}

// SetPermissionRequest is the params shape of the host's set_permission
// programmatic surface call (§6).
type SetPermissionRequest struct {
	Plugin PluginId   `json:"plugin" validate:"required"`
	Grant  Capability `json:"grant"`
}
