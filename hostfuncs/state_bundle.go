package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// StateStore is the subset of host/state.Manager the state bundle depends
// on. Declaring it here instead of importing host/state directly keeps
// hostfuncs free to run against a fake in unit tests.
type StateStore interface {
	LockKey(ctx context.Context, plugin entities.PluginId, session entities.SessionId, key entities.Key) (entities.Value, bool, error)
	SetKey(plugin entities.PluginId, session entities.SessionId, key entities.Key, value entities.Value) error
	UnlockKey(plugin entities.PluginId, session entities.SessionId, key entities.Key) error
	SetKeyAndUnlock(plugin entities.PluginId, session entities.SessionId, key entities.Key, value entities.Value) error
	GetKeySnapshot(plugin entities.PluginId, key entities.Key) (entities.Value, bool)
}

var (
	errNoPluginID  = fmt.Errorf("dispatcher did not stamp a plugin id onto the call context")
	errNoSessionID = fmt.Errorf("dispatcher did not stamp a session id onto the call context")
)

// callerIdentity pulls the (PluginId, SessionId) the dispatcher stamped onto
// ctx before ever handing control to a handler (§4.3: a guest never
// supplies its own identity).
func callerIdentity(ctx context.Context) (entities.PluginId, entities.SessionId, error) {
	plugin, ok := CapabilityPluginIDFromContext(ctx)
	if !ok {
		return "", 0, &hosterrors.TransportError{Err: errNoPluginID}
	}
	session, ok := SessionIDFromContext(ctx)
	if !ok {
		return "", 0, &hosterrors.TransportError{Err: errNoSessionID}
	}
	return plugin, session, nil
}

// decodeRequest unmarshals payload into req, returning a ready-to-return
// ErrorDetail JSON on failure.
func decodeRequest[Req any](payload []byte, req *Req) ([]byte, bool) {
	if err := json.Unmarshal(payload, req); err != nil {
		return toJSON(NewBadParamsError(fmt.Sprintf("failed to unmarshal request: %v", err))), false
	}
	if err := requestValidator.Struct(req); err != nil {
		return toJSON(NewBadParamsError(fmt.Sprintf("invalid request: %v", err))), false
	}
	return nil, true
}

// encodeResponse marshals resp, falling back to an internal-error ErrorDetail
// on the (practically unreachable) marshaling failure.
func encodeResponse(resp any) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		return toJSON(NewInternalError(fmt.Sprintf("failed to marshal response: %v", err)))
	}
	return data
}

// stateHandler adapts a permission-checked state operation into a
// ByteHandler: decode, identify the caller, check the capability, run the
// operation, and always answer with valid JSON (either the typed response
// or a structured ErrorDetail).
func stateHandler[Req any, Resp any](key func(Req) string, run func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req Req) (Resp, error), checker *CapabilityChecker) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if errBytes, ok := decodeRequest(payload, &req); !ok {
			return errBytes, nil
		}

		plugin, session, err := callerIdentity(ctx)
		if err != nil {
			return toJSON(hosterrors.ToErrorDetail(err)), nil
		}
		if err := checker.Check(plugin, entities.ServiceState, key(req)); err != nil {
			return toJSON(hosterrors.ToErrorDetail(err)), nil
		}

		resp, err := run(ctx, plugin, session, req)
		if err != nil {
			return toJSON(hosterrors.ToErrorDetail(err)), nil
		}
		return encodeResponse(resp), nil
	}
}

// StateBundle returns the C3 "state" host service: lock_key, unlock_key,
// set_key, set_key_and_unlock, get_key_snapshot. Every handler checks the
// caller's capability grants before touching the store.
func StateBundle(store StateStore, checker *CapabilityChecker) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"lock_key": stateHandler(
				func(r entities.LockKeyRequest) string { return r.Key },
				func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req entities.LockKeyRequest) (entities.LockKeyResponse, error) {
					value, present, err := store.LockKey(ctx, plugin, session, entities.Key(req.Key))
					if err != nil {
						return entities.LockKeyResponse{}, err
					}
					return entities.LockKeyResponse{Value: value, Present: present}, nil
				},
				checker,
			),

			"unlock_key": stateHandler(
				func(r entities.UnlockKeyRequest) string { return r.Key },
				func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req entities.UnlockKeyRequest) (entities.UnlockKeyResponse, error) {
					if err := store.UnlockKey(plugin, session, entities.Key(req.Key)); err != nil {
						return entities.UnlockKeyResponse{}, err
					}
					return entities.UnlockKeyResponse{OK: true}, nil
				},
				checker,
			),

			"set_key": stateHandler(
				func(r entities.SetKeyRequest) string { return r.Key },
				func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req entities.SetKeyRequest) (entities.SetKeyResponse, error) {
					if err := store.SetKey(plugin, session, entities.Key(req.Key), req.Value); err != nil {
						return entities.SetKeyResponse{}, err
					}
					return entities.SetKeyResponse{OK: true}, nil
				},
				checker,
			),

			"set_key_and_unlock": stateHandler(
				func(r entities.SetKeyRequest) string { return r.Key },
				func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req entities.SetKeyRequest) (entities.SetKeyResponse, error) {
					if err := store.SetKeyAndUnlock(plugin, session, entities.Key(req.Key), req.Value); err != nil {
						return entities.SetKeyResponse{}, err
					}
					return entities.SetKeyResponse{OK: true}, nil
				},
				checker,
			),

			"get_key_snapshot": stateHandler(
				func(r entities.GetKeySnapshotRequest) string { return r.Key },
				func(ctx context.Context, plugin entities.PluginId, session entities.SessionId, req entities.GetKeySnapshotRequest) (entities.GetKeySnapshotResponse, error) {
					value, present := store.GetKeySnapshot(plugin, entities.Key(req.Key))
					return entities.GetKeySnapshotResponse{Value: value, Present: present}, nil
				},
				checker,
			),
		},
	}
}
