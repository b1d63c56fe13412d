package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// requestValidator checks the "validate" struct tags declared on the host
// service request types in domain/entities (e.g. LockKeyRequest.Key is
// "required"). A single validator.Validate is safe for concurrent use and
// caches each struct's parsed tags after its first validation.
var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// HostFunc is a generic function signature for host functions.
// It accepts a context and a typed request, and returns a typed response.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler is a function that accepts raw bytes (JSON) and returns raw bytes (JSON).
// This is the common interface that WASM runtimes can easily use.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
// It handles the JSON unmarshalling of the request and marshaling of the response.
//
// For infrastructure failures (malformed JSON, serialization errors), the handler
// returns a structured ErrorDetail JSON instead of a Go error. This ensures
// plugins always receive valid JSON and prevents WASM runtime traps.
//
// Usage:
//
//	getHandler := hostfuncs.NewJSONHandler(func(ctx context.Context, req entities.GetKeySnapshotRequest) entities.GetKeySnapshotResponse {
//	    value, present := store.GetKeySnapshot(pluginID, entities.Key(req.Key))
//	    return entities.GetKeySnapshotResponse{Value: value, Present: present}
//	})
//
//	// Called with the raw JSON params of an inbound host-service request:
//	respBytes, err := getHandler(ctx, params)
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			// Return structured JSON error instead of Go error
			return toJSON(NewBadParamsError(fmt.Sprintf("failed to unmarshal request: %v", err))), nil
		}
		if err := requestValidator.Struct(req); err != nil {
			return toJSON(NewBadParamsError(fmt.Sprintf("invalid request: %v", err))), nil
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			// Return structured JSON error instead of Go error
			return toJSON(NewInternalError(fmt.Sprintf("failed to marshal response: %v", err))), nil
		}

		return respBytes, nil
	}
}
