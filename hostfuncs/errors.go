package hostfuncs

import (
	"encoding/json"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// toJSON serializes an ErrorDetail to JSON bytes for return across the
// host/guest boundary. Returns nil if serialization fails, which should
// never happen for this struct.
func toJSON(d *entities.ErrorDetail) []byte {
	data, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return data
}

// ErrorDetailJSON exposes toJSON to other packages that need to serialize an ErrorDetail returned from a handler invocation.
func ErrorDetailJSON(d *entities.ErrorDetail) []byte {
	return toJSON(d)
}

// NewBadParamsError builds the wire-format error for malformed or
// unmarshalable host-call params.
func NewBadParamsError(message string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindBadParams, entities.CodeDispatchBase-2, message)
}

// NewNotFoundError builds the wire-format error for an unregistered host
// function name.
func NewNotFoundError(name string) *entities.ErrorDetail {
	return (&hosterrors.MethodNotFoundError{Method: name}).ToErrorDetail()
}

// NewInternalError builds the wire-format error for unexpected host-side
// failures (marshaling, I/O).
func NewInternalError(message string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindTransport, entities.CodeTransportBase, message)
}

// NewPanicError builds the wire-format error for a panic recovered while
// invoking a handler.
func NewPanicError(panicValue any) *entities.ErrorDetail {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return entities.NewErrorDetail(entities.ErrorKindPluginTrap, entities.CodePluginBase, "panic: "+msg)
}
