// Package hosterrors provides the runtime's fixed set of typed errors. Every
// error the host surfaces to a frontend caller or back across stdio to a
// guest is one of these nine kinds (no others exist).
package hosterrors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/walletkit/pluginhost/domain/entities"
)

// DetailedError is implemented by every error type in this package. New host
// error types only need to implement this interface; ToErrorDetail never
// needs to change to recognize them.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts any error into a structured ErrorDetail, recognizing
// this package's typed errors and falling back to a generic transport error
// for anything else.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var detail *entities.ErrorDetail
	if stdErrors.As(err, &detail) {
		return detail
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return entities.NewErrorDetail(entities.ErrorKindTransport, entities.CodeTransportBase, err.Error())
}

// TransportError wraps a failure in the stdio/JSON-RPC framing layer itself
// (malformed frame, broken pipe, decode failure) rather than in RPC content.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string       { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error       { return e.Err }
func (e *TransportError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindTransport, entities.CodeTransportBase, e.Error())
}

// MethodNotFoundError is returned when a call names a method the dispatcher
// or router has no route for.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}
func (e *MethodNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindMethodNotFound, entities.CodeDispatchBase, e.Error()).
		WithData(map[string]any{"method": e.Method})
}

// PermissionDeniedError is returned when a plugin's grant set does not cover
// the service:key it attempted to call.
type PermissionDeniedError struct {
	Service string
	Key     string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s:%s", e.Service, e.Key)
}
func (e *PermissionDeniedError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindPermissionDenied, entities.CodeDispatchBase-1, e.Error()).
		WithData(map[string]any{"service": e.Service, "key": e.Key})
}

// BadParamsError is returned when a call's params fail to decode or validate
// against the target method's expected shape.
type BadParamsError struct {
	Err error
}

func (e *BadParamsError) Error() string { return fmt.Sprintf("bad params: %v", e.Err) }
func (e *BadParamsError) Unwrap() error { return e.Err }
func (e *BadParamsError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindBadParams, entities.CodeDispatchBase-2, e.Error())
}

// LockRejectedError is returned when a state key lock cannot be granted,
// e.g. re-entrant lock_key from the session already holding it.
type LockRejectedError struct {
	Key    entities.Key
	Reason string
}

func (e *LockRejectedError) Error() string {
	return fmt.Sprintf("lock rejected for key %q: %s", e.Key, e.Reason)
}
func (e *LockRejectedError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindLockRejected, entities.CodeDispatchBase-3, e.Error()).
		WithData(map[string]any{"key": string(e.Key)})
}

// RoutingAmbiguousError is returned when a singleton-strategy method resolves
// to more than one candidate entity.
type RoutingAmbiguousError struct {
	Method     string
	Candidates int
}

func (e *RoutingAmbiguousError) Error() string {
	return fmt.Sprintf("routing ambiguous for %s: %d candidates", e.Method, e.Candidates)
}
func (e *RoutingAmbiguousError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindRoutingAmbiguous, entities.CodeDispatchBase-4, e.Error()).
		WithData(map[string]any{"method": e.Method, "candidates": e.Candidates})
}

// RoutingUnmatchedError is returned when a method resolves to zero candidate
// entities.
type RoutingUnmatchedError struct {
	Method string
}

func (e *RoutingUnmatchedError) Error() string {
	return fmt.Sprintf("routing unmatched for %s", e.Method)
}
func (e *RoutingUnmatchedError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindRoutingUnmatched, entities.CodeDispatchBase-5, e.Error()).
		WithData(map[string]any{"method": e.Method})
}

// PluginTrapError wraps a guest trap (unreachable, memory fault, unsupported
// WASI call) observed by the executor. Running out of fuel is not a trap:
// the session yields and its fuel refills.
type PluginTrapError struct {
	Err error
}

func (e *PluginTrapError) Error() string { return fmt.Sprintf("plugin trapped: %v", e.Err) }
func (e *PluginTrapError) Unwrap() error { return e.Err }
func (e *PluginTrapError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindPluginTrap, entities.CodePluginBase, e.Error())
}

// TimeoutError is returned when a session or host call exceeds its deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Operation, e.Duration)
}
func (e *TimeoutError) Timeout() bool { return true }
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorKindTimeout, entities.CodePluginBase-1, e.Error()).
		WithData(map[string]any{"operation": e.Operation})
}
