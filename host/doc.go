// Package host provides the runtime environment for executing Reglet WASM plugins.
//
// It abstracts the underlying WASM engine (wazero), manages plugin lifecycle,
// and gives each guest only a fixed subset of WASI imports. Host services are
// not registered as WASM imports: a guest reaches them as JSON-RPC calls over
// its stdin/stdout pipes, checked against the capabilities granted to it.
package host
