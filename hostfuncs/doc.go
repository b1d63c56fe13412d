// Package hostfuncs provides pure Go implementations of host function logic.
// These implementations have NO WASM runtime dependencies (no wazero/wasmtime).
// They can be used by any WASM plugin host, not just Reglet.
package hostfuncs
