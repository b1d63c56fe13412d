package host

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// trapImmediatelyWASM is a hand-assembled WebAssembly module (no toolchain
// involved in producing it) exporting a zero-import, zero-local "_start"
// whose entire body is a single `unreachable` instruction. wazero's default
// module config runs an exported "_start" synchronously as part of
// instantiation, so this module traps the instant the executor tries to
// start a session against it — exercising the real trap path through
// genuine wazero compilation and instantiation rather than a mocked
// session outcome.
//
// Binary layout: magic + version, then type/function/export/code sections
// for a single `() -> ()` function, `_start`, whose body is [unreachable,
// end].
var trapImmediatelyWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // \0asm, version 1

	0x01, 0x04, 0x01, 0x60, 0x00, 0x00, // type section: type 0 = () -> ()

	0x03, 0x02, 0x01, 0x00, // function section: func 0 uses type 0

	0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00, // export "_start" -> func 0

	0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b, // code: func 0 body = [unreachable, end]
}

// schedYieldLoopWASM is a hand-assembled module that imports
// wasi_snapshot_preview1.sched_yield, calls it five times in a counted
// loop, then traps via `unreachable`. It exercises a genuine honored-WASI
// import through real wazero instantiation and execution — the loop body
// must actually run and actually call the imported host function for the
// module to reach the trap at the end, so a test that only gets as far as
// "compiled and instantiated without an unhonored-import rejection" is not
// enough to pass; the trap only fires after five real calls to the host's
// sched_yield implementation.
//
// Binary layout adds an import section (sched_yield, type () -> i32) and a
// richer code section: one i32 local used as a countdown, a block/loop
// pair, `call 0` (sched_yield) + `drop` each iteration, ending in
// `unreachable` once the countdown reaches zero.
var schedYieldLoopWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // \0asm, version 1

	// type section: type 0 = () -> (), type 1 = () -> i32
	0x01, 0x08, 0x02,
	0x60, 0x00, 0x00,
	0x60, 0x00, 0x01, 0x7f,

	// import section: wasi_snapshot_preview1.sched_yield, type 1
	0x02, 0x26, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x0b, 's', 'c', 'h', 'e', 'd', '_', 'y', 'i', 'e', 'l', 'd',
	0x00, 0x01,

	// function section: func 1 (the first non-imported function) uses type 0
	0x03, 0x02, 0x01, 0x00,

	// export section: export "_start" -> func 1
	0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,

	// code section: func 1 body
	0x0a, 0x22, 0x01, 0x20,
	0x01, 0x01, 0x7f, // one i32 local
	0x41, 0x05, // i32.const 5
	0x21, 0x00, // local.set 0
	0x02, 0x40, // block
	0x03, 0x40, // loop
	0x20, 0x00, // local.get 0
	0x45, // i32.eqz
	0x0d, 0x01, // br_if 1
	0x10, 0x00, // call 0 (sched_yield)
	0x1a, // drop
	0x20, 0x00, // local.get 0
	0x41, 0x01, // i32.const 1
	0x6b, // i32.sub
	0x21, 0x00, // local.set 0
	0x0c, 0x00, // br 0
	0x0b, // end loop
	0x0b, // end block
	0x00, // unreachable
	0x0b, // end func
}

func TestLoadPlugin_TrapDuringInit_RollsBackAndReturnsPluginTrapError(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	err = e.LoadPlugin(ctx, "trappy", trapImmediatelyWASM, json.RawMessage(`{}`))
	require.Error(t, err)

	var trapErr *hosterrors.PluginTrapError
	assert.ErrorAs(t, err, &trapErr)

	e.mu.Lock()
	_, stillLoaded := e.plugins["trappy"]
	e.mu.Unlock()
	assert.False(t, stillLoaded, "a plugin that traps during init must not be retained")
}

func TestCall_TrapMidSession_ReturnsPluginTrapError(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	// schedYieldLoopWASM traps on every instantiation, including the
	// implicit one LoadPlugin uses for plugin.init, so load it directly
	// into the executor's plugin table rather than going through
	// LoadPlugin (which would itself fail and roll the plugin back).
	compiled, err := e.runtime.CompileModule(ctx, schedYieldLoopWASM)
	require.NoError(t, err)
	require.NoError(t, validateImports(compiled))

	e.mu.Lock()
	e.plugins["yielder"] = &loadedPlugin{compiled: compiled, sem: semaphore.NewWeighted(e.maxSessions)}
	e.mu.Unlock()

	_, err = e.Call(ctx, "yielder", "anything", json.RawMessage(`{}`))
	require.Error(t, err)

	var trapErr *hosterrors.PluginTrapError
	assert.ErrorAs(t, err, &trapErr)
}

func TestValidateImports_AcceptsHonoredWASIImport(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer func() { _ = e.Close(ctx) }()

	compiled, err := e.runtime.CompileModule(ctx, schedYieldLoopWASM)
	require.NoError(t, err)
	defer func() { _ = compiled.Close(ctx) }()

	assert.NoError(t, validateImports(compiled))
}
