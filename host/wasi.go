package host

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/walletkit/pluginhost/pluglog"
)

// wasiModuleName is the import module name guest toolchains compiled
// against the WASI preview-1 ABI expect these syscalls under.
const wasiModuleName = "wasi_snapshot_preview1"

// WASI preview-1 errno values this runtime produces. Only the subset it
// actually returns is named; the rest of the errno space is unused because
// every call this host honors either succeeds or fails in one of these ways.
const (
	errnoSuccess uint32 = 0
	errnoBadf    uint32 = 8
	errnoInval   uint32 = 28
)

// unsupportedWASICallError marks a WASI import outside the honored subset
// (§4.1). validateImports rejects these at load time for direct imports;
// this error backs the same refusal for poll_oneoff subscription types the
// ABI otherwise allows a guest to request only at call time.
type unsupportedWASICallError struct {
	call string
}

func (e *unsupportedWASICallError) Error() string {
	return fmt.Sprintf("wasi: unsupported call or subscription: %s", e.call)
}

// registerWASI hand-registers only the WASI calls named in §4.1:
// args_*, environ_*, clock_time_get, random_get, sched_yield, proc_exit,
// fd_read (stdin only), fd_write (stdout/stderr only), and poll_oneoff
// restricted to clock and stdin-readiness subscriptions. Each is built with
// wazero's low-level, stack-based WithGoModuleFunction, because fd_write's iovec array and poll_oneoff's subscription/event
// arrays need direct control over the parameter and result type lists that
// the convenience WithFunc wrapper does not expose.
func registerWASI(ctx context.Context, rt wazero.Runtime) error {
	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64

	builder := rt.NewHostModuleBuilder(wasiModuleName)
	register := func(name string, params, results []api.ValueType, fn api.GoModuleFunc) {
		builder.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}

	register("args_sizes_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiArgsSizesGet))
	register("args_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiArgsGet))
	register("environ_sizes_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiEnvironSizesGet))
	register("environ_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiEnvironGet))
	register("clock_time_get", []api.ValueType{i32, i64, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiClockTimeGet))
	register("random_get", []api.ValueType{i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiRandomGet))
	register("sched_yield", nil, []api.ValueType{i32}, api.GoModuleFunc(wasiSchedYield))
	register("proc_exit", []api.ValueType{i32}, nil, api.GoModuleFunc(wasiProcExit))
	register("fd_read", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiFdRead))
	register("fd_write", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiFdWrite))
	register("poll_oneoff", []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32}, api.GoModuleFunc(wasiPollOneoff))

	_, err := builder.Instantiate(ctx)
	return err
}

// Guests never receive argv or envp from this host; plugin configuration
// travels through the plugin.init RPC call instead (§4.1), so these always
// report zero entries.

func wasiArgsSizesGet(_ context.Context, mod api.Module, stack []uint64) {
	mem := mod.Memory()
	if !mem.WriteUint32Le(uint32(stack[0]), 0) || !mem.WriteUint32Le(uint32(stack[1]), 0) {
		stack[0] = uint64(errnoInval)
		return
	}
	stack[0] = uint64(errnoSuccess)
}

func wasiArgsGet(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(errnoSuccess)
}

func wasiEnvironSizesGet(_ context.Context, mod api.Module, stack []uint64) {
	mem := mod.Memory()
	if !mem.WriteUint32Le(uint32(stack[0]), 0) || !mem.WriteUint32Le(uint32(stack[1]), 0) {
		stack[0] = uint64(errnoInval)
		return
	}
	stack[0] = uint64(errnoSuccess)
}

func wasiEnvironGet(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(errnoSuccess)
}

func wasiClockTimeGet(_ context.Context, mod api.Module, stack []uint64) {
	resultPtr := uint32(stack[2])
	if !mod.Memory().WriteUint64Le(resultPtr, uint64(time.Now().UnixNano())) {
		stack[0] = uint64(errnoInval)
		return
	}
	stack[0] = uint64(errnoSuccess)
}

func wasiRandomGet(_ context.Context, mod api.Module, stack []uint64) {
	bufPtr, bufLen := uint32(stack[0]), uint32(stack[1])
	buf := make([]byte, bufLen)
	if _, err := rand.Read(buf); err != nil {
		stack[0] = uint64(errnoInval)
		return
	}
	if !mod.Memory().Write(bufPtr, buf) {
		stack[0] = uint64(errnoInval)
		return
	}
	stack[0] = uint64(errnoSuccess)
}

func wasiSchedYield(ctx context.Context, _ api.Module, stack []uint64) {
	if sess, ok := sessionFromContext(ctx); ok {
		sess.consumeFuel()
	}
	stack[0] = uint64(errnoSuccess)
}

func wasiProcExit(ctx context.Context, mod api.Module, stack []uint64) {
	//nolint:gosec // G115: WASI exit codes are defined as 32-bit.
	_ = mod.CloseWithExitCode(ctx, uint32(stack[0]))
}

// iovecAt reads one wasm32 iovec (buf_ptr u32, buf_len u32) at base.
func iovecAt(mem api.Memory, base uint32) (ptr, length uint32, ok bool) {
	ptr, ok1 := mem.ReadUint32Le(base)
	length, ok2 := mem.ReadUint32Le(base + 4)
	return ptr, length, ok1 && ok2
}

// wasiFdRead honors fd_read only on fd 0 (§4.1). Each iovec's Read blocks
// on the session's stdin pipe until the host writes more bytes or closes
// it — this is the fd_read suspension point named in §5, implemented as a
// genuine goroutine park rather than simulated, since the pipe's blocking
// Read already gives the right semantics for free.
func wasiFdRead(ctx context.Context, mod api.Module, stack []uint64) {
	fd := uint32(stack[0])
	iovsPtr, iovsLen, nreadPtr := uint32(stack[1]), uint32(stack[2]), uint32(stack[3])

	if fd != 0 {
		stack[0] = uint64(errnoBadf)
		return
	}
	sess, ok := sessionFromContext(ctx)
	if !ok {
		stack[0] = uint64(errnoBadf)
		return
	}

	mem := mod.Memory()
	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		bufPtr, bufLen, ok := iovecAt(mem, iovsPtr+i*8)
		if !ok {
			stack[0] = uint64(errnoInval)
			return
		}
		if bufLen == 0 {
			continue
		}

		buf := make([]byte, bufLen)
		sess.setState(SessionBlocked)
		n, err := sess.stdinR.Read(buf)
		sess.setState(SessionRunning)

		if n > 0 {
			if !mem.Write(bufPtr, buf[:n]) {
				stack[0] = uint64(errnoInval)
				return
			}
			total += uint32(n)
		}
		if err != nil || uint32(n) < bufLen {
			break
		}
	}

	if !mem.WriteUint32Le(nreadPtr, total) {
		stack[0] = uint64(errnoInval)
		return
	}
	sess.consumeFuel()
	stack[0] = uint64(errnoSuccess)
}

// wasiFdWrite honors fd_write only on fd 1 (stdout, forwarded to the host's
// JSON-RPC reader) and fd 2 (stderr). Per §4.2, stderr is captured into the
// host's log sink labeled with (PluginId, SessionId) via pluglog.WireHandler
// — it is also buffered into the session's bounded tail (§4.1), since a trap
// diagnostic wants the last bytes written independent of whatever the
// ambient log level happens to be.
func wasiFdWrite(ctx context.Context, mod api.Module, stack []uint64) {
	fd := uint32(stack[0])
	iovsPtr, iovsLen, nwrittenPtr := uint32(stack[1]), uint32(stack[2]), uint32(stack[3])

	sess, ok := sessionFromContext(ctx)
	if !ok {
		stack[0] = uint64(errnoBadf)
		return
	}

	var w io.Writer
	isStderr := false
	switch fd {
	case 1:
		w = sess.stdoutW
	case 2:
		w = sess.stderr
		isStderr = true
	default:
		stack[0] = uint64(errnoBadf)
		return
	}

	mem := mod.Memory()
	var total uint32
	for i := uint32(0); i < iovsLen; i++ {
		bufPtr, bufLen, ok := iovecAt(mem, iovsPtr+i*8)
		if !ok {
			stack[0] = uint64(errnoInval)
			return
		}
		if bufLen == 0 {
			continue
		}
		data, ok := mem.Read(bufPtr, bufLen)
		if !ok {
			stack[0] = uint64(errnoInval)
			return
		}
		n, _ := w.Write(data)
		total += uint32(n)
		if isStderr && n > 0 {
			logCtx := pluglog.WithSession(ctx, sess.pluginID, sess.id)
			slog.WarnContext(logCtx, "guest stderr", "data", string(data[:n]))
		}
	}

	if !mem.WriteUint32Le(nwrittenPtr, total) {
		stack[0] = uint64(errnoInval)
		return
	}
	sess.consumeFuel()
	stack[0] = uint64(errnoSuccess)
}

// WASI preview-1 eventtype tags this runtime recognizes in a subscription.
const (
	eventTypeClock  = 0
	eventTypeFDRead = 1
)

// subscriptionSize and eventSize are the fixed record sizes of the WASI
// preview-1 ABI's subscription_t and event_t structs.
const (
	subscriptionSize = 48
	eventSize        = 32
)

// wasiPollOneoff honors only clock and stdin-readiness subscriptions
// (§4.1); any other subscription type traps the session rather than
// returning an errno, mirroring how an unsupported import would fail at
// load time. Zero subscriptions returns immediately with zero events
// (§8 boundary behavior). FD_READ readiness is reported immediately rather
// than by actually polling the pipe — the guest's own subsequent fd_read
// still blocks correctly if no data has arrived, so this only affects how
// eagerly a guest using poll_oneoff-before-read wakes up, not correctness.
func wasiPollOneoff(ctx context.Context, mod api.Module, stack []uint64) {
	inPtr, outPtr, nsubscriptions, neventsPtr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3])

	mem := mod.Memory()
	if nsubscriptions == 0 {
		mem.WriteUint32Le(neventsPtr, 0)
		stack[0] = uint64(errnoSuccess)
		return
	}

	sess, ok := sessionFromContext(ctx)
	if !ok {
		stack[0] = uint64(errnoBadf)
		return
	}

	var nevents uint32
	for i := uint32(0); i < nsubscriptions; i++ {
		base := inPtr + i*subscriptionSize
		userdata, ok := mem.ReadUint64Le(base)
		if !ok {
			stack[0] = uint64(errnoInval)
			return
		}
		tagByte, ok := mem.ReadByte(base + 8)
		if !ok {
			stack[0] = uint64(errnoInval)
			return
		}

		switch tagByte {
		case eventTypeClock:
			timeout, _ := mem.ReadUint64Le(base + 24)
			sess.setState(SessionBlocked)
			sleepBounded(ctx, time.Duration(timeout))
			sess.setState(SessionRunning)

		case eventTypeFDRead:
			fd, _ := mem.ReadUint32Le(base + 16)
			if fd != 0 {
				panic(&unsupportedWASICallError{call: "poll_oneoff: fd_read subscription on non-stdin fd"})
			}

		default:
			panic(&unsupportedWASICallError{call: fmt.Sprintf("poll_oneoff: subscription tag %d", tagByte)})
		}

		eventBase := outPtr + nevents*eventSize
		mem.WriteUint64Le(eventBase, userdata)
		mem.WriteUint32Le(eventBase+8, errnoSuccess) // error(u16) + padding, written as one u32
		mem.WriteByte(eventBase+10, tagByte)
		nevents++
	}

	mem.WriteUint32Le(neventsPtr, nevents)
	sess.consumeFuel()
	stack[0] = uint64(errnoSuccess)
}

// sleepBounded sleeps for d or until ctx is done, whichever comes first, so
// a clock subscription still honors session cancellation and the deadline.
func sleepBounded(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
