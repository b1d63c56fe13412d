package host

import (
	"context"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/hostfuncs"
)

// SessionState enumerates the lifecycle states a session moves through
// between start and termination (§4.1): start -> (running <-> yielded /
// blocked)* -> one of the four terminal states.
type SessionState int32

const (
	SessionRunning SessionState = iota
	SessionYielded
	SessionBlocked
	SessionReturned
	SessionTrapped
	SessionCancelled
	SessionTimedOut
)

func (s SessionState) String() string {
	switch s {
	case SessionRunning:
		return "running"
	case SessionYielded:
		return "yielded"
	case SessionBlocked:
		return "blocked"
	case SessionReturned:
		return "returned"
	case SessionTrapped:
		return "trapped"
	case SessionCancelled:
		return "cancelled"
	case SessionTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

func (s SessionState) terminal() bool {
	return s >= SessionReturned
}

// session is one fresh guest instance for the duration of a single
// invocation. Each invocation gets a fresh instance (§4.1): the session
// holds everything scoped to that instance's lifetime — its module, its
// stdio pipes, its fuel budget, and its captured stderr tail — and is
// discarded on termination. Anything a plugin needs to survive across
// sessions must be written through the state Manager instead.
type session struct {
	id       entities.SessionId
	pluginID entities.PluginId
	module   api.Module

	quantum int64
	fuel    int64

	state atomic.Int32

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderr  *hostfuncs.BoundedBuffer
}

func newSession(id entities.SessionId, pluginID entities.PluginId, quantum int64) *session {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	s := &session{
		id:       id,
		pluginID: pluginID,
		quantum:  quantum,
		fuel:     quantum,
		stdinR:   stdinR,
		stdinW:   stdinW,
		stdoutR:  stdoutR,
		stdoutW:  stdoutW,
		stderr:   hostfuncs.NewBoundedBuffer(hostfuncs.DefaultMaxOutputSize),
	}
	s.state.Store(int32(SessionRunning))
	return s
}

func (s *session) setState(st SessionState) { s.state.Store(int32(st)) }
func (s *session) getState() SessionState   { return SessionState(s.state.Load()) }

// consumeFuel charges one unit against the session's fuel quantum; the
// sched_yield, fd_read, fd_write and poll_oneoff handlers call it once each.
// wazero's public API exposes no stable per-instruction counting hook, so
// fuel here is metered at WASI-call granularity (§4.1's honored syscall
// menu) rather than true per-instruction granularity — the documented
// simplification recorded in the grounding ledger. When the quantum is
// exhausted the session yields the Go scheduler via runtime.Gosched so
// other sessions' goroutines progress before this one resumes, then the
// quantum refills. A tight CPU-only loop that never calls one of those four
// functions runs uninterrupted until it returns or the session's wall-clock deadline
// traps it.
func (s *session) consumeFuel() {
	s.fuel--
	if s.fuel > 0 {
		return
	}
	s.fuel = s.quantum
	prior := s.getState()
	s.setState(SessionYielded)
	runtime.Gosched()
	s.setState(prior)
}

// closePipes tears down the session's stdio. Safe to call multiple times.
func (s *session) closePipes() {
	_ = s.stdinR.Close()
	_ = s.stdinW.Close()
	_ = s.stdoutR.Close()
	_ = s.stdoutW.Close()
}

type sessionContextKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

func sessionFromContext(ctx context.Context) (*session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session)
	return s, ok
}
