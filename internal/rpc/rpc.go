// Package rpc implements the line-framed JSON-RPC 2.0 dialect carried over a
// plugin session's stdin/stdout pipes. Either peer may originate a request at
// any time; Conn multiplexes inbound calls to a Handler and correlates
// outbound calls with their eventual response by numeric id.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/walletkit/pluginhost/domain/entities"
)

// Version is the JSON-RPC dialect version stamped on every envelope.
const Version = "2.0"

// envelope is the wire shape shared by requests, notifications, and
// responses. A message carrying a non-empty Method is a request (or, when ID
// is nil, a notification); a message without Method answers one of the
// sender's own earlier requests.
type envelope struct {
	ID      *int64                `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	JSONRPC string                `json:"jsonrpc"`
	Params  json.RawMessage       `json:"params,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *entities.ErrorDetail `json:"error,omitempty"`
}

func (e *envelope) isRequest() bool { return e.Method != "" }

// Handler answers one inbound request from the peer. A nil *entities.ErrorDetail
// return means success, in which case result carries the payload.
type Handler func(ctx context.Context, method string, params json.RawMessage) (result json.RawMessage, errDetail *entities.ErrorDetail)

// FramingError marks a line that did not parse as a JSON-RPC envelope.
// Per the transport design this is fatal to the connection: the session is
// trapped rather than resynchronized, because byte-level framing corruption
// gives no reliable place to resume.
type FramingError struct{ Err error }

func (e *FramingError) Error() string { return fmt.Sprintf("rpc: framing error: %v", e.Err) }
func (e *FramingError) Unwrap() error { return e.Err }

// Conn is one bidirectional, newline-framed JSON-RPC connection. It is safe
// for concurrent use by multiple goroutines issuing Call/Notify; only one
// goroutine should run Serve at a time.
type Conn struct {
	r       *bufio.Reader
	w       io.Writer
	writeMu sync.Mutex

	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan envelope
}

// NewConn wraps a reader/writer pair (typically a session's stdout-from-guest
// reader and stdin-to-guest writer, or their mirror on the guest SDK side)
// in a JSON-RPC Conn.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		r:       bufio.NewReader(r),
		w:       w,
		pending: make(map[int64]chan envelope),
	}
}

// Call sends a request carrying method/params and blocks until the matching
// response arrives or ctx is done. params is marshaled as JSON; pass
// json.RawMessage(nil) for no params.
func (c *Conn) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal params: %w", err)
	}

	id := c.nextID.Add(1)
	ch := make(chan envelope, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(envelope{ID: &id, Method: method, Params: raw}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// Notify sends a one-way message that expects no response.
func (c *Conn) Notify(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc: marshal params: %w", err)
	}
	return c.send(envelope{Method: method, Params: raw})
}

func (c *Conn) send(e envelope) error {
	e.JSONRPC = Version
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rpc: marshal envelope: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.w.Write(data)
	return err
}

// Serve reads and dispatches messages until the underlying reader returns an
// error (io.EOF on a clean guest exit) or ctx is done. Inbound requests are
// answered concurrently via handle so a slow host call cannot starve the
// guest's own response to the outer invocation; handle may itself be nil if
// this peer never accepts inbound requests (a pure caller).
func (c *Conn) Serve(ctx context.Context, handle Handler) error {
	for {
		line, readErr := c.r.ReadBytes('\n')
		if len(line) > 0 {
			var env envelope
			if err := json.Unmarshal(line, &env); err != nil {
				return &FramingError{Err: err}
			}
			c.dispatch(ctx, env, handle)
		}
		if readErr != nil {
			return readErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, env envelope, handle Handler) {
	if !env.isRequest() {
		if env.ID == nil {
			return
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[*env.ID]
		c.pendingMu.Unlock()
		if ok {
			ch <- env
		}
		return
	}

	if env.ID == nil {
		if handle != nil {
			handle(ctx, env.Method, env.Params)
		}
		return
	}

	id := *env.ID
	go func() {
		var result json.RawMessage
		var errDetail *entities.ErrorDetail
		switch {
		case handle == nil:
			errDetail = entities.NewErrorDetail(entities.ErrorKindMethodNotFound, entities.CodeDispatchBase, "no handler registered for inbound calls")
		default:
			result, errDetail = handle(ctx, env.Method, env.Params)
		}
		_ = c.send(envelope{ID: &id, Result: result, Error: errDetail})
	}()
}
