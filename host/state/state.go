// Package state implements the host's per-plugin key-value state store
// (C4): a partition of opaque byte values per plugin, each key guarded by a
// non-reentrant advisory lock so that concurrent sessions of the same
// plugin cannot lose each other's writes.
package state

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// keyEntry holds one key's committed value plus its lock state. Each waiter
// blocks on its own channel, queued in arrival order. A release closes the
// oldest waiter's channel (ForceUnlockSession closes all of them); a woken
// waiter still competes with any LockKey call arriving at the same moment
// and, if it loses, queues again at the back, so the wake order is not
// strictly FIFO.
type keyEntry struct {
	mu      sync.Mutex
	value   entities.Value
	present bool
	held    bool
	holder  entities.SessionId
	waiters []chan struct{}
}

// pluginState partitions keyEntry instances for one plugin.
type pluginState struct {
	mu   sync.Mutex
	keys map[entities.Key]*keyEntry
}

// Manager is the concurrency-safe store described by C4. The zero value is
// not usable; construct with NewManager.
type Manager struct {
	mu      sync.Mutex
	plugins map[entities.PluginId]*pluginState
}

// NewManager creates an empty state Manager.
func NewManager() *Manager {
	return &Manager{plugins: make(map[entities.PluginId]*pluginState)}
}

func (m *Manager) plugin(id entities.PluginId) *pluginState {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plugins[id]
	if !ok {
		p = &pluginState{keys: make(map[entities.Key]*keyEntry)}
		m.plugins[id] = p
	}
	return p
}

func (p *pluginState) entry(key entities.Key) *keyEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.keys[key]
	if !ok {
		e = &keyEntry{}
		p.keys[key] = e
	}
	return e
}

// LockKey blocks until key is free, then grants it to session and returns
// whatever value is currently committed. Re-entrant acquisition by the
// session already holding the lock is rejected.
func (m *Manager) LockKey(ctx context.Context, plugin entities.PluginId, session entities.SessionId, key entities.Key) (entities.Value, bool, error) {
	e := m.plugin(plugin).entry(key)

	e.mu.Lock()
	for {
		if e.held && e.holder == session {
			e.mu.Unlock()
			return nil, false, &hosterrors.LockRejectedError{Key: key, Reason: "session already holds this lock"}
		}
		if !e.held {
			e.held = true
			e.holder = session
			value, present := e.value, e.present
			e.mu.Unlock()
			return value, present, nil
		}

		wake := make(chan struct{})
		e.waiters = append(e.waiters, wake)
		e.mu.Unlock()

		select {
		case <-wake:
			e.mu.Lock()
		case <-ctx.Done():
			e.mu.Lock()
			signalled := true
			for i, w := range e.waiters {
				if w == wake {
					e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
					signalled = false
					break
				}
			}
			if signalled && !e.held {
				e.wakeOneLocked()
			}
			e.mu.Unlock()
			return nil, false, &hosterrors.LockRejectedError{Key: key, Reason: "context cancelled while waiting for lock"}
		}
	}
}

// wakeOneLocked pops and signals the longest-queued waiter. Callers must hold
// e.mu, and must have already cleared e.held/e.holder.
func (e *keyEntry) wakeOneLocked() {
	if len(e.waiters) == 0 {
		return
	}
	next := e.waiters[0]
	e.waiters = e.waiters[1:]
	close(next)
}

func (e *keyEntry) wakeAllLocked() {
	for _, w := range e.waiters {
		close(w)
	}
	e.waiters = nil
}

// SetKey writes value under key. Permitted only when session holds key's
// lock.
func (m *Manager) SetKey(plugin entities.PluginId, session entities.SessionId, key entities.Key, value entities.Value) error {
	e := m.plugin(plugin).entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.held || e.holder != session {
		return &hosterrors.LockRejectedError{Key: key, Reason: "session does not hold this lock"}
	}
	e.value = value
	e.present = true
	return nil
}

// UnlockKey releases key's lock and wakes exactly one waiter. Permitted
// only when session holds the lock.
func (m *Manager) UnlockKey(plugin entities.PluginId, session entities.SessionId, key entities.Key) error {
	e := m.plugin(plugin).entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.held || e.holder != session {
		return &hosterrors.LockRejectedError{Key: key, Reason: "session does not hold this lock"}
	}
	e.held = false
	e.holder = 0
	e.wakeOneLocked()
	return nil
}

// SetKeyAndUnlock atomically writes value and releases the lock.
func (m *Manager) SetKeyAndUnlock(plugin entities.PluginId, session entities.SessionId, key entities.Key, value entities.Value) error {
	e := m.plugin(plugin).entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.held || e.holder != session {
		return &hosterrors.LockRejectedError{Key: key, Reason: "session does not hold this lock"}
	}
	e.value = value
	e.present = true
	e.held = false
	e.holder = 0
	e.wakeOneLocked()
	return nil
}

// GetKeySnapshot is a lock-free read of whatever value is currently
// committed. It gives no ordering guarantee relative to a concurrent
// locked writer; callers accept that when they choose a snapshot read.
func (m *Manager) GetKeySnapshot(plugin entities.PluginId, key entities.Key) (entities.Value, bool) {
	e := m.plugin(plugin).entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.present
}

// ForceUnlockSession releases every lock plugin's session currently holds,
// waking each key's waiters. The executor calls this on any session
// termination (§4.1) so a trapped or cancelled session never leaves a key
// permanently locked.
func (m *Manager) ForceUnlockSession(plugin entities.PluginId, session entities.SessionId) {
	p := m.plugin(plugin)
	p.mu.Lock()
	entries := make([]*keyEntry, 0, len(p.keys))
	for _, e := range p.keys {
		entries = append(entries, e)
	}
	p.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.held && e.holder == session {
			e.held = false
			e.holder = 0
			e.wakeAllLocked()
		}
		e.mu.Unlock()
	}
}

// DropPlugin discards a plugin's entire state partition, locks included. It
// exists for the init-atomicity rule (§4.1): if a plugin's init session
// traps or returns an error, any state it wrote before failing must not
// persist.
func (m *Manager) DropPlugin(plugin entities.PluginId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plugins, plugin)
}

// snapshotEntry is the serialized shape of one committed key. Lock state is
// intentionally not persisted: a restored snapshot starts with every key
// unlocked, matching the fact that no session from a prior process can ever
// hold a lock in this one.
type snapshotEntry struct {
	Value   entities.Value `json:"value"`
	Present bool           `json:"present"`
}

// Snapshot serializes every plugin's committed key values to an opaque byte
// stream an external persistence layer may write to disk or memory.
func (m *Manager) Snapshot() ([]byte, error) {
	m.mu.Lock()
	pluginIDs := make([]entities.PluginId, 0, len(m.plugins))
	for id := range m.plugins {
		pluginIDs = append(pluginIDs, id)
	}
	m.mu.Unlock()

	out := make(map[entities.PluginId]map[entities.Key]snapshotEntry, len(pluginIDs))
	for _, id := range pluginIDs {
		p := m.plugin(id)
		p.mu.Lock()
		keys := make([]entities.Key, 0, len(p.keys))
		for k := range p.keys {
			keys = append(keys, k)
		}
		p.mu.Unlock()

		entries := make(map[entities.Key]snapshotEntry, len(keys))
		for _, k := range keys {
			value, present := m.GetKeySnapshot(id, k)
			entries[k] = snapshotEntry{Value: value, Present: present}
		}
		out[id] = entries
	}
	return json.Marshal(out)
}

// Restore replaces the Manager's committed values from a prior Snapshot.
// Any locks currently held are left untouched; Restore is meant for
// process startup, before any session has had a chance to lock anything.
func (m *Manager) Restore(data []byte) error {
	var in map[entities.PluginId]map[entities.Key]snapshotEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return &hosterrors.TransportError{Err: err}
	}

	for pluginID, entries := range in {
		p := m.plugin(pluginID)
		for key, se := range entries {
			e := p.entry(key)
			e.mu.Lock()
			e.value = se.Value
			e.present = se.Present
			e.mu.Unlock()
		}
	}
	return nil
}
