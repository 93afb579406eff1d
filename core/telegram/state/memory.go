package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultSweepInterval is how often Run checks for idle sessions.
const DefaultSweepInterval = time.Minute

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryManager is the in-memory Manager implementation.
type MemoryManager[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]entry[T]
	ttl      time.Duration
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[int64]*keyLock
}

// NewMemoryManager constructs an in-memory Manager. A ttl <= 0 disables expiry.
func NewMemoryManager[T any](ttl time.Duration) *MemoryManager[T] {
	return &MemoryManager[T]{
		sessions: make(map[int64]entry[T]),
		locks:    make(map[int64]*keyLock),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryManager[T]) expired(e entry[T], now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.touched) > m.ttl
}

// Get returns the value for id unless it is missing or idle past the TTL.
func (m *MemoryManager[T]) Get(id int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok || m.expired(e, m.now()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Put stores v for id and refreshes its idle timer.
func (m *MemoryManager[T]) Put(id int64, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = entry[T]{value: v, touched: m.now()}
}

// Clear removes the entire session for id.
func (m *MemoryManager[T]) Clear(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// InProgress reports whether id currently has a live session.
func (m *MemoryManager[T]) InProgress(id int64) bool {
	_, ok := m.Get(id)
	return ok
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *MemoryManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock acquires the per-key mutex for id.
func (m *MemoryManager[T]) Lock(id int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

// Sweep deletes sessions idle past the TTL and returns how many were dropped.
func (m *MemoryManager[T]) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *MemoryManager[T]) Run(ctx context.Context, interval time.Duration) error {
	if m.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			if n := m.Sweep(t); n > 0 {
				logger.Debug(ctx, "tg", "fsm.sweep",
					slog.String("status", "ok"),
					slog.Int("count", n),
					slog.Duration("ttl", m.ttl),
				)
			}
		}
	}
}

var _ Manager[struct{}] = (*MemoryManager[struct{}])(nil)
