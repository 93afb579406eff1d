package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestManager(ttl time.Duration) (*MemoryManager[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemoryManager[string](ttl)
	m.now = clock.now
	return m, clock
}

func TestMemoryManagerPutGetClear(t *testing.T) {
	m, _ := newTestManager(0)

	_, ok := m.Get(1)
	assert.False(t, ok)
	assert.False(t, m.InProgress(1))

	m.Put(1, "a")
	v, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.True(t, m.InProgress(1))
	assert.Equal(t, 1, m.Len())

	m.Clear(1)
	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryManagerExpiry(t *testing.T) {
	m, clock := newTestManager(30 * time.Minute)
	m.Put(1, "a")
	m.Put(2, "b")

	clock.t = clock.t.Add(20 * time.Minute)
	m.Put(2, "b2") // refreshes idle timer

	clock.t = clock.t.Add(15 * time.Minute)
	_, ok := m.Get(1)
	assert.False(t, ok, "idle session must look absent")
	v, ok := m.Get(2)
	require.True(t, ok)
	assert.Equal(t, "b2", v)

	assert.Equal(t, 1, m.Sweep(clock.t))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryManagerSweepDisabled(t *testing.T) {
	m, clock := newTestManager(0)
	m.Put(1, "a")
	assert.Equal(t, 0, m.Sweep(clock.t.Add(24*time.Hour)))
	assert.True(t, m.InProgress(1))
}

func TestMemoryManagerLockSerialisesKey(t *testing.T) {
	m := NewMemoryManager[int](0)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := m.Lock(7)
			defer unlock()
			v, _ := m.Get(7)
			m.Put(7, v+1)
		}()
	}
	wg.Wait()

	v, ok := m.Get(7)
	require.True(t, ok)
	assert.Equal(t, workers, v)

	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	assert.Empty(t, m.locks, "released locks must be dropped")
}
