package state

import "time"

// Manager stores per-conversation values keyed by a Telegram chat or user ID.
type Manager[T any] interface {
	Get(id int64) (T, bool)
	Put(id int64, v T)
	Clear(id int64)
	// Lock serialises work on one key; the returned func releases it.
	Lock(id int64) func()
	InProgress(id int64) bool
	Len() int
	// Sweep drops entries idle for longer than the configured TTL.
	Sweep(now time.Time) int
}

type entry[T any] struct {
	value   T
	touched time.Time
}
