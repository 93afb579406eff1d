// Package state keeps per-chat session values in memory.
// Values are opaque to the store; entries expire after an idle TTL and
// callers can serialise work per key with Lock.
package state
