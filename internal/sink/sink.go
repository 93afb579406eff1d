// Package sink defines the append-only destinations for completed submissions
// and the decorators composed around them.
package sink

import (
	"context"
	"errors"

	"github.com/m3rciful/leadbot/internal/lead"
)

// ErrNotConfigured is returned when no destination is enabled.
var ErrNotConfigured = errors.New("sink: no destination configured")

// Sink appends one submission as a single self-contained write.
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, sub lead.Submission) error
}

// Func adapts a plain function to Sink.
type Func func(ctx context.Context, sub lead.Submission) error

// Append calls f.
func (f Func) Append(ctx context.Context, sub lead.Submission) error {
	return f(ctx, sub)
}

// Named is implemented by sinks that report a label for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the sink label or "sink" when none is set.
func NameOf(s Sink) string {
	if n, ok := s.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return "sink"
}
