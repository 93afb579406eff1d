package sink

import (
	"context"
	"time"

	"github.com/m3rciful/leadbot/internal/lead"
)

// AppendObserver records the outcome of every append.
type AppendObserver interface {
	ObserveAppend(sink string, took time.Duration, err error)
}

type instrumented struct {
	next Sink
	name string
	obs  AppendObserver
}

// Instrument reports each append of next to obs. A nil obs returns next unchanged.
func Instrument(next Sink, obs AppendObserver) Sink {
	if obs == nil {
		return next
	}
	return &instrumented{next: next, name: NameOf(next), obs: obs}
}

func (i *instrumented) Name() string { return i.name }

func (i *instrumented) Append(ctx context.Context, sub lead.Submission) error {
	start := time.Now()
	err := i.next.Append(ctx, sub)
	i.obs.ObserveAppend(i.name, time.Since(start), err)
	return err
}
