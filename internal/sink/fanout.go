package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

// Fanout writes to a primary sink and mirrors to secondary ones.
// Only the primary result decides success; mirror failures are logged.
type Fanout struct {
	primary Sink
	mirrors []Sink
}

// NewFanout builds a Fanout. It returns ErrNotConfigured when primary is nil.
func NewFanout(primary Sink, mirrors ...Sink) (*Fanout, error) {
	if primary == nil {
		return nil, ErrNotConfigured
	}
	f := &Fanout{primary: primary}
	for _, m := range mirrors {
		if m != nil {
			f.mirrors = append(f.mirrors, m)
		}
	}
	return f, nil
}

// Name implements Named.
func (f *Fanout) Name() string { return "fanout" }

// Append writes to the primary first; mirrors run only after it succeeded.
func (f *Fanout) Append(ctx context.Context, sub lead.Submission) error {
	if err := f.primary.Append(ctx, sub); err != nil {
		return fmt.Errorf("%s: %w", NameOf(f.primary), err)
	}
	if err := f.mirror(ctx, sub); err != nil {
		logger.Warn(ctx, "sink", "mirror.append",
			slog.String("status", "fail"),
			slog.String("submission_id", sub.ID.String()),
			slog.Int("count", len(err.Errors)),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (f *Fanout) mirror(ctx context.Context, sub lead.Submission) *multierror.Error {
	var merr *multierror.Error
	for _, m := range f.mirrors {
		if err := m.Append(ctx, sub); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", NameOf(m), err))
		}
	}
	return merr
}
