package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

const component = "wizard"

// Store keeps sessions keyed by session ID and serialises access per key.
type Store interface {
	Get(id int64) (Session, bool)
	Put(id int64, s Session)
	Clear(id int64)
	// Lock blocks until id is free and returns its release func.
	Lock(id int64) func()
}

// Sink receives completed submissions.
type Sink interface {
	Append(ctx context.Context, sub lead.Submission) error
}

// Observer is notified about transitions and submissions.
type Observer interface {
	Transition(from, to State, kind PromptKind)
	Submitted(role lead.Role, err error)
}

// Inbound is an event addressed to one session.
type Inbound struct {
	SessionID int64
	UserID    int64
	Username  string
	Event     Event
}

// Service drives sessions through the Machine and hands completed records to the Sink.
type Service struct {
	machine  *Machine
	store    Store
	sink     Sink
	observer Observer
	now      func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithObserver attaches an Observer.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service.
func NewService(m *Machine, store Store, sink Sink, opts ...ServiceOption) *Service {
	s := &Service{
		machine: m,
		store:   store,
		sink:    sink,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InProgress reports whether id has an open session.
func (s *Service) InProgress(id int64) bool {
	_, ok := s.store.Get(id)
	return ok
}

// Handle processes one event and returns the prompt to deliver.
// Events for the same session are applied one at a time in arrival order.
func (s *Service) Handle(ctx context.Context, in Inbound) Prompt {
	ctx = logger.WithSession(ctx, in.SessionID)
	unlock := s.store.Lock(in.SessionID)
	defer unlock()

	sess, ok := s.store.Get(in.SessionID)
	if !ok {
		switch in.Event.Kind {
		case EventStart, EventRestart, EventCancel:
			sess = NewSession(in.SessionID)
		default:
			// First contact: open a session and ask the first question.
			sess = NewSession(in.SessionID)
			s.store.Put(in.SessionID, sess)
			logger.Debug(ctx, component, "session.open",
				slog.String("event_kind", in.Event.Kind.String()),
			)
			return s.machine.Prompt(sess)
		}
	}

	from := sess.State
	out := s.machine.Transition(sess, in.Event)
	prompt := out.Prompt

	if out.Emit {
		if err := s.emit(ctx, in, out.Session.Record); err != nil {
			prompt = Prompt{Kind: PromptSinkFailure, State: StateCompleted, Text: s.machine.msgs.SinkFailure}
		}
	}

	if out.End {
		s.store.Clear(in.SessionID)
	} else {
		s.store.Put(in.SessionID, out.Session)
	}

	if s.observer != nil {
		s.observer.Transition(from, out.Session.State, prompt.Kind)
	}
	logger.Debug(ctx, component, "transition",
		slog.String("event_kind", in.Event.Kind.String()),
		slog.String("from", string(from)),
		slog.String("to", string(out.Session.State)),
		slog.Bool("ended", out.End),
	)
	return prompt
}

func (s *Service) emit(ctx context.Context, in Inbound, rec lead.Record) error {
	sub := lead.NewSubmission(in.SessionID, rec, s.now())
	sub.UserID = in.UserID
	sub.Username = in.Username

	start := time.Now()
	err := s.sink.Append(ctx, sub)
	if s.observer != nil {
		s.observer.Submitted(rec.Role, err)
	}
	if err != nil {
		logger.Error(ctx, component, "submission.store",
			slog.String("status", "fail"),
			slog.String("submission_id", sub.ID.String()),
			slog.String("role", rec.Role.String()),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Info(ctx, component, "submission.store",
		slog.String("status", "ok"),
		slog.String("submission_id", sub.ID.String()),
		slog.String("role", rec.Role.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
