package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/internal/lead"
)

type stubSink struct {
	name  string
	mu    sync.Mutex
	calls int
	errs  []error // returned in order; nil once exhausted
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Append(context.Context, lead.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func testSubmission() lead.Submission {
	return lead.NewSubmission(1, lead.Record{Role: lead.RoleOther, Name: "Jane"}, time.Now())
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "sheets", NameOf(&stubSink{name: "sheets"}))
	assert.Equal(t, "sink", NameOf(Func(func(context.Context, lead.Submission) error { return nil })))
}

func TestFanoutRequiresPrimary(t *testing.T) {
	_, err := NewFanout(nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFanoutPrimaryFailureSkipsMirrors(t *testing.T) {
	boom := errors.New("boom")
	primary := &stubSink{name: "sheets", errs: []error{boom}}
	mirror := &stubSink{name: "postgres"}
	f, err := NewFanout(primary, mirror, nil)
	require.NoError(t, err)

	err = f.Append(context.Background(), testSubmission())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "sheets")
	assert.Equal(t, 0, mirror.calls)
}

func TestFanoutMirrorFailureIsNotFatal(t *testing.T) {
	primary := &stubSink{name: "sheets"}
	good := &stubSink{name: "audit"}
	bad := &stubSink{name: "postgres", errs: []error{errors.New("db down")}}
	f, err := NewFanout(primary, bad, good)
	require.NoError(t, err)

	require.NoError(t, f.Append(context.Background(), testSubmission()))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)

	merr := f.mirror(context.Background(), testSubmission())
	assert.Nil(t, merr, "second append succeeds once errors are exhausted")
}

func TestWithRetryDisabled(t *testing.T) {
	s := &stubSink{}
	assert.Same(t, Sink(s), WithRetry(s, RetryOptions{MaxAttempts: 1}))
}

func TestWithRetryRecovers(t *testing.T) {
	s := &stubSink{name: "sheets", errs: []error{errors.New("503"), errors.New("503")}}
	r := WithRetry(s, RetryOptions{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})

	require.NoError(t, r.Append(context.Background(), testSubmission()))
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, "sheets", NameOf(r))
}

func TestWithRetryGivesUp(t *testing.T) {
	last := errors.New("still down")
	s := &stubSink{errs: []error{errors.New("down"), last, errors.New("never reached")}}
	r := WithRetry(s, RetryOptions{MaxAttempts: 2, InitialInterval: time.Millisecond})

	err := r.Append(context.Background(), testSubmission())
	require.ErrorIs(t, err, last)
	assert.Equal(t, 2, s.calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	s := &stubSink{errs: []error{context.Canceled}}
	r := WithRetry(s, RetryOptions{MaxAttempts: 5, InitialInterval: time.Millisecond})

	err := r.Append(context.Background(), testSubmission())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.calls)
}

type appendRecorder struct {
	sinks []string
	errs  []error
}

func (r *appendRecorder) ObserveAppend(sink string, _ time.Duration, err error) {
	r.sinks = append(r.sinks, sink)
	r.errs = append(r.errs, err)
}

func TestInstrument(t *testing.T) {
	boom := errors.New("boom")
	s := &stubSink{name: "postgres", errs: []error{boom}}
	rec := &appendRecorder{}
	in := Instrument(s, rec)

	assert.ErrorIs(t, in.Append(context.Background(), testSubmission()), boom)
	assert.NoError(t, in.Append(context.Background(), testSubmission()))
	assert.Equal(t, []string{"postgres", "postgres"}, rec.sinks)
	assert.Equal(t, []error{boom, nil}, rec.errs)
	assert.Equal(t, "postgres", NameOf(in))

	assert.Same(t, Sink(s), Instrument(s, nil))
}
