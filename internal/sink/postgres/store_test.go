package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/internal/lead"
)

type fakeDB struct {
	query string
	arg   interface{}
	args  []interface{}
	err   error

	roles []RoleCount
	since int
}

func (f *fakeDB) NamedExecContext(_ context.Context, query string, arg interface{}) (sql.Result, error) {
	f.query, f.arg = query, arg
	return nil, f.err
}

func (f *fakeDB) SelectContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	f.query, f.args = query, args
	if f.err != nil {
		return f.err
	}
	*(dest.(*[]RoleCount)) = f.roles
	return nil
}

func (f *fakeDB) GetContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	f.query, f.args = query, args
	if f.err != nil {
		return f.err
	}
	*(dest.(*int)) = f.since
	return nil
}

func TestAppendMapsSubmission(t *testing.T) {
	db := &fakeDB{}
	s := New(db)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	sub := lead.NewSubmission(11, lead.Record{
		Role: lead.RoleApplicant, Name: "Jane", Contact: "j@x.io", Category: "ignored", Details: "Editor",
	}, at)
	sub.UserID = 22
	sub.Username = "jane"

	require.NoError(t, s.Append(context.Background(), sub))
	assert.Equal(t, insertLead, db.query)

	r, ok := db.arg.(row)
	require.True(t, ok)
	assert.Equal(t, sub.ID, r.ID)
	assert.Equal(t, int64(11), r.SessionID)
	assert.Equal(t, int64(22), r.UserID)
	assert.Equal(t, "Applicant", r.Role)
	assert.Empty(t, r.Category)
	assert.Equal(t, "Editor", r.Details)
	assert.Equal(t, at, r.SubmittedAt)
}

func TestAppendWrapsError(t *testing.T) {
	boom := errors.New("connection refused")
	s := New(&fakeDB{err: boom})
	err := s.Append(context.Background(), lead.NewSubmission(1, lead.Record{Role: lead.RoleOther}, time.Now()))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "postgres", s.Name())
}

func TestCountByRole(t *testing.T) {
	db := &fakeDB{roles: []RoleCount{{Role: "Applicant", Count: 2}, {Role: "Client", Count: 5}}}
	got, err := New(db).CountByRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.roles, got)
	assert.Equal(t, countByRole, db.query)
}

func TestCountSince(t *testing.T) {
	db := &fakeDB{since: 3}
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.FixedZone("X", 7200))
	n, err := New(db).CountSince(context.Background(), from)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, db.args, 1)
	assert.Equal(t, from.UTC(), db.args[0])
}
