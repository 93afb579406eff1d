// Package postgres mirrors submissions into the leads table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

const insertLead = `INSERT INTO leads
	(id, session_id, user_id, username, role, name, contact, category, details, submitted_at)
VALUES
	(:id, :session_id, :user_id, :username, :role, :name, :contact, :category, :details, :submitted_at)`

const countByRole = `SELECT role, COUNT(*) AS count FROM leads GROUP BY role ORDER BY role`

const countSince = `SELECT COUNT(*) FROM leads WHERE submitted_at >= $1`

// DB is the subset of *sqlx.DB the store needs.
type DB interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type row struct {
	ID          uuid.UUID `db:"id"`
	SessionID   int64     `db:"session_id"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	Role        string    `db:"role"`
	Name        string    `db:"name"`
	Contact     string    `db:"contact"`
	Category    string    `db:"category"`
	Details     string    `db:"details"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func toRow(sub lead.Submission) row {
	f := sub.Record.Fields()
	return row{
		ID:          sub.ID,
		SessionID:   sub.SessionID,
		UserID:      sub.UserID,
		Username:    sub.Username,
		Role:        f[0],
		Name:        f[1],
		Contact:     f[2],
		Category:    f[3],
		Details:     f[4],
		SubmittedAt: sub.SubmittedAt,
	}
}

// RoleCount is one line of the per-role summary.
type RoleCount struct {
	Role  string `db:"role"`
	Count int    `db:"count"`
}

// Store writes submissions to Postgres.
type Store struct {
	db DB
}

// New wraps an open connection.
func New(db DB) *Store {
	return &Store{db: db}
}

// Name implements sink.Named.
func (s *Store) Name() string { return "postgres" }

// Append inserts the submission; the UUID primary key makes replays fail loudly.
func (s *Store) Append(ctx context.Context, sub lead.Submission) error {
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertLead, toRow(sub)); err != nil {
		return fmt.Errorf("postgres: insert lead: %w", err)
	}
	logger.Debug(ctx, "db", "lead.insert",
		slog.String("status", "ok"),
		slog.String("submission_id", sub.ID.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// CountByRole summarises stored submissions per role.
func (s *Store) CountByRole(ctx context.Context) ([]RoleCount, error) {
	var out []RoleCount
	if err := s.db.SelectContext(ctx, &out, countByRole); err != nil {
		return nil, fmt.Errorf("postgres: count by role: %w", err)
	}
	return out, nil
}

// CountSince returns how many submissions arrived at or after t.
func (s *Store) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countSince, t.UTC()); err != nil {
		return 0, fmt.Errorf("postgres: count since: %w", err)
	}
	return n, nil
}
