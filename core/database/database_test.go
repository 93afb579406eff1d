package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStrings(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss word", Name: "leads", SSLMode: "disable"}
	assert.True(t, cfg.Enabled())
	assert.False(t, Config{Host: "  "}.Enabled())
	assert.Equal(t, "user=bot password=p@ss word host=db port=5432 dbname=leads sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/leads?sslmode=disable", cfg.URL())
}

func TestScanMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000010_b.up.sql", "000002_a.up.sql", "000002_a.down.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o700))

	files := scanMigrations(dir)
	require.Len(t, files, 2)
	assert.Equal(t, "000002_a.up.sql", files[0].name)
	assert.Equal(t, uint64(10), files[1].version)

	applied := appliedBetween(files, 2, 10)
	require.Len(t, applied, 1)
	assert.Equal(t, "000010_b.up.sql", applied[0].name)
	assert.Empty(t, appliedBetween(files, 10, 10))
	assert.Nil(t, scanMigrations(filepath.Join(dir, "missing")))
}

func TestMigrationsDirDefault(t *testing.T) {
	dir, err := migrationsDir(Config{})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, DefaultMigrationsDir, filepath.Base(dir))
}

type flakyPinger struct{ failures int }

func (p *flakyPinger) PingContext(context.Context) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	require.NoError(t, WaitReady(context.Background(), p, 10*time.Second))
	assert.Zero(t, p.failures)
}

func TestWaitReadyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitReady(ctx, &flakyPinger{failures: 100}, time.Minute)
	require.Error(t, err)
}
