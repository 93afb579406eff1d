// Package bootstrap brings up the shared infrastructure in order: the logger,
// then the database connection and its migrations when a database is configured.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/core/logger"
)

// Options select the stage implementations. Nil funcs use the core ones.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// Result holds what the stages opened. DB is nil without a configured database.
type Result struct {
	DB *sqlx.DB
}

func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

type stage struct {
	name string
	run  func(context.Context, *Result) error
}

func (o Options) stages() []stage {
	loggerInit := o.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	stages := []stage{{"logger", func(context.Context, *Result) error { return loggerInit(o.Config) }}}
	if !o.Database.Enabled() {
		return stages
	}

	connect := o.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	migrate := o.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	return append(stages,
		stage{"database", func(ctx context.Context, res *Result) (err error) {
			res.DB, err = connect(ctx, o.Database)
			return err
		}},
		stage{"migrations", func(ctx context.Context, _ *Result) error {
			return migrate(ctx, o.Database)
		}},
	)
}

// Run executes the stages in order. On failure whatever was opened is closed again.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	res := &Result{}
	for _, st := range opts.stages() {
		start := time.Now()
		if err := st.run(ctx, res); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: %s: %w", st.name, err)
		}
		logger.Debug(ctx, "app", "bootstrap."+st.name,
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	if res.DB == nil {
		logger.Info(ctx, "db", "db.skip", slog.String("reason", "database.host not set"))
	}
	return res, nil
}
