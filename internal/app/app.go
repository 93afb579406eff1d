// Package app wires the lead dialogue to Telegram, the sinks and the HTTP endpoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/leadbot/core/bootstrap"
	corecmd "github.com/m3rciful/leadbot/core/cmd"
	"github.com/m3rciful/leadbot/core/httpserver"
	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/core/telegram/state"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/internal/metrics"
	"github.com/m3rciful/leadbot/internal/sink"
	"github.com/m3rciful/leadbot/internal/sink/postgres"
	"github.com/m3rciful/leadbot/internal/sink/sheets"
	"github.com/m3rciful/leadbot/internal/wizard"
)

// Callback keys carried by inline buttons.
const (
	cbRole     = string(wizard.MenuRole)
	cbCategory = string(wizard.MenuCategory)
	cbRestart  = "restart"
)

// StatsSource answers the admin /stats command.
type StatsSource interface {
	CountByRole(ctx context.Context) ([]postgres.RoleCount, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
}

// App is the running lead bot.
type App struct {
	cfg   *config.Config
	infra *bootstrap.Result

	sessions *state.MemoryManager[wizard.Session]
	service  *wizard.Service
	msgs     wizard.Messages
	metrics  *metrics.Metrics
	sink     sink.Sink
	stats    StatsSource
	registry *tg.Registry
	health   *httpserver.Server
	now      func() time.Time
}

// Option customises New.
type Option func(*App)

// WithSink replaces the sinks derived from the configuration.
func WithSink(s sink.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithStats sets the source of the /stats command.
func WithStats(s StatsSource) Option {
	return func(a *App) { a.stats = s }
}

// WithClock overrides the time source used by /stats.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds the app. infra may be nil when no database was bootstrapped.
func New(ctx context.Context, cfg *config.Config, infra *bootstrap.Result, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	a := &App{cfg: cfg, infra: infra, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	a.sessions = state.NewMemoryManager[wizard.Session](cfg.Wizard.TTL())
	a.metrics = metrics.New(a.sessions.Len)

	if a.sink == nil {
		s, store, err := buildSink(ctx, cfg, infra, a.metrics)
		if err != nil {
			return nil, err
		}
		a.sink = s
		if a.stats == nil && store != nil {
			a.stats = store
		}
	}

	machine := wizard.NewMachine(cfg.Wizard.Messages)
	a.msgs = machine.Messages()
	a.service = wizard.NewService(machine, a.sessions, a.sink, wizard.WithObserver(a.metrics))
	reg, err := a.buildRegistry()
	if err != nil {
		return nil, err
	}
	a.registry = reg

	if cfg.Health.Listen != "" {
		srv, err := httpserver.New(httpserver.Options{
			Listen:  cfg.Health.Listen,
			Metrics: a.metrics.Handler(),
			Checks:  a.healthChecks(),
		})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.health = srv
	}

	logger.Info(ctx, "app", "wire",
		slog.String("status", "ok"),
		slog.String("sink", sink.NameOf(a.sink)),
		slog.Bool("stats", a.stats != nil),
		slog.Duration("ttl", cfg.Wizard.TTL()),
	)
	return a, nil
}

// buildSink composes the configured destinations: the spreadsheet is primary
// when enabled, the database mirrors it or takes its place.
func buildSink(ctx context.Context, cfg *config.Config, infra *bootstrap.Result, obs sink.AppendObserver) (sink.Sink, *postgres.Store, error) {
	decorate := func(s sink.Sink) sink.Sink {
		return sink.Instrument(sink.WithRetry(s, cfg.Sink.Retry), obs)
	}

	var outs []sink.Sink
	if cfg.Sheets.Enabled() {
		sh, err := sheets.New(ctx, cfg.Sheets)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		outs = append(outs, decorate(sh))
	}

	var store *postgres.Store
	if infra.DB != nil {
		store = postgres.New(infra.DB)
		outs = append(outs, decorate(store))
	}

	if len(outs) == 0 {
		return nil, nil, fmt.Errorf("app: %w", sink.ErrNotConfigured)
	}
	f, err := sink.NewFanout(outs[0], outs[1:]...)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	return f, store, nil
}

func (a *App) buildRegistry() (*tg.Registry, error) {
	reg := tg.NewRegistry()
	err := errors.Join(
		reg.RegisterCommand("/start", commands.Command{
			Handler:     a.onStart,
			Description: "Start the dialogue",
		}),
		reg.RegisterCommand("/cancel", commands.Command{
			Handler:     a.onCancel,
			Description: "Cancel the dialogue",
			Aliases:     []string{"stop"},
		}),
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     a.onStats,
			Description: "Submission statistics",
			AdminOnly:   true,
		}),
		reg.RegisterCallback(cbRole, a.onSelect),
		reg.RegisterCallback(cbCategory, a.onSelect),
		reg.RegisterCallback(cbRestart, a.onRestart),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return reg, nil
}

func (a *App) healthChecks() map[string]httpserver.Check {
	if a.infra.DB == nil {
		return nil
	}
	return map[string]httpserver.Check{"postgres": a.infra.DB.PingContext}
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, a.onLimited),
		Routes:      router.Routes(a.registry, a, router.CommandRouteOptions{AdminID: core.Telegram.AdminID}),
	}, nil
}

// Tasks implements cmd.TelegramApp: the session janitor and, when enabled, the health server.
func (a *App) Tasks() []corecmd.Task {
	tasks := []corecmd.Task{{
		Name: "sessions",
		Run: func(ctx context.Context) error {
			return a.sessions.Run(ctx, a.cfg.Wizard.SweepInterval)
		},
	}}
	if a.health != nil {
		tasks = append(tasks, corecmd.Task{Name: "health", Run: a.health.Run})
	}
	return tasks
}

// Close releases the bootstrapped infrastructure.
func (a *App) Close() error {
	return a.infra.Close()
}

var _ corecmd.TelegramApp = (*App)(nil)
