// Package cmd runs a configured bot together with its background tasks.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

// DefaultConfigEnvVar names the variable consulted when no --config flag is given.
const DefaultConfigEnvVar = "CONFIG_PATH"

// DefaultConfigPath is used when neither the flag nor the variable is set.
const DefaultConfigPath = "config.yaml"

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// Task is a long-running job started next to the bot.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
	// Tasks returns jobs that live as long as the bot, e.g. a health server.
	Tasks() []Task
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigPath wins over ConfigEnvVar and DefaultConfigPath when set.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath picks the flag value, then the env variable, then the default.
func ResolveConfigPath(flag, envVar, def string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if envVar == "" {
		envVar = DefaultConfigEnvVar
	}
	if p := strings.TrimSpace(os.Getenv(envVar)); p != "" {
		return p
	}
	if def == "" {
		def = DefaultConfigPath
	}
	return def
}

// Run loads configuration, bootstraps the app and runs the bot plus its tasks
// until ctx is cancelled or any of them fails.
func Run(ctx context.Context, opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case opts.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}

	path := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar, opts.DefaultConfigPath)
	log.Printf("config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config %s: %w", path, err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: config is missing core configuration")
	}
	defer flushLogs(opts.ShutdownLogger)

	began := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer closeApp(ctx, app)

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announce(&runOpts, began)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return supervise(ctx, func(ctx context.Context) error { return run(ctx, runOpts) }, app.Tasks())
}

func flushLogs(shutdown func() error) {
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if err := shutdown(); err != nil {
		log.Printf("logger shutdown: %v", err)
	}
}

func closeApp(ctx context.Context, app TelegramApp) {
	if err := app.Close(); err != nil {
		logger.Warn(ctx, "app", "close", slog.String("status", "fail"), slog.String("err", err.Error()))
	}
}

// announce chains the ready and shutdown log lines onto the app's own hooks.
func announce(o *coretelegram.RunOptions, began time.Time) {
	onStart, onStop := o.OnStart, o.OnStop
	o.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.String("status", "ok"), slog.Duration("startup_duration", logger.Took(began)))
		return nil
	}
	o.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}

// supervise runs bot and tasks together. Whichever returns first cancels the rest.
func supervise(ctx context.Context, bot func(context.Context) error, tasks []Task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	start := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			defer cancel()
			if err := fn(gctx); err != nil {
				return fmt.Errorf("cmd: %s: %w", name, err)
			}
			return nil
		})
	}
	start("telegram", bot)
	for _, t := range tasks {
		if t.Run == nil {
			continue
		}
		logger.Debug(ctx, "app", "task.start", slog.String("operation", t.Name))
		start("task "+t.Name, t.Run)
	}
	return g.Wait()
}
