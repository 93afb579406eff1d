// Package telegram composes and runs the telebot runtime shared by bots.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/netutil"
	tgsender "github.com/m3rciful/leadbot/core/telegram/sender"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	// Settings replaces the settings derived from Config when set.
	Settings *tele.Settings

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// Settings derives telebot settings from the core configuration. Handlers run
// synchronously behind an OrderedPoller, one chat at a time.
func Settings(cfg *coreconfig.Config) tele.Settings {
	opts := PollerOptionsFrom(cfg)
	return tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      Ordered(BuildPoller(opts), DefaultUpdateShards),
		Synchronous: true,
		Client:      BuildHTTPClient(time.Duration(opts.LongPollTimeoutSeconds) * time.Second),
		OnError: func(err error, c tele.Context) {
			ctx := context.Background()
			if c != nil {
				ctx = tghelpers.BuildContext(c)
			}
			logger.Error(ctx, "tg", "tg.error",
				slog.String("err", netutil.Redact(err)),
				slog.String("err_code", netutil.Classify(err)),
			)
		},
	}
}

// RunTelegram builds the bot from opts and serves updates until ctx is done.
// OnStart runs once handlers are installed; OnStop runs after the poller stopped.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	settings := Settings(opts.Config)
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	bot, err := newBot(ctx, settings, !opts.DisableWebhookCleanup)
	if err != nil {
		return err
	}

	rt := Runtime{Bot: bot, Registry: opts.Registry, Dispatcher: tgsender.NewDispatcher(opts.DispatcherOptions)}
	tghelpers.SetDispatcher(rt.Dispatcher)
	defer func() {
		rt.Dispatcher.Close()
		tghelpers.SetDispatcher(nil)
		if n := rt.Dispatcher.ErrorCount(); n > 0 {
			logger.Warn(ctx, "tg.wire", "sender.summary", slog.String("status", "fail"), slog.Uint64("count", n))
		}
	}()

	install(bot, opts.Middlewares, opts.Routes)
	if err := SetupCommands(bot, opts.Registry); err != nil {
		logger.Warn(ctx, "tg.wire", "commands.menu",
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
		)
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}
	serve(ctx, bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newBot creates the bot and logs the receive mode. A long-polling bot drops
// any webhook left from an earlier deployment when dropWebhook is set.
func newBot(ctx context.Context, settings tele.Settings, dropWebhook bool) (*tele.Bot, error) {
	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", netutil.RedactErr(err))
	}

	attrs := []slog.Attr{slog.String("username", bot.Me.Username)}
	wh, isWebhook := innerPoller(settings.Poller).(*tele.Webhook)
	if isWebhook {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs, slog.String("mode", coreconfig.RunModeLongpoll))
	}
	logger.Info(ctx, "tg", "mode", append(attrs, slog.Duration("duration", logger.Took(start)))...)

	if !isWebhook && dropWebhook {
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "delete_webhook", slog.String("status", "fail"), slog.String("err", netutil.Redact(err)))
		} else {
			logger.Debug(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
		}
	}
	return bot, nil
}

func install(bot *tele.Bot, mws []Middleware, routes []Route) {
	for _, mw := range mws {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
}

// serve blocks while the bot polls, stopping it when ctx is done.
func serve(ctx context.Context, bot *tele.Bot) {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-stopped
	case <-stopped:
	}
}

// CheckToken calls getMe with the configured token and returns the bot account.
func CheckToken(ctx context.Context, cfg *coreconfig.Config) (*tele.User, error) {
	settings := Settings(cfg)
	settings.Poller = nil
	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		logger.Error(ctx, "tg", "token.check",
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", netutil.Redact(err)),
		)
		return nil, fmt.Errorf("telegram: token check failed: %w", netutil.RedactErr(err))
	}
	logger.Info(ctx, "tg", "token.check",
		slog.String("status", "ok"),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	)
	return bot.Me, nil
}
