package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m3rciful/leadbot/core/bootstrap"
	"github.com/m3rciful/leadbot/core/buildinfo"
	corecmd "github.com/m3rciful/leadbot/core/cmd"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/core/logger"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/internal/app"
	"github.com/m3rciful/leadbot/internal/config"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "leadbot",
		Short:         "Telegram bot that collects leads into a spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"path to the YAML config (default $"+corecmd.DefaultConfigEnvVar+" or "+corecmd.DefaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bot (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runBot(cmd.Context(), flags)
			},
		},
		newCheckTokenCmd(flags),
		newMigrateCmd(flags),
		newVersionCmd(),
	)
	return root
}

func runBot(ctx context.Context, flags *rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return corecmd.Run(ctx, corecmd.Options{
		ConfigPath: flags.configPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: bootstrapApp,
	})
}

func bootstrapApp(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// loadWithLogger loads the config and starts the logger for one-shot commands.
func loadWithLogger(flags *rootFlags) (*config.Config, func(), error) {
	path := corecmd.ResolveConfigPath(flags.configPath, "", "")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return nil, nil, err
	}
	return cfg, func() { _ = logger.Shutdown() }, nil
}

func newCheckTokenCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-token",
		Short: "Validate the bot token with getMe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := loadWithLogger(flags)
			if err != nil {
				return err
			}
			defer done()

			me, err := coretelegram.CheckToken(cmd.Context(), cfg.CoreConfig())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token ok: @%s (id %d)\n", me.Username, me.ID)
			return nil
		},
	}
}

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := loadWithLogger(flags)
			if err != nil {
				return err
			}
			defer done()

			if !cfg.Database.Enabled() {
				return fmt.Errorf("database.host is not configured")
			}
			if err := coredatabase.RunMigrations(cmd.Context(), cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "leadbot", buildinfo.String())
		},
	}
}
