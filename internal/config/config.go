// Package config loads the leadbot configuration: the shared core settings
// plus database, spreadsheet, sink and dialogue options.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/internal/sink"
	"github.com/m3rciful/leadbot/internal/sink/sheets"
	"github.com/m3rciful/leadbot/internal/wizard"
)

const (
	// DefaultSessionTTL is how long an idle dialogue is kept.
	DefaultSessionTTL = 30 * time.Minute

	// Button captions used when none are configured.
	DefaultWebsiteLabel = "Our website"
	DefaultRestartLabel = "Start over"
)

// ErrNoSink is returned when neither a spreadsheet nor a database is configured.
var ErrNoSink = errors.New("config: at least one of sheets.spreadsheet_id or database.host is required")

// SinkConfig tunes delivery of completed submissions.
type SinkConfig struct {
	Retry sink.RetryOptions `yaml:"retry"`
}

// WizardConfig holds the dialogue settings.
type WizardConfig struct {
	// SessionTTL is the idle timeout of a dialogue. Unset means DefaultSessionTTL, 0 disables expiry.
	SessionTTL    *time.Duration `yaml:"session_ttl" envconfig:"WIZARD_SESSION_TTL"`
	SweepInterval time.Duration  `yaml:"sweep_interval" envconfig:"WIZARD_SWEEP_INTERVAL"`
	WebsiteURL    string         `yaml:"website_url" envconfig:"WIZARD_WEBSITE_URL"`
	WebsiteLabel  string         `yaml:"website_label" envconfig:"WIZARD_WEBSITE_LABEL"`
	RestartLabel  string         `yaml:"restart_label" envconfig:"WIZARD_RESTART_LABEL"`
	// Images maps a state name (e.g. "get_name") to a photo URL shown with its prompt.
	Images   map[string]string `yaml:"images" ignored:"true"`
	Messages wizard.Messages   `yaml:"messages" ignored:"true"`
}

// TTL returns the effective idle timeout; zero means sessions never expire.
func (w WizardConfig) TTL() time.Duration {
	if w.SessionTTL == nil {
		return DefaultSessionTTL
	}
	return *w.SessionTTL
}

// Config is the complete application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Sheets   sheets.Config       `yaml:"sheets"`
	Sink     SinkConfig          `yaml:"sink"`
	Wizard   WizardConfig        `yaml:"wizard"`
}

// CoreConfig exposes the shared core settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays environment variables and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Sheets.SpreadsheetID = strings.TrimSpace(cfg.Sheets.SpreadsheetID)
	cfg.Database.Host = strings.TrimSpace(cfg.Database.Host)
	if !cfg.Sheets.Enabled() && !cfg.Database.Enabled() {
		return ErrNoSink
	}
	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	}

	if cfg.Sink.Retry.MaxAttempts < 0 {
		return errors.New("config: sink.retry.max_attempts must be >= 0")
	}
	if ttl := cfg.Wizard.SessionTTL; ttl != nil && *ttl < 0 {
		return errors.New("config: wizard.session_ttl must be >= 0")
	}

	cfg.Wizard.WebsiteURL = strings.TrimSpace(cfg.Wizard.WebsiteURL)
	if u := cfg.Wizard.WebsiteURL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return fmt.Errorf("config: wizard.website_url must be an http(s) URL, got %q", u)
	}
	if strings.TrimSpace(cfg.Wizard.WebsiteLabel) == "" {
		cfg.Wizard.WebsiteLabel = DefaultWebsiteLabel
	}
	if strings.TrimSpace(cfg.Wizard.RestartLabel) == "" {
		cfg.Wizard.RestartLabel = DefaultRestartLabel
	}
	for st := range cfg.Wizard.Images {
		if !knownState(st) {
			return fmt.Errorf("config: wizard.images: unknown state %q", st)
		}
	}
	return nil
}

func knownState(name string) bool {
	for _, s := range wizard.States {
		if string(s) == name {
			return true
		}
	}
	return false
}
