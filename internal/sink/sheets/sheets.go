// Package sheets appends submissions as rows of a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/lead"
)

const (
	valueInputRaw  = "RAW"
	insertRows     = "INSERT_ROWS"
	defaultRange   = "Sheet1"
	defaultTimeout = 10 * time.Second
)

// Config selects the target spreadsheet and service account credentials.
type Config struct {
	SpreadsheetID   string        `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	Range           string        `yaml:"range" envconfig:"SHEETS_RANGE"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
	CredentialsJSON string        `yaml:"-" envconfig:"SHEETS_CREDENTIALS_JSON"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"SHEETS_TIMEOUT"`
}

// Enabled reports whether a spreadsheet is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SpreadsheetID) != ""
}

// Sink writes one row per submission: role, name, contact, category, details.
type Sink struct {
	values  *gsheets.SpreadsheetsValuesService
	id      string
	rng     string
	timeout time.Duration
}

// New connects to the Sheets API. Extra client options are applied after the
// credentials derived from cfg, so tests can point the client at a fake server.
func New(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Sink, error) {
	if !cfg.Enabled() {
		return nil, errors.New("sheets: spreadsheet_id is required")
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = defaultRange
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger.Info(ctx, "sink", "sheets.ready",
		slog.String("status", "ok"),
		slog.String("spreadsheet_id", cfg.SpreadsheetID),
		slog.String("range", rng),
	)
	return &Sink{values: svc.Spreadsheets.Values, id: cfg.SpreadsheetID, rng: rng, timeout: timeout}, nil
}

// Name implements sink.Named.
func (s *Sink) Name() string { return "sheets" }

// Append adds the record as a new row below the existing table.
func (s *Sink) Append(ctx context.Context, sub lead.Submission) error {
	fields := sub.Record.Fields()
	row := make([]interface{}, len(fields))
	for i, f := range fields {
		row[i] = f
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.values.Append(s.id, s.rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append row: %w", err)
	}
	return nil
}
