package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/format"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/internal/sink/postgres"
)

const (
	statsWindow      = 24 * time.Hour
	statsNoDatabase  = "Statistics need the database sink."
	statsUnavailable = "Statistics are unavailable right now."
)

func (a *App) onStats(c tele.Context) error {
	if a.stats == nil {
		return tghelpers.SendText(c, statsNoDatabase)
	}
	ctx := tghelpers.BuildContext(c)

	byRole, err := a.stats.CountByRole(ctx)
	if err == nil {
		var recent int
		recent, err = a.stats.CountSince(ctx, a.now().Add(-statsWindow))
		if err == nil {
			return tghelpers.SendHTML(c, formatStats(byRole, recent, a.sessions.Len()), nil)
		}
	}

	logger.Error(ctx, "app", "stats", slog.String("status", "fail"), slog.String("err", err.Error()))
	if sendErr := tghelpers.SendText(c, statsUnavailable); sendErr != nil {
		return sendErr
	}
	return fmt.Errorf("stats: %w", err)
}

func formatStats(byRole []postgres.RoleCount, recent, active int) string {
	var b strings.Builder
	b.WriteString(format.Bold("Submissions by role"))
	total := 0
	for _, rc := range byRole {
		fmt.Fprintf(&b, "\n%s: %d", format.EscapeHTML(rc.Role), rc.Count)
		total += rc.Count
	}
	fmt.Fprintf(&b, "\n\nTotal: %d\nLast 24 hours: %d\nOpen dialogues: %d", total, recent, active)
	return b.String()
}
