package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bookshelf/internal/notify"
)

// onReadingLogged congratulates the reader once per period for every goal that reached its target
func (b *Bot) onReadingLogged(ctx context.Context, ev notify.Event) {
	chatID, err := strconv.ParseInt(ev.UserID, 10, 64)
	if err != nil {
		return
	}

	goals, err := b.library.ListGoals(ctx, ev.UserID, true)
	if err != nil {
		b.logger.Warn("Failed to check goals after reading", zap.String("user_id", ev.UserID), zap.Error(err))
		return
	}

	now := b.display.Now().In(b.display.Location)
	for _, g := range goals {
		if g.Progress.Percentage < 100 {
			continue
		}
		window, ok := b.display.Resolver.Resolve(g.Goal.Period, now)
		if !ok || !b.markAnnounced(g.Goal.ID, window.From) {
			continue
		}
		b.reply(chatID, fmt.Sprintf("🎉 Goal reached: %s\n%d/%d %s this %s period!",
			g.Goal.Title, g.Progress.Progress, g.Goal.TargetValue, g.Goal.Type, g.Goal.Period))
	}
}

// markAnnounced records the announcement and reports whether it is the first one in the period
func (b *Bot) markAnnounced(goalID string, periodStart time.Time) bool {
	b.announcedMu.Lock()
	defer b.announcedMu.Unlock()

	if last, ok := b.announced[goalID]; ok && last.Equal(periodStart) {
		return false
	}
	b.announced[goalID] = periodStart
	return true
}
