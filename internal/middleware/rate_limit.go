package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/giftsniper/internal/config"
)

// RateLimit returns middleware enforcing a per-user sliding window on the
// listed commands. Everything else passes through untouched.
func RateLimit(commands ...string) bot.Middleware {
	limited := make(map[string]bool, len(commands))
	for _, c := range commands {
		limited[c] = true
	}

	var mu sync.Mutex
	hits := make(map[string][]time.Time)

	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			command, _, _ := strings.Cut(update.Message.Text, " ")
			command, _, _ = strings.Cut(command, "@")
			if !limited[command] {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			key := fmt.Sprintf("%d %s", userID, command)
			now := time.Now()
			cutoff := now.Add(-config.RateLimitWindow)

			mu.Lock()
			window := hits[key][:0]
			for _, ts := range hits[key] {
				if ts.After(cutoff) {
					window = append(window, ts)
				}
			}
			over := len(window) >= config.RateLimitPerWindow
			if !over {
				window = append(window, now)
			}
			hits[key] = window
			mu.Unlock()

			if over {
				slog.Debug("rate limited", "user_id", userID, "command", command)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⏳ Слишком много запросов. Подождите немного.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
