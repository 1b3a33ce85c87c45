package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AccessChecker reports whether a principal may use the bot at all.
type AccessChecker interface {
	IsAllowed(ctx context.Context, userID int64) (bool, error)
}

// AccessControl returns middleware that drops updates from anyone outside
// the allow list. Admins always pass: otherwise a revoked owner could lock
// themselves out of /grant_access.
func AccessControl(checker AccessChecker, isAdmin func(int64) bool) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			userID := updateUserID(update)
			if userID == 0 {
				return
			}

			if isAdmin(userID) {
				next(ctx, b, update)
				return
			}

			allowed, err := checker.IsAllowed(ctx, userID)
			if err != nil {
				slog.Error("access check failed", "user_id", userID, "error", err)
				return
			}
			if !allowed {
				slog.Debug("update dropped, user not allowed", "user_id", userID)
				return
			}

			next(ctx, b, update)
		}
	}
}

func updateUserID(update *models.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}
