package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/giftsniper/internal/config"
)

// Sender implements the notifier: best-effort chat delivery. Markdown that
// the API rejects is retried as plain text; a failure after that is logged
// and dropped, never retried by the caller.
type Sender struct {
	bot *bot.Bot
}

func NewSender(b *bot.Bot) *Sender {
	return &Sender{bot: b}
}

func (s *Sender) Notify(ctx context.Context, chatID int64, text string) {
	if len([]rune(text)) > config.MaxTelegramMessageLen {
		text = string([]rune(text)[:config.MaxTelegramMessageLen-3]) + "..."
	}

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	}
	if _, err := s.bot.SendMessage(ctx, params); err != nil {
		slog.Warn("markdown send failed, falling back to plain text",
			"chat_id", chatID, "error", err)
		params.ParseMode = ""
		if _, err := s.bot.SendMessage(ctx, params); err != nil {
			slog.Error("notify failed", "chat_id", chatID, "error", err)
		}
	}
}
