package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/giftsniper/internal/config"
	"github.com/set-night/giftsniper/internal/service"
)

// BotLogger mirrors noteworthy events into a Telegram log group, one forum
// topic per event kind. Disabled entirely when no log chat is configured.
type BotLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewBotLogger(b *bot.Bot, cfg *config.Config) *BotLogger {
	return &BotLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError    LogType = "error"
	LogTypePurchase LogType = "purchase"
	LogTypeRefund   LogType = "refund"
	LogTypeAccess   LogType = "access"
)

func (l *BotLogger) Log(logType LogType, message string) {
	if l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *BotLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *BotLogger) LogPurchase(userID int64, giftID string, price int64) {
	msg := fmt.Sprintf("🎁 *Gift Purchased*\n\n*Account:* `%d`\n*Gift:* `%s`\n*Price:* %d ★ (≈ $%s)",
		userID, giftID, price, service.StarsToUSD(price).StringFixed(2))
	l.Log(LogTypePurchase, msg)
}

func (l *BotLogger) LogRefund(userID int64, refunded int64, count int, left int64) {
	msg := fmt.Sprintf("↩️ *Refund Run*\n\n*Account:* `%d`\n*Refunded:* %d ★ in %d txns\n*Left:* %d ★",
		userID, refunded, count, left)
	l.Log(LogTypeRefund, msg)
}

func (l *BotLogger) LogAccess(adminID, userID int64, granted bool) {
	action := "revoked"
	if granted {
		action = "granted"
	}
	msg := fmt.Sprintf("🔑 *Access %s*\n\n*Admin:* `%d`\n*User:* `%d`", action, adminID, userID)
	l.Log(LogTypeAccess, msg)
}

func (l *BotLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypePurchase:
		return l.cfg.LogTopicPurchase
	case LogTypeRefund:
		return l.cfg.LogTopicRefund
	case LogTypeAccess:
		return l.cfg.LogTopicAccess
	default:
		return 0
	}
}
