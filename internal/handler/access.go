package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *Handler) handleGrantAccess(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.accessCommand(ctx, b, update, true)
}

func (h *Handler) handleRevokeAccess(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.accessCommand(ctx, b, update, false)
}

func (h *Handler) accessCommand(ctx context.Context, b *bot.Bot, update *models.Update, grant bool) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	adminID := update.Message.From.ID

	if !h.cfg.IsAdmin(adminID) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🚫 Команда доступна только администраторам.",
		})
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) != 2 {
		usage := "/grant_access <user_id>"
		if !grant {
			usage = "/revoke_access <user_id>"
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Использование: " + usage,
		})
		return
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Некорректный ID пользователя.",
		})
		return
	}

	if grant {
		err = h.repo.GrantAccess(ctx, userID)
	} else {
		err = h.repo.RevokeAccess(ctx, userID)
	}
	if err != nil {
		slog.Error("access change failed",
			"admin_id", adminID, "user_id", userID, "grant", grant, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🚫 Не удалось изменить доступ.",
		})
		return
	}

	h.botLog.LogAccess(adminID, userID, grant)
	action := "открыт"
	if !grant {
		action = "закрыт"
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      fmt.Sprintf("🔑 Доступ для `%d` %s.", userID, action),
		ParseMode: models.ParseModeMarkdownV1,
	})
}

func (h *Handler) handleListAllowed(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !h.cfg.IsAdmin(update.Message.From.ID) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🚫 Команда доступна только администраторам.",
		})
		return
	}

	ids, err := h.repo.ListAuthorized(ctx)
	if err != nil {
		slog.Error("list allowed users", "error", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 *Разрешённые пользователи:*\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "• `%d`\n", id)
	}
	if len(ids) == 0 {
		sb.WriteString("— список пуст")
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      sb.String(),
		ParseMode: models.ParseModeMarkdownV1,
	})
}
