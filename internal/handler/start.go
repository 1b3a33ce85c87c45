package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/giftsniper/internal/domain"
	"github.com/set-night/giftsniper/internal/service"
	tg "github.com/set-night/giftsniper/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMenu(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	acc, err := h.accounts.Get(ctx, chatID)
	if err != nil {
		slog.Error("load account for status", "user_id", chatID, "error", err)
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      accountSummary(acc),
		ParseMode: models.ParseModeMarkdownV1,
	})
}

func (h *Handler) handleMainMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	h.sendMenu(ctx, b, callbackChatID(update))
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	chatID := callbackChatID(update)

	text := "ℹ️ *Справка*\n\n" +
		"Бот скупает подарки по вашим профилям, пока активен статус 🟢.\n\n" +
		"• /status — текущее состояние профилей и баланс\n" +
		"• /withdraw\\_all — вернуть звёзды по своим депозитам\n" +
		"• Кнопка 🚦 переключает статус, ♻️ сбрасывает прогресс профилей"
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("⬅️ Меню", "main_menu"))),
	})
}

func (h *Handler) handleToggleActive(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	chatID := callbackChatID(update)

	acc, err := h.accounts.Update(ctx, chatID, func(a *domain.Account) error {
		if !a.Active && a.AllDone() {
			// Nothing left to buy; flipping to active would be a no-op
			// the worker immediately reverts.
			return errAllProfilesDone
		}
		a.Active = !a.Active
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ Все профили завершены. Сначала сбросьте прогресс (♻️).",
		})
		return
	}

	status := "🔴 (неактивен)"
	if acc.Active {
		status = "🟢 (активен)"
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("🚦 Статус изменён на %s.", status),
	})
	h.sendMenu(ctx, b, chatID)
}

func (h *Handler) handleResetProgress(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	chatID := callbackChatID(update)

	// The explicit external reset: the only path that unsets Done.
	if _, err := h.accounts.Update(ctx, chatID, func(a *domain.Account) error {
		for i := range a.Profiles {
			a.Profiles[i].Bought = 0
			a.Profiles[i].Spent = 0
			a.Profiles[i].Done = false
		}
		return nil
	}); err != nil {
		slog.Error("reset progress", "user_id", chatID, "error", err)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "♻️ Прогресс профилей сброшен.",
	})
	h.sendMenu(ctx, b, chatID)
}

func (h *Handler) sendMenu(ctx context.Context, b *bot.Bot, chatID int64) {
	acc, err := h.accounts.Get(ctx, chatID)
	if err != nil {
		slog.Error("load account for menu", "user_id", chatID, "error", err)
		return
	}

	toggleLabel := "🟢 Включить"
	if acc.Active {
		toggleLabel = "🔴 Выключить"
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      accountSummary(acc),
		ParseMode: models.ParseModeMarkdownV1,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(
				tg.InlineButton(toggleLabel, "toggle_active"),
				tg.InlineButton("♻️ Сбросить", "reset_bought"),
			),
			tg.ButtonRow(
				tg.InlineButton("↩️ Вывести звёзды", "withdraw_menu"),
				tg.InlineButton("ℹ️ Help", "show_help"),
			),
		),
	})
}

// accountSummary renders the account state the way the main menu shows it.
func accountSummary(acc *domain.Account) string {
	status := "🔴 Неактивен"
	if acc.Active {
		status = "🟢 Активен"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚦 *Статус:* %s\n", status)
	for i := range acc.Profiles {
		p := &acc.Profiles[i]
		state := ""
		switch {
		case p.Done:
			state = " ✅ *(завершён)*"
		case p.Spent > 0:
			state = " ⚠️ *(частично)*"
		}
		fmt.Fprintf(&b, "\n┌🔘 *Профиль %d*%s\n", i+1, state)
		fmt.Fprintf(&b, "├💰 Цена: %d – %d ★\n", p.MinPrice, p.MaxPrice)
		fmt.Fprintf(&b, "├📦 Саплай: %d – %d\n", p.MinSupply, p.MaxSupply)
		fmt.Fprintf(&b, "├🎁 Куплено: %d / %d\n", p.Bought, p.Count)
		fmt.Fprintf(&b, "├⭐️ Лимит: %d / %d ★\n", p.Spent, p.Limit)
		fmt.Fprintf(&b, "└👤 Получатель: %s\n", recipientLine(p))
	}
	fmt.Fprintf(&b, "\n💰 *Баланс*: %d ★ (≈ $%s)",
		acc.Balance, service.StarsToUSD(acc.Balance).StringFixed(2))
	return b.String()
}

func recipientLine(p *domain.Profile) string {
	switch {
	case p.TargetChatID != nil:
		return fmt.Sprintf("%s (канал)", *p.TargetChatID)
	case p.TargetUserID != nil:
		return fmt.Sprintf("`%d`", *p.TargetUserID)
	default:
		return "—"
	}
}
