package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/giftsniper/internal/domain"
	tg "github.com/set-night/giftsniper/internal/telegram"
)

var errAllProfilesDone = errors.New("all profiles done")

func (h *Handler) handleWithdrawAll(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendWithdrawPrompt(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleWithdrawMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	h.sendWithdrawPrompt(ctx, b, callbackChatID(update))
}

func (h *Handler) sendWithdrawPrompt(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: "↩️ Вернуть звёзды по всем вашим невозвращённым депозитам?\n" +
			"Бот подберёт комбинацию с максимально возможной суммой.",
		ReplyMarkup: tg.InlineKeyboard(
			tg.ConfirmRow("✅ Да, вернуть", "withdraw_all_confirm", "❌ Отмена", "withdraw_all_cancel"),
		),
	})
}

func (h *Handler) handleWithdrawConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	if update.CallbackQuery == nil {
		return
	}
	chatID := callbackChatID(update)
	username := update.CallbackQuery.From.Username

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Подбираю депозиты для возврата...",
	})

	plan, err := h.matcher.PlanRefund(ctx, chatID, username, func(note string) {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: note})
	})
	if errors.Is(err, domain.ErrNoRefundableDeposits) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "ℹ️ Нет депозитов, доступных для возврата.",
		})
		return
	}
	if err != nil {
		slog.Error("refund run failed", "user_id", chatID, "error", err)
		h.botLog.LogError(err, fmt.Sprintf("withdraw_all for %d", chatID))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🚫 Не удалось выполнить возврат. Попробуйте позже.",
		})
		return
	}

	h.botLog.LogRefund(chatID, plan.Refunded, plan.Count, plan.Left)

	if plan.Empty() && plan.Refunded == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "ℹ️ Нет депозитов, доступных для возврата.",
		})
		return
	}

	text := fmt.Sprintf("✅ Возвращено *%d* ★ (%d транзакций).", plan.Refunded, plan.Count)
	if plan.Left > 0 {
		text += fmt.Sprintf("\n💰 Остаток на балансе: %d ★.", plan.Left)
		if plan.NextDeposit != nil {
			text += fmt.Sprintf(
				"\n💡 Пополните ещё на ★%d — тогда депозит ★%d покроет остаток при следующем выводе.",
				plan.NextDeposit.Amount-plan.Left, plan.NextDeposit.Amount)
		}
	}
	if len(plan.Failures) > 0 {
		text += fmt.Sprintf("\n🚫 Не удалось вернуть %d транзакций.", len(plan.Failures))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
}

func (h *Handler) handleWithdrawCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: callbackChatID(update),
		Text:   "❌ Возврат отменён.",
	})
}
