package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, h.handleStatus)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/withdraw_all", bot.MatchTypePrefix, h.handleWithdrawAll)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/grant_access", bot.MatchTypePrefix, h.handleGrantAccess)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/revoke_access", bot.MatchTypePrefix, h.handleRevokeAccess)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/list_allowed_users", bot.MatchTypePrefix, h.handleListAllowed)

	// Menu callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "main_menu", bot.MatchTypeExact, h.handleMainMenu)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "show_help", bot.MatchTypeExact, h.handleHelp)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "toggle_active", bot.MatchTypeExact, h.handleToggleActive)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "reset_bought", bot.MatchTypeExact, h.handleResetProgress)

	// Refund callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "withdraw_menu", bot.MatchTypeExact, h.handleWithdrawMenu)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "withdraw_all_confirm", bot.MatchTypeExact, h.handleWithdrawConfirm)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "withdraw_all_cancel", bot.MatchTypeExact, h.handleWithdrawCancel)
}

// answerCallback acknowledges a callback query so the client stops the
// loading spinner.
func (h *Handler) answerCallback(ctx context.Context, update *models.Update) {
	if update.CallbackQuery != nil {
		h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}

func callbackChatID(update *models.Update) int64 {
	if update.CallbackQuery == nil {
		return 0
	}
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID
	}
	return update.CallbackQuery.From.ID
}
