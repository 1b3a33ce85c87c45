package telegram

import "github.com/go-telegram/bot/models"

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// ConfirmRow creates a yes/no row for destructive actions.
func ConfirmRow(confirmText, confirmData, cancelText, cancelData string) []models.InlineKeyboardButton {
	return ButtonRow(
		InlineButton(confirmText, confirmData),
		InlineButton(cancelText, cancelData),
	)
}
