package handlers

import (
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
	"memberbot/internal/utils"
)

// --- Поток перевода баллов ---
// Шаги: получатель -> сумма -> подтверждение.

// StartTransferFlow начинает диалог перевода баллов.
func (bh *BotHandler) StartTransferFlow(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	system, err := db.GetSystemSettings()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить настройки. Попробуйте позже.")
		return
	}
	if !system.TransferEnabled {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Переводы баллов временно отключены.")
		return
	}

	bh.Deps.SessionManager.ClearTempTransfer(chatID)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_TRANSFER_RECIPIENT)

	text := fmt.Sprintf("💸 Перевод баллов\n\nВаш баланс: %s\nКомиссия: %d%% (платит отправитель)\n\nВведите ID получателя.\nПолучатель может узнать свой ID в меню «Мои баллы».",
		utils.FormatPoints(user.Points), system.TransferFeePercent)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// handleTransferRecipientInput проверяет получателя и запрашивает сумму.
func (bh *BotHandler) handleTransferRecipientInput(user models.User, text string) {
	chatID := user.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	recipientID, err := utils.ParseChatID(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите числовой ID получателя:")
		return
	}
	if recipientID == chatID {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Нельзя перевести баллы самому себе. Введите другой ID:")
		return
	}
	recipient, errGet := db.GetUserByChatID(recipientID)
	if errGet != nil {
		if errors.Is(errGet, db.ErrUserNotFound) {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Пользователь с таким ID не найден. Введите ID еще раз:")
		} else {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Не удалось проверить получателя. Попробуйте позже.")
		}
		return
	}

	data := bh.Deps.SessionManager.GetTempTransfer(chatID)
	data.RecipientChatID = recipientID
	bh.Deps.SessionManager.UpdateTempTransfer(chatID, data)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_TRANSFER_AMOUNT)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, menuMsgID, fmt.Sprintf(
		"Получатель: %s\n\nВведите сумму перевода (у вас %s):",
		recipient.DisplayName(), utils.FormatPoints(user.Points)), &keyboard, "")
}

// handleTransferAmountInput проверяет сумму и показывает подтверждение.
func (bh *BotHandler) handleTransferAmountInput(user models.User, text string) {
	chatID := user.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	amountInt, err := utils.ParsePositiveInt(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите сумму перевода:")
		return
	}
	amount := int64(amountInt)

	system, errSys := db.GetSystemSettings()
	if errSys != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Не удалось загрузить настройки. Попробуйте позже.")
		return
	}
	fee := db.ComputeTransferFee(amount, system.TransferFeePercent)
	if amount+fee > user.Points {
		bh.sendErrorMessageHelper(chatID, menuMsgID, fmt.Sprintf(
			"❌ Недостаточно баллов: с комиссией нужно %s, у вас %s. Введите сумму поменьше:",
			utils.FormatPoints(amount+fee), utils.FormatPoints(user.Points)))
		return
	}

	data := bh.Deps.SessionManager.GetTempTransfer(chatID)
	data.Amount = amount
	bh.Deps.SessionManager.UpdateTempTransfer(chatID, data)
	bh.Deps.SessionManager.ClearState(chatID)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "transfer_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, menuMsgID, fmt.Sprintf(
		"💸 Подтвердите перевод:\n\nПолучатель: %d\nСумма: %s\nКомиссия: %s\nИтого к списанию: %s",
		data.RecipientChatID, utils.FormatPoints(amount),
		utils.FormatPoints(fee), utils.FormatPoints(amount+fee)), &keyboard, "")
}

// handleTransferConfirm выполняет перевод.
func (bh *BotHandler) handleTransferConfirm(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	data := bh.Deps.SessionManager.GetTempTransfer(chatID)
	if data.RecipientChatID == 0 || data.Amount <= 0 {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Данные перевода устарели. Начните заново.")
		return
	}

	transfer, err := db.TransferPoints(chatID, data.RecipientChatID, data.Amount)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrInsufficientBalance):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Недостаточно баллов для перевода с учетом комиссии.")
		case errors.Is(err, db.ErrTransferDisabled):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Переводы баллов временно отключены.")
		case errors.Is(err, db.ErrUserNotFound):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Получатель не найден.")
		case errors.Is(err, db.ErrSelfTransfer):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Нельзя перевести баллы самому себе.")
		default:
			log.Printf("handleTransferConfirm: ошибка перевода %d -> %d: %v", chatID, data.RecipientChatID, err)
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось выполнить перевод. Попробуйте позже.")
		}
		return
	}
	bh.Deps.SessionManager.ClearTempTransfer(chatID)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, fmt.Sprintf(
		"✅ Перевод выполнен!\nПолучатель: %d\nСумма: %s (комиссия %s)",
		transfer.ToChatID, utils.FormatPoints(transfer.Amount), utils.FormatPoints(transfer.FeeAmount)), &keyboard, "")

	bh.sendPlainNotification(transfer.ToChatID, fmt.Sprintf(
		"💰 Вам перевели %s от пользователя %s!", utils.FormatPoints(transfer.Amount), user.DisplayName()))
}
