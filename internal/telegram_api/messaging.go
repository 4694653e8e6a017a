package telegram_api

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// SendOrEditMessage пытается отредактировать существующее сообщение или отправляет новое.
// Если редактирование не удалось из-за "message is not modified", возвращает "фиктивный"
// Message объект с ID оригинального сообщения и nil в качестве ошибки.
func SendOrEditMessage(
	botClient *BotClient,
	chatID int64,
	messageIDToTryEdit int,
	text string,
	keyboard *tgbotapi.InlineKeyboardMarkup,
	parseMode string,
) (tgbotapi.Message, error) {
	if botClient == nil || botClient.api == nil {
		log.Println("SendOrEditMessage: BotClient или его API не инициализирован.")
		return tgbotapi.Message{}, fmt.Errorf("BotClient не инициализирован")
	}

	// "Фиктивный" объект Message для возврата при успешном редактировании.
	var originalMsgObject tgbotapi.Message
	if messageIDToTryEdit != 0 {
		var chatObj tgbotapi.Chat
		chatObj.ID = chatID
		originalMsgObject.Chat = chatObj
		originalMsgObject.MessageID = messageIDToTryEdit
		originalMsgObject.Text = text
		if keyboard != nil {
			originalMsgObject.ReplyMarkup = keyboard
		}
	}

	if messageIDToTryEdit != 0 {
		var editMsgConfig tgbotapi.EditMessageTextConfig
		if keyboard != nil {
			editMsgConfig = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageIDToTryEdit, text, *keyboard)
		} else {
			editMsgConfig = tgbotapi.NewEditMessageText(chatID, messageIDToTryEdit, text)
		}
		if parseMode != "" {
			editMsgConfig.ParseMode = parseMode
		}

		_, err := botClient.Request(editMsgConfig)
		if err == nil {
			return originalMsgObject, nil
		}

		// "message is not modified" — контент не изменился, не ошибка.
		if strings.Contains(err.Error(), "message is not modified") {
			return originalMsgObject, nil
		}

		if strings.Contains(err.Error(), "message to edit not found") {
			log.Printf("SendOrEditMessage: сообщение %d для chatID %d не найдено, будет отправлено новое.", messageIDToTryEdit, chatID)
		} else {
			log.Printf("SendOrEditMessage: ошибка редактирования сообщения chatID=%d, MessageID=%d: %v. Будет отправлено новое.", chatID, messageIDToTryEdit, err)
		}
	}

	newMsg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		newMsg.ReplyMarkup = keyboard
	}
	if parseMode != "" {
		newMsg.ParseMode = parseMode
	}

	actualSentMsg, err := botClient.Send(newMsg)
	if err != nil {
		log.Printf("SendOrEditMessage: ОШИБКА отправки нового сообщения для chatID %d: %v", chatID, err)
		return tgbotapi.Message{}, err
	}
	return actualSentMsg, nil
}

// SendErrorMessage отправляет стандартизированное сообщение об ошибке пользователю.
func SendErrorMessage(
	botClient *BotClient,
	chatID int64,
	messageIDToTryEdit int,
	errorText string,
) (tgbotapi.Message, error) {
	log.Printf("Отправка сообщения об ошибке для chatID %d: %s", chatID, errorText)
	if botClient == nil || botClient.api == nil {
		log.Println("SendErrorMessage: BotClient или его API не инициализирован.")
		return tgbotapi.Message{}, fmt.Errorf("BotClient не инициализирован")
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	return SendOrEditMessage(botClient, chatID, messageIDToTryEdit, errorText, &keyboard, tgbotapi.ModeMarkdown)
}

// Notify отправляет уведомление без форматирования. Ошибка только логируется:
// уведомления (воркер, админ-алерты) не должны ронять бизнес-операцию.
func Notify(botClient *BotClient, chatID int64, text string) {
	if botClient == nil || botClient.api == nil {
		log.Println("Notify: BotClient или его API не инициализирован.")
		return
	}
	if _, err := botClient.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Notify: ошибка отправки уведомления chatID %d: %v", chatID, err)
	}
}

// DeleteMessage удаляет сообщение.
func DeleteMessage(botClient *BotClient, chatID int64, messageID int) bool {
	if botClient == nil || botClient.api == nil {
		log.Println("DeleteMessage: BotClient или его API не инициализирован.")
		return false
	}
	if messageID == 0 {
		return false
	}

	response, err := botClient.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil {
		log.Printf("DeleteMessage: ChatID=%d, MessageID=%d, ошибка: %v", chatID, messageID, err)
		return false
	}
	if !response.Ok {
		if response.Description != "Bad Request: message to delete not found" &&
			response.Description != "Bad Request: message can't be deleted" &&
			!strings.Contains(response.Description, "MESSAGE_ID_INVALID") {
			log.Printf("DeleteMessage: Telegram API не смог удалить сообщение %d для chatID %d: %s (ErrorCode: %d)", messageID, chatID, response.Description, response.ErrorCode)
		}
		return false
	}
	return true
}
