package handlers

import (
	"log"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/db"
	"memberbot/internal/models"
	"memberbot/internal/telegram_api"
	"memberbot/internal/utils"
)

// --- Вспомогательные функции для отправки сообщений и управления сессией ---
// --- Helper functions for sending messages and managing session ---

// Подменяется в тестах.
var timeNow = time.Now

// sendOrEditMessageHelper отправляет или редактирует сообщение и запоминает
// его как главное сообщение чата.
func (bh *BotHandler) sendOrEditMessageHelper(
	chatID int64,
	messageIDToTryEdit int,
	text string,
	keyboard *tgbotapi.InlineKeyboardMarkup,
	parseMode string,
) (tgbotapi.Message, error) {
	sentMsg, err := telegram_api.SendOrEditMessage(bh.Deps.BotClient, chatID, messageIDToTryEdit, text, keyboard, parseMode)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	if sentMsg.MessageID != 0 {
		bh.Deps.SessionManager.SetMenuMessageID(chatID, sentMsg.MessageID)
	}
	return sentMsg, nil
}

// sendErrorMessageHelper отправляет сообщение об ошибке и делает его главным.
func (bh *BotHandler) sendErrorMessageHelper(chatID int64, messageIDToEdit int, errorText string) (tgbotapi.Message, error) {
	sentMsg, err := telegram_api.SendErrorMessage(bh.Deps.BotClient, chatID, messageIDToEdit, errorText)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	if sentMsg.MessageID != 0 {
		bh.Deps.SessionManager.SetMenuMessageID(chatID, sentMsg.MessageID)
	}
	return sentMsg, nil
}

// deleteMessageHelper удаляет сообщение, ошибки только логируются.
func (bh *BotHandler) deleteMessageHelper(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	telegram_api.DeleteMessage(bh.Deps.BotClient, chatID, messageID)
}

// menuMessageID возвращает ID главного сообщения чата (0, если его нет).
func (bh *BotHandler) menuMessageID(chatID int64) int {
	return bh.Deps.SessionManager.GetMenuMessageID(chatID)
}

// sendPlainNotification отправляет уведомление без клавиатуры и без влияния
// на главное сообщение чата.
func (bh *BotHandler) sendPlainNotification(chatID int64, text string) {
	telegram_api.Notify(bh.Deps.BotClient, chatID, text)
}

// notifyAdmins отправляет уведомление всем администраторам и владельцу.
func (bh *BotHandler) notifyAdmins(text string) {
	notified := map[int64]bool{}
	admins, err := db.GetAdmins()
	if err != nil {
		log.Printf("notifyAdmins: ошибка получения списка администраторов: %v", err)
	}
	for _, admin := range admins {
		telegram_api.Notify(bh.Deps.BotClient, admin.ChatID, text)
		notified[admin.ChatID] = true
	}
	if owner := bh.Deps.Config.OwnerChatID; owner != 0 && !notified[owner] {
		telegram_api.Notify(bh.Deps.BotClient, owner, text)
	}
}

// checkMandatorySubscriptions проверяет подписку пользователя на обязательные
// каналы. Возвращает список каналов, на которые пользователь не подписан.
// За каждую новую подписку начисляется разовая награда.
func (bh *BotHandler) checkMandatorySubscriptions(user models.User) []models.Channel {
	channels, err := db.GetMandatoryChannels()
	if err != nil {
		log.Printf("checkMandatorySubscriptions: ошибка получения каналов: %v", err)
		return nil
	}

	settings, errSettings := db.GetPointsSettings()
	if errSettings != nil {
		log.Printf("checkMandatorySubscriptions: ошибка получения тарифов: %v", errSettings)
	}

	var missing []models.Channel
	for _, ch := range channels {
		subscribed, errCheck := bh.Deps.Gateway.IsMember(ch.ChannelID, user.ChatID)
		if errCheck != nil {
			log.Printf("checkMandatorySubscriptions: ошибка проверки подписки %d на %s: %v", user.ChatID, ch.ChannelID, errCheck)
			// При ошибке проверки канал не блокирует пользователя.
			continue
		}
		if !subscribed {
			missing = append(missing, ch)
			continue
		}
		if errSettings == nil && settings.PointsPerChannel > 0 {
			granted, errGrant := db.GrantChannelSubscriptionReward(user.ChatID, ch.ChannelID)
			if errGrant != nil {
				log.Printf("checkMandatorySubscriptions: ошибка начисления награды за подписку %d/%s: %v", user.ChatID, ch.ChannelID, errGrant)
			} else if granted {
				telegram_api.Notify(bh.Deps.BotClient, user.ChatID,
					"🎉 Вам начислено "+utils.FormatPoints(settings.PointsPerChannel)+" за подписку на "+ch.ChannelTitle+"!")
			}
		}
	}
	return missing
}
