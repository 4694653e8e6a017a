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

// --- Поток создания заявки на накрутку ---
// Шаги: тип цели -> ссылка -> количество участников -> подтверждение.

// StartFundingFlow начинает диалог создания заявки: выбор типа цели.
func (bh *BotHandler) StartFundingFlow(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	settings, err := db.GetPointsSettings()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить тарифы. Попробуйте позже.")
		return
	}

	minMembers := (settings.MinPointsForFunding + settings.PointsPerMember - 1) / settings.PointsPerMember
	if user.Points < settings.MinPointsForFunding {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, fmt.Sprintf(
			"❌ Недостаточно баллов. Минимальная заявка — %s (%d участников), у вас %s.\n\nЗаработайте баллы и возвращайтесь!",
			utils.FormatPoints(settings.MinPointsForFunding), minMembers, utils.FormatPoints(user.Points)))
		return
	}

	bh.Deps.SessionManager.ClearTempFunding(chatID)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_FUNDING_TARGET_TYPE)

	text := fmt.Sprintf("📈 Заказ участников\n\n1 участник = %s\nВаш баланс: %s\n\nКуда добавлять участников?",
		utils.FormatPoints(settings.PointsPerMember), utils.FormatPoints(user.Points))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Канал", constants.CALLBACK_PREFIX_FUNDING_TYPE+constants.TARGET_TYPE_CHANNEL),
			tgbotapi.NewInlineKeyboardButtonData("👥 Группа", constants.CALLBACK_PREFIX_FUNDING_TYPE+constants.TARGET_TYPE_GROUP),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// handleFundingTypeChosen фиксирует тип цели и запрашивает ссылку.
func (bh *BotHandler) handleFundingTypeChosen(user models.User, targetType string, messageIDToEdit int) {
	chatID := user.ChatID
	if targetType != constants.TARGET_TYPE_CHANNEL && targetType != constants.TARGET_TYPE_GROUP {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Некорректный тип цели.")
		return
	}

	data := bh.Deps.SessionManager.GetTempFunding(chatID)
	data.TargetType = targetType
	data.CurrentMessageID = messageIDToEdit
	bh.Deps.SessionManager.UpdateTempFunding(chatID, data)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_FUNDING_CHANNEL_LINK)

	kind := "канал"
	if targetType == constants.TARGET_TYPE_GROUP {
		kind = "группу"
	}
	text := fmt.Sprintf("🔗 Пришлите ссылку на ваш %s (@имя или t.me/имя).\n\n⚠️ Бот должен быть администратором с правом добавления участников.", kind)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// handleFundingChannelLinkInput проверяет ссылку и запрашивает количество участников.
func (bh *BotHandler) handleFundingChannelLinkInput(user models.User, text string) {
	chatID := user.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	channelID, err := utils.ExtractChannelID(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nПришлите ссылку еще раз:")
		return
	}

	info, errResolve := bh.Deps.Gateway.ResolveChat(channelID)
	if errResolve != nil {
		log.Printf("handleFundingChannelLinkInput: не удалось разрешить %s для chatID %d: %v", channelID, chatID, errResolve)
		bh.sendErrorMessageHelper(chatID, menuMsgID,
			"❌ Не удалось найти этот чат. Проверьте ссылку и убедитесь, что бот добавлен в администраторы, затем пришлите ссылку еще раз:")
		return
	}

	data := bh.Deps.SessionManager.GetTempFunding(chatID)
	data.TargetChannel = channelID
	data.TargetTitle = info.Title
	bh.Deps.SessionManager.UpdateTempFunding(chatID, data)
	bh.Deps.SessionManager.SetState(chatID, constants.STATE_FUNDING_MEMBER_COUNT)

	settings, errSettings := db.GetPointsSettings()
	if errSettings != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Не удалось загрузить тарифы. Попробуйте позже.")
		return
	}
	maxAffordable := user.Points / settings.PointsPerMember
	maxAllowed := int64(bh.Deps.Config.MaxMembersPerRequest)
	if maxAllowed > 0 && maxAffordable > maxAllowed {
		maxAffordable = maxAllowed
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, menuMsgID, fmt.Sprintf(
		"✅ Чат найден: %s\n\nСколько участников добавить?\n1 участник = %s, вам доступно до %d.",
		info.Title, utils.FormatPoints(settings.PointsPerMember), maxAffordable), &keyboard, "")
}

// handleFundingMemberCountInput проверяет число и показывает подтверждение.
func (bh *BotHandler) handleFundingMemberCountInput(user models.User, text string) {
	chatID := user.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	count, err := utils.ParsePositiveInt(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите количество участников:")
		return
	}
	if max := bh.Deps.Config.MaxMembersPerRequest; max > 0 && count > max {
		bh.sendErrorMessageHelper(chatID, menuMsgID, fmt.Sprintf(
			"❌ Максимум %d участников в одной заявке. Введите число поменьше:", max))
		return
	}

	settings, errSettings := db.GetPointsSettings()
	if errSettings != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Не удалось загрузить тарифы. Попробуйте позже.")
		return
	}
	cost := int64(count) * settings.PointsPerMember
	if cost < settings.MinPointsForFunding {
		bh.sendErrorMessageHelper(chatID, menuMsgID, fmt.Sprintf(
			"❌ Минимальная заявка — %s. Введите большее количество участников:",
			utils.FormatPoints(settings.MinPointsForFunding)))
		return
	}
	if cost > user.Points {
		bh.sendErrorMessageHelper(chatID, menuMsgID, fmt.Sprintf(
			"❌ Недостаточно баллов: нужно %s, у вас %s. Введите число поменьше:",
			utils.FormatPoints(cost), utils.FormatPoints(user.Points)))
		return
	}

	data := bh.Deps.SessionManager.GetTempFunding(chatID)
	data.RequestedMembers = count
	data.PointsCost = cost
	bh.Deps.SessionManager.UpdateTempFunding(chatID, data)
	bh.Deps.SessionManager.ClearState(chatID)

	text = fmt.Sprintf(`📋 Подтвердите заявку:

Цель: %s (%s)
Участников: %d
Стоимость: %s

Баллы будут списаны сразу и возвращены при отклонении заявки.`,
		data.TargetTitle, data.TargetChannel, count, utils.FormatPoints(cost))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "funding_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, menuMsgID, text, &keyboard, "")
}

// handleFundingConfirm создает заявку с эскроу-списанием и уведомляет админов.
func (bh *BotHandler) handleFundingConfirm(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	data := bh.Deps.SessionManager.GetTempFunding(chatID)
	if data.TargetChannel == "" || data.RequestedMembers <= 0 {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Данные заявки устарели. Начните заново.")
		return
	}

	request, err := db.CreateFundingRequest(chatID, data.TargetChannel, data.TargetType,
		data.RequestedMembers, bh.Deps.Config.MaxMembersPerRequest)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrInsufficientBalance):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Недостаточно баллов для этой заявки.")
		case errors.Is(err, db.ErrInvalidMemberCount):
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Некорректное количество участников.")
		default:
			log.Printf("handleFundingConfirm: ошибка создания заявки для chatID %d: %v", chatID, err)
			bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось создать заявку. Попробуйте позже.")
		}
		return
	}
	bh.Deps.SessionManager.ClearTempFunding(chatID)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои заявки", "my_requests"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, fmt.Sprintf(
		"✅ Заявка #%d создана и ожидает одобрения администратора.\nСписано %s.",
		request.ID, utils.FormatPoints(request.PointsCost)), &keyboard, "")

	bh.notifyAdmins(fmt.Sprintf("🆕 Новая заявка #%d от %s: %s, %s.\nОткройте админ-панель для рассмотрения.",
		request.ID, user.DisplayName(), request.TargetChannel, utils.FormatMembers(request.RequestedMembers)))
}
