package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
	"memberbot/internal/utils"
)

// HandleMessage обрабатывает входящие сообщения от Telegram.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	message := update.Message
	chatID := message.Chat.ID
	userMessageID := message.MessageID
	text := strings.TrimSpace(message.Text)

	log.Printf("HandleMessage: ChatID=%d, UserMessageID=%d, Text='%s'", chatID, userMessageID, text)

	if message.IsCommand() && message.Command() == "start" {
		bh.handleStartCommand(message)
		return
	}

	user, userExists := bh.getUserFromDB(chatID)
	if !userExists {
		bh.sendErrorMessageHelper(chatID, 0, "Пожалуйста, начните с команды /start, чтобы зарегистрироваться.")
		bh.deleteMessageHelper(chatID, userMessageID)
		return
	}
	if user.IsBanned {
		log.Printf("HandleMessage: Пользователь chatID %d заблокирован. Сообщение проигнорировано.", chatID)
		bh.sendErrorMessageHelper(chatID, 0, "Ваш аккаунт заблокирован. Обратитесь к администратору.")
		bh.deleteMessageHelper(chatID, userMessageID)
		return
	}

	// Режим техработ блокирует всех, кроме администраторов.
	if system, errSys := db.GetSystemSettings(); errSys == nil && system.MaintenanceMode && !bh.isAdmin(user) {
		bh.sendErrorMessageHelper(chatID, 0, "🛠 "+system.MaintenanceMessage)
		bh.deleteMessageHelper(chatID, userMessageID)
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "admin":
			if !bh.isAdmin(user) {
				bh.sendErrorMessageHelper(chatID, 0, "Эта команда доступна только администраторам.")
			} else {
				bh.SendAdminMenu(chatID, 0)
			}
		case "help":
			bh.SendHelp(chatID)
		default:
			log.Printf("HandleMessage: Неизвестная команда '%s' от chatID %d", message.Command(), chatID)
			bh.sendErrorMessageHelper(chatID, 0, "Неизвестная команда. Используйте /start.")
		}
		bh.deleteMessageHelper(chatID, userMessageID)
		return
	}

	currentState := bh.Deps.SessionManager.GetState(chatID)
	log.Printf("HandleMessage: Текущее состояние для chatID %d: %s", chatID, currentState)

	switch currentState {
	case constants.STATE_FUNDING_CHANNEL_LINK:
		bh.handleFundingChannelLinkInput(user, text)
	case constants.STATE_FUNDING_MEMBER_COUNT:
		bh.handleFundingMemberCountInput(user, text)
	case constants.STATE_TRANSFER_RECIPIENT:
		bh.handleTransferRecipientInput(user, text)
	case constants.STATE_TRANSFER_AMOUNT:
		bh.handleTransferAmountInput(user, text)
	case constants.STATE_ADMIN_BAN_TARGET,
		constants.STATE_ADMIN_BAN_REASON,
		constants.STATE_ADMIN_UNBAN_TARGET,
		constants.STATE_ADMIN_ADD_POINTS,
		constants.STATE_ADMIN_DEDUCT_POINTS,
		constants.STATE_ADMIN_PROMOTE_TARGET,
		constants.STATE_ADMIN_ADD_GROUP,
		constants.STATE_ADMIN_ADD_CHANNEL,
		constants.STATE_ADMIN_EDIT_SETTING,
		constants.STATE_ADMIN_MAINTENANCE_MSG,
		constants.STATE_ADMIN_BROADCAST_INPUT,
		constants.STATE_ADMIN_TRANSFER_FEE:
		if !bh.isAdmin(user) {
			bh.Deps.SessionManager.ResetDialog(chatID)
			bh.SendMainMenu(user, 0)
		} else {
			bh.handleAdminInput(user, currentState, text)
		}
	default:
		// Вне диалога любой текст возвращает в главное меню.
		bh.SendMainMenu(user, bh.menuMessageID(chatID))
	}
	bh.deleteMessageHelper(chatID, userMessageID)
}

// handleStartCommand регистрирует пользователя и показывает главное меню.
// Параметр /start вида ref_<chatID> фиксирует пригласившего.
func (bh *BotHandler) handleStartCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	var username, firstName, lastName string
	if message.From != nil {
		username = message.From.UserName
		firstName = message.From.FirstName
		lastName = message.From.LastName
	}

	var referrerChatID int64
	payload := strings.TrimSpace(message.CommandArguments())
	if strings.HasPrefix(payload, constants.REFERRAL_START_PREFIX) {
		if id, err := strconv.ParseInt(strings.TrimPrefix(payload, constants.REFERRAL_START_PREFIX), 10, 64); err == nil && id != chatID {
			referrerChatID = id
		}
	}

	user, createdNew, err := db.RegisterUser(chatID, username, firstName, lastName, referrerChatID)
	if err != nil {
		log.Printf("handleStartCommand: ошибка регистрации chatID %d: %v", chatID, err)
		bh.sendErrorMessageHelper(chatID, 0, "❌ Произошла ошибка при обработке ваших данных. Попробуйте еще раз.")
		return
	}
	if user.IsBanned {
		bh.sendErrorMessageHelper(chatID, 0, "Ваш аккаунт заблокирован. Обратитесь к администратору.")
		return
	}

	bh.Deps.SessionManager.ResetDialog(chatID)

	if createdNew && referrerChatID != 0 {
		if settings, errSettings := db.GetPointsSettings(); errSettings == nil {
			bh.notifyReferrer(referrerChatID, user, settings.PointsPerReferral)
		}
	}

	// Ворота обязательной подписки: без подписки на все каналы меню недоступно.
	if missing := bh.checkMandatorySubscriptions(user); len(missing) > 0 {
		bh.SendSubscriptionGate(chatID, 0, missing)
		bh.deleteMessageHelper(chatID, message.MessageID)
		return
	}

	bh.SendMainMenu(user, 0)
	bh.deleteMessageHelper(chatID, message.MessageID)
}

// notifyReferrer уведомляет пригласившего о начисленной награде.
func (bh *BotHandler) notifyReferrer(referrerChatID int64, invited models.User, reward int64) {
	text := fmt.Sprintf("🎉 По вашей ссылке зарегистрировался %s! Вам начислено %s.",
		invited.DisplayName(), utils.FormatPoints(reward))
	bh.sendPlainNotification(referrerChatID, text)
}

// SendHelp показывает справку по боту.
func (bh *BotHandler) SendHelp(chatID int64) {
	settings, err := db.GetPointsSettings()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, 0, "❌ Не удалось загрузить справку. Попробуйте позже.")
		return
	}
	text := fmt.Sprintf(`ℹ️ Как это работает:

1️⃣ Зарабатывайте баллы:
• %s — за каждого друга по вашей ссылке
• %s — ежедневный подарок
• %s — за подписку на каждый канал спонсора

2️⃣ Тратьте баллы на продвижение: 1 участник = %s.
Минимальная заявка — %s.

3️⃣ После одобрения администратором бот начнет добавлять участников в ваш канал или группу.`,
		utils.FormatPoints(settings.PointsPerReferral),
		utils.FormatPoints(settings.DailyGiftPoints),
		utils.FormatPoints(settings.PointsPerChannel),
		utils.FormatPoints(settings.PointsPerMember),
		utils.FormatPoints(settings.MinPointsForFunding))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, bh.menuMessageID(chatID), text, &keyboard, "")
}

// handleAdminInput обрабатывает текстовый ввод в админских состояниях.
func (bh *BotHandler) handleAdminInput(admin models.User, state, text string) {
	chatID := admin.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	switch state {
	case constants.STATE_ADMIN_BAN_TARGET:
		target, err := utils.ParseChatID(text)
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите числовой ID пользователя:")
			return
		}
		adminData := bh.Deps.SessionManager.GetTempAdmin(chatID)
		adminData.TargetChatID = target
		bh.Deps.SessionManager.UpdateTempAdmin(chatID, adminData)
		bh.Deps.SessionManager.SetState(chatID, constants.STATE_ADMIN_BAN_REASON)
		bh.sendOrEditMessageHelper(chatID, menuMsgID, "Укажите причину блокировки:", nil, "")

	case constants.STATE_ADMIN_BAN_REASON:
		adminData := bh.Deps.SessionManager.GetTempAdmin(chatID)
		if err := db.BanUser(adminData.TargetChatID, text); err != nil {
			bh.finishAdminInput(chatID, "❌ Не удалось заблокировать пользователя: "+adminErrorText(err))
			return
		}
		bh.sendPlainNotification(adminData.TargetChatID, "⛔ Ваш аккаунт заблокирован. Причина: "+text)
		bh.finishAdminInput(chatID, fmt.Sprintf("✅ Пользователь %d заблокирован.", adminData.TargetChatID))

	case constants.STATE_ADMIN_UNBAN_TARGET:
		target, err := utils.ParseChatID(text)
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите числовой ID пользователя:")
			return
		}
		if err := db.UnbanUser(target); err != nil {
			bh.finishAdminInput(chatID, "❌ Не удалось разблокировать пользователя: "+adminErrorText(err))
			return
		}
		bh.sendPlainNotification(target, "✅ Ваш аккаунт разблокирован.")
		bh.finishAdminInput(chatID, fmt.Sprintf("✅ Пользователь %d разблокирован.", target))

	case constants.STATE_ADMIN_ADD_POINTS, constants.STATE_ADMIN_DEDUCT_POINTS:
		target, amount, err := parseChatIDAndAmount(text)
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nФормат: <ID пользователя> <количество баллов>")
			return
		}
		if state == constants.STATE_ADMIN_ADD_POINTS {
			err = db.CreditPoints(target, amount)
		} else {
			err = db.DebitPoints(target, amount)
		}
		if err != nil {
			bh.finishAdminInput(chatID, "❌ Операция не выполнена: "+adminErrorText(err))
			return
		}
		verb := "начислено"
		if state == constants.STATE_ADMIN_DEDUCT_POINTS {
			verb = "списано"
		}
		bh.finishAdminInput(chatID, fmt.Sprintf("✅ Пользователю %d %s %s.", target, verb, utils.FormatPoints(amount)))

	case constants.STATE_ADMIN_PROMOTE_TARGET:
		target, err := utils.ParseChatID(text)
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите числовой ID пользователя:")
			return
		}
		if err := db.SetAdmin(target, true); err != nil {
			bh.finishAdminInput(chatID, "❌ Не удалось назначить администратора: "+adminErrorText(err))
			return
		}
		bh.sendPlainNotification(target, "👑 Вам выданы права администратора.")
		bh.finishAdminInput(chatID, fmt.Sprintf("✅ Пользователь %d назначен администратором.", target))

	case constants.STATE_ADMIN_ADD_GROUP:
		bh.handleAdminAddGroupInput(admin, text)

	case constants.STATE_ADMIN_ADD_CHANNEL:
		bh.handleAdminAddChannelInput(admin, text)

	case constants.STATE_ADMIN_EDIT_SETTING:
		adminData := bh.Deps.SessionManager.GetTempAdmin(chatID)
		value, err := utils.ParsePositiveInt(text)
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nВведите новое значение настройки:")
			return
		}
		if err := db.UpdatePointsSetting(adminData.SettingKey, int64(value), chatID); err != nil {
			bh.finishAdminInput(chatID, "❌ Не удалось обновить настройку: "+adminErrorText(err))
			return
		}
		bh.Deps.SessionManager.ClearTempAdmin(chatID)
		bh.Deps.SessionManager.ClearState(chatID)
		bh.SendAdminSettingsMenu(chatID, menuMsgID)

	case constants.STATE_ADMIN_MAINTENANCE_MSG:
		if err := db.SetMaintenanceMessage(text, chatID); err != nil {
			bh.finishAdminInput(chatID, "❌ Не удалось сохранить сообщение: "+adminErrorText(err))
			return
		}
		bh.finishAdminInput(chatID, "✅ Сообщение о техработах обновлено.")

	case constants.STATE_ADMIN_TRANSFER_FEE:
		percent, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ Введите число от 0 до 100:")
			return
		}
		if err := db.SetTransferFeePercent(percent, chatID); err != nil {
			bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error())
			return
		}
		bh.finishAdminInput(chatID, fmt.Sprintf("✅ Комиссия переводов установлена: %d%%.", percent))

	case constants.STATE_ADMIN_BROADCAST_INPUT:
		bh.handleBroadcastInput(admin, text)
	}
}

// finishAdminInput завершает админский диалог и возвращает админ-меню.
func (bh *BotHandler) finishAdminInput(chatID int64, resultText string) {
	bh.Deps.SessionManager.ClearTempAdmin(chatID)
	bh.Deps.SessionManager.ClearState(chatID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, bh.menuMessageID(chatID), resultText, &keyboard, "")
}

// parseChatIDAndAmount разбирает ввод вида "<chatID> <amount>".
func parseChatIDAndAmount(text string) (int64, int64, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ожидалось два числа через пробел")
	}
	target, err := utils.ParseChatID(parts[0])
	if err != nil {
		return 0, 0, err
	}
	amount, err := utils.ParsePositiveInt(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return target, int64(amount), nil
}

// adminErrorText переводит типовые ошибки БД в понятный админу текст.
func adminErrorText(err error) string {
	switch {
	case errors.Is(err, db.ErrUserNotFound):
		return "пользователь не найден"
	case errors.Is(err, db.ErrInsufficientBalance):
		return "у пользователя недостаточно баллов"
	case errors.Is(err, db.ErrInvalidAmount):
		return "некорректная сумма"
	}
	return "внутренняя ошибка, подробности в логах"
}
