package handlers

import (
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
)

// HandleCallback обрабатывает нажатия inline-кнопок.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	if update.CallbackQuery == nil {
		return
	}

	query := update.CallbackQuery
	if query.Message == nil {
		log.Printf("HandleCallback: callback %s без исходного сообщения", query.ID)
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	log.Printf("HandleCallback: ChatID=%d, MessageID=%d, Data='%s'", chatID, messageID, data)

	// Телеграм ждет ответ на каждый callback, иначе кнопка "зависает".
	if _, err := bh.Deps.BotClient.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("HandleCallback: ошибка ответа на callback %s: %v", query.ID, err)
	}

	user, userExists := bh.getUserFromDB(chatID)
	if !userExists {
		bh.sendErrorMessageHelper(chatID, messageID, "Пожалуйста, начните с команды /start, чтобы зарегистрироваться.")
		return
	}
	if user.IsBanned {
		bh.sendErrorMessageHelper(chatID, messageID, "Ваш аккаунт заблокирован. Обратитесь к администратору.")
		return
	}
	if system, errSys := db.GetSystemSettings(); errSys == nil && system.MaintenanceMode && !bh.isAdmin(user) {
		bh.sendErrorMessageHelper(chatID, messageID, "🛠 "+system.MaintenanceMessage)
		return
	}

	switch {
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_FUNDING_TYPE):
		bh.handleFundingTypeChosen(user, strings.TrimPrefix(data, constants.CALLBACK_PREFIX_FUNDING_TYPE), messageID)
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_VIEW_REQUEST),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_APPROVE_REQUEST),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_REJECT_REQUEST),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_TOGGLE_GROUP),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_DELETE_GROUP),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_DELETE_CHANNEL),
		strings.HasPrefix(data, constants.CALLBACK_PREFIX_EDIT_SETTING):
		bh.handleAdminCallback(user, data, messageID)
		return
	}

	switch data {
	case "back_to_main":
		bh.Deps.SessionManager.ResetDialog(chatID)
		bh.SendMainMenu(user, messageID)
	case "help":
		bh.SendHelp(chatID)
	case "my_points":
		bh.SendMyPointsMenu(user, messageID)
	case "my_requests":
		bh.SendMyRequestsMenu(user, messageID)
	case "daily_gift":
		bh.HandleDailyGift(user, messageID)
	case "invite":
		bh.SendInviteMenu(user, messageID)
	case "sponsor_channels":
		bh.SendSponsorChannels(user, messageID)
	case "check_subscriptions":
		bh.HandleCheckSubscriptions(user, messageID)
	case "funding_start":
		bh.StartFundingFlow(user, messageID)
	case "funding_confirm":
		bh.handleFundingConfirm(user, messageID)
	case "transfer_start":
		bh.StartTransferFlow(user, messageID)
	case "transfer_confirm":
		bh.handleTransferConfirm(user, messageID)
	default:
		bh.handleAdminCallback(user, data, messageID)
	}
}

// handleAdminCallback обрабатывает кнопки админ-панели.
func (bh *BotHandler) handleAdminCallback(admin models.User, data string, messageID int) {
	chatID := admin.ChatID
	if !bh.isAdmin(admin) {
		log.Printf("handleAdminCallback: chatID %d без прав администратора нажал '%s'", chatID, data)
		bh.SendMainMenu(admin, messageID)
		return
	}

	switch {
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_VIEW_REQUEST):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_VIEW_REQUEST); ok {
			bh.SendRequestCard(chatID, id, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_APPROVE_REQUEST):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_APPROVE_REQUEST); ok {
			bh.handleApproveRequest(admin, id, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_REJECT_REQUEST):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_REJECT_REQUEST); ok {
			bh.handleRejectRequest(admin, id, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_TOGGLE_GROUP):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_TOGGLE_GROUP); ok {
			bh.handleToggleGroup(chatID, id, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_DELETE_GROUP):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_DELETE_GROUP); ok {
			if err := db.DeleteGroupSource(id); err != nil {
				bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось удалить группу.")
				return
			}
			bh.SendAdminGroupsMenu(chatID, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_DELETE_CHANNEL):
		if id, ok := parseCallbackID(data, constants.CALLBACK_PREFIX_DELETE_CHANNEL); ok {
			if err := db.DeleteChannel(id); err != nil {
				bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось удалить канал.")
				return
			}
			bh.SendAdminChannelsMenu(chatID, messageID)
		}
		return
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_EDIT_SETTING):
		key := strings.TrimPrefix(data, constants.CALLBACK_PREFIX_EDIT_SETTING)
		adminData := bh.Deps.SessionManager.GetTempAdmin(chatID)
		adminData.SettingKey = key
		bh.Deps.SessionManager.UpdateTempAdmin(chatID, adminData)
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_EDIT_SETTING,
			"✏️ Введите новое значение настройки «"+key+"»:")
		return
	}

	switch data {
	case "admin_menu":
		bh.Deps.SessionManager.ResetDialog(chatID)
		bh.SendAdminMenu(chatID, messageID)
	case "admin_stats":
		bh.SendAdminStats(chatID, messageID)
	case "admin_requests":
		bh.SendPendingRequestsMenu(chatID, messageID)
	case "admin_groups":
		bh.SendAdminGroupsMenu(chatID, messageID)
	case "admin_channels":
		bh.SendAdminChannelsMenu(chatID, messageID)
	case "admin_settings":
		bh.SendAdminSettingsMenu(chatID, messageID)
	case "admin_users":
		bh.SendAdminUsersMenu(chatID, messageID)
	case "admin_transfers":
		bh.SendAdminTransfersMenu(chatID, messageID)
	case "admin_export":
		bh.generateAndSendExportExcel(chatID, messageID)
	case "admin_add_group":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_ADD_GROUP,
			"➕ Пришлите ссылку на группу-источник (@имя или t.me/имя).\nБот должен состоять в ней.")
	case "admin_add_channel":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_ADD_CHANNEL,
			"➕ Пришлите ссылку на канал обязательной подписки (@имя или t.me/имя).\nБот должен быть добавлен в канал.")
	case "admin_ban":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_BAN_TARGET,
			"⛔ Введите числовой ID пользователя для блокировки:")
	case "admin_unban":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_UNBAN_TARGET,
			"✅ Введите числовой ID пользователя для разблокировки:")
	case "admin_add_points":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_ADD_POINTS,
			"➕ Введите ID пользователя и количество баллов через пробел:")
	case "admin_deduct_points":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_DEDUCT_POINTS,
			"➖ Введите ID пользователя и количество баллов через пробел:")
	case "admin_promote":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_PROMOTE_TARGET,
			"👑 Введите числовой ID пользователя для назначения администратором:")
	case "admin_broadcast":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_BROADCAST_INPUT,
			"📣 Введите текст рассылки. Он будет отправлен всем пользователям:")
	case "admin_maintenance_msg":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_MAINTENANCE_MSG,
			"✏️ Введите текст, который увидят пользователи во время техработ:")
	case "admin_transfer_fee":
		bh.promptAdminInput(chatID, messageID, constants.STATE_ADMIN_TRANSFER_FEE,
			"％ Введите комиссию переводов в процентах (0-100):")
	case "admin_toggle_maintenance":
		bh.handleToggleMaintenance(chatID, messageID)
	case "admin_toggle_transfers":
		bh.handleToggleTransfers(chatID, messageID)
	default:
		log.Printf("handleAdminCallback: неизвестный callback '%s' от chatID %d", data, chatID)
		bh.SendMainMenu(admin, messageID)
	}
}

// handleToggleGroup переключает активность группы-источника.
func (bh *BotHandler) handleToggleGroup(chatID, groupID int64, messageID int) {
	groups, err := db.GetAllGroupSources()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось загрузить группы.")
		return
	}
	for _, g := range groups {
		if g.ID == groupID {
			if errSet := db.SetGroupSourceActive(groupID, !g.IsActive); errSet != nil {
				bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось изменить статус группы.")
				return
			}
			break
		}
	}
	bh.SendAdminGroupsMenu(chatID, messageID)
}

// handleToggleMaintenance переключает режим техработ.
func (bh *BotHandler) handleToggleMaintenance(chatID int64, messageID int) {
	system, err := db.GetSystemSettings()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось загрузить настройки.")
		return
	}
	if errSet := db.SetMaintenanceMode(!system.MaintenanceMode, chatID); errSet != nil {
		bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось переключить режим техработ.")
		return
	}
	bh.SendAdminSettingsMenu(chatID, messageID)
}

// handleToggleTransfers включает или выключает переводы баллов.
func (bh *BotHandler) handleToggleTransfers(chatID int64, messageID int) {
	system, err := db.GetSystemSettings()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось загрузить настройки.")
		return
	}
	if errSet := db.SetTransferEnabled(!system.TransferEnabled, chatID); errSet != nil {
		bh.sendErrorMessageHelper(chatID, messageID, "❌ Не удалось переключить переводы.")
		return
	}
	bh.SendAdminSettingsMenu(chatID, messageID)
}

// parseCallbackID извлекает числовой идентификатор из callback-данных.
func parseCallbackID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		log.Printf("parseCallbackID: некорректный идентификатор в '%s': %v", data, err)
		return 0, false
	}
	return id, true
}
