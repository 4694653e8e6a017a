package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
	"memberbot/internal/utils"
)

// SendAdminMenu показывает главное меню админ-панели.
func (bh *BotHandler) SendAdminMenu(chatID int64, messageIDToEdit int) {
	pending, err := db.GetRequestsByStatus(constants.REQUEST_STATUS_PENDING, 100)
	if err != nil {
		log.Printf("SendAdminMenu: ошибка подсчета заявок: %v", err)
	}

	text := fmt.Sprintf("🛠 Админ-панель\n\nЗаявок на рассмотрении: %d", len(pending))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📨 Заявки", "admin_requests"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin_stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Группы-источники", "admin_groups"),
			tgbotapi.NewInlineKeyboardButtonData("📢 Каналы", "admin_channels"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Настройки", "admin_settings"),
			tgbotapi.NewInlineKeyboardButtonData("👤 Пользователи", "admin_users"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", "admin_broadcast"),
			tgbotapi.NewInlineKeyboardButtonData("💳 Переводы", "admin_transfers"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Экспорт в Excel", "admin_export"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// SendAdminStats показывает агрегированную статистику.
func (bh *BotHandler) SendAdminStats(chatID int64, messageIDToEdit int) {
	stats, err := db.GetStats()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить статистику.")
		return
	}

	text := fmt.Sprintf(`📊 Статистика

👤 Пользователей: %d (заблокировано %d)
💰 Баллов в системе: %d

📨 Заявок всего: %d
⏳ На рассмотрении: %d
🔄 Выполняются: %d
✅ Выполнено: %d

💸 Переводов: %d (комиссий собрано: %d)
👥 Активных групп-источников: %d`,
		stats.TotalUsers, stats.BannedUsers, stats.TotalPoints,
		stats.TotalRequests, stats.PendingRequests, stats.ApprovedRequests, stats.CompletedRequests,
		stats.TotalTransfers, stats.TotalFees, stats.ActiveGroups)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// SendPendingRequestsMenu показывает список заявок на рассмотрении.
func (bh *BotHandler) SendPendingRequestsMenu(chatID int64, messageIDToEdit int) {
	requests, err := db.GetRequestsByStatus(constants.REQUEST_STATUS_PENDING, 10)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить заявки.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	text := "📨 Заявки на рассмотрении:"
	if len(requests) == 0 {
		text = "📨 Нет заявок на рассмотрении."
	}
	for _, r := range requests {
		label := fmt.Sprintf("#%d: %s, %s", r.ID, r.TargetChannel, utils.FormatMembers(r.RequestedMembers))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_VIEW_REQUEST, r.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// SendRequestCard показывает карточку заявки с кнопками решения.
func (bh *BotHandler) SendRequestCard(chatID int64, requestID int64, messageIDToEdit int) {
	request, err := db.GetFundingRequestByID(requestID)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Заявка не найдена.")
		return
	}

	text := utils.FormatFundingRequest(request) + fmt.Sprintf("\nЗаказчик: %d", request.UserChatID)
	var rows [][]tgbotapi.InlineKeyboardButton
	if request.Status == constants.REQUEST_STATUS_PENDING {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_APPROVE_REQUEST, requestID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_REJECT_REQUEST, requestID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 К заявкам", "admin_requests"),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// handleApproveRequest одобряет заявку и уведомляет заказчика.
func (bh *BotHandler) handleApproveRequest(admin models.User, requestID int64, messageIDToEdit int) {
	request, err := db.ApproveFundingRequest(requestID, admin.ChatID)
	if err != nil {
		bh.sendRequestDecisionError(admin.ChatID, requestID, messageIDToEdit, err)
		return
	}
	bh.sendPlainNotification(request.UserChatID, fmt.Sprintf(
		"✅ Ваша заявка #%d одобрена! Добавление участников начнется в ближайшее время.", request.ID))
	bh.SendPendingRequestsMenu(admin.ChatID, messageIDToEdit)
}

// handleRejectRequest отклоняет заявку с возвратом баллов.
func (bh *BotHandler) handleRejectRequest(admin models.User, requestID int64, messageIDToEdit int) {
	request, err := db.RejectFundingRequest(requestID, admin.ChatID)
	if err != nil {
		bh.sendRequestDecisionError(admin.ChatID, requestID, messageIDToEdit, err)
		return
	}
	bh.sendPlainNotification(request.UserChatID, fmt.Sprintf(
		"❌ Ваша заявка #%d отклонена. Баллы (%s) возвращены на баланс.",
		request.ID, utils.FormatPoints(request.PointsCost)))
	bh.SendPendingRequestsMenu(admin.ChatID, messageIDToEdit)
}

func (bh *BotHandler) sendRequestDecisionError(chatID, requestID int64, messageIDToEdit int, err error) {
	switch {
	case errors.Is(err, db.ErrRequestNotFound):
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Заявка не найдена.")
	case errors.Is(err, db.ErrInvalidTransition):
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Заявка уже рассмотрена другим администратором.")
	default:
		log.Printf("Ошибка решения по заявке #%d: %v", requestID, err)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось обработать заявку. Попробуйте позже.")
	}
}

// SendAdminGroupsMenu показывает группы-источники с кнопками управления.
func (bh *BotHandler) SendAdminGroupsMenu(chatID int64, messageIDToEdit int) {
	groups, err := db.GetAllGroupSources()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить группы.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Группы-источники участников:\n")
	if len(groups) == 0 {
		sb.WriteString("\nСписок пуст. Добавьте первую группу.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		mark := "🟢"
		if !g.IsActive {
			mark = "🔴"
		}
		sb.WriteString(fmt.Sprintf("\n%s #%d %s (%s), ~%d участников", mark, g.ID, g.GroupTitle, g.GroupID, g.MemberCount))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d", mark, g.ID),
				fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_TOGGLE_GROUP, g.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить",
				fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_DELETE_GROUP, g.ID)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить группу", "admin_add_group"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// handleAdminAddGroupInput добавляет группу-источник по ссылке.
func (bh *BotHandler) handleAdminAddGroupInput(admin models.User, text string) {
	chatID := admin.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	groupID, err := utils.ExtractChannelID(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nПришлите ссылку на группу еще раз:")
		return
	}
	info, errResolve := bh.Deps.Gateway.ResolveChat(groupID)
	if errResolve != nil {
		log.Printf("handleAdminAddGroupInput: не удалось разрешить %s: %v", groupID, errResolve)
		bh.sendErrorMessageHelper(chatID, menuMsgID,
			"❌ Не удалось найти группу. Убедитесь, что бот состоит в ней, и пришлите ссылку еще раз:")
		return
	}

	group, errAdd := db.AddGroupSource(groupID, info.Title, chatID)
	if errAdd != nil {
		bh.finishAdminInput(chatID, "❌ Не удалось добавить группу: "+adminErrorText(errAdd))
		return
	}
	if info.MemberCount > 0 {
		db.UpdateGroupSourceMemberCount(group.ID, info.MemberCount)
	}
	bh.Deps.SessionManager.ClearState(chatID)
	bh.SendAdminGroupsMenu(chatID, menuMsgID)
}

// SendAdminChannelsMenu показывает каналы обязательной подписки.
func (bh *BotHandler) SendAdminChannelsMenu(chatID int64, messageIDToEdit int) {
	channels, err := db.GetMandatoryChannels()
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить каналы.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📢 Каналы обязательной подписки:\n")
	if len(channels) == 0 {
		sb.WriteString("\nСписок пуст.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ch := range channels {
		sb.WriteString(fmt.Sprintf("\n#%d %s (%s)", ch.ID, ch.ChannelTitle, ch.ChannelID))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Удалить #%d", ch.ID),
				fmt.Sprintf("%s%d", constants.CALLBACK_PREFIX_DELETE_CHANNEL, ch.ID)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить канал", "admin_add_channel"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// handleAdminAddChannelInput добавляет канал обязательной подписки.
func (bh *BotHandler) handleAdminAddChannelInput(admin models.User, text string) {
	chatID := admin.ChatID
	menuMsgID := bh.menuMessageID(chatID)

	channelID, err := utils.ExtractChannelID(text)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, menuMsgID, "❌ "+err.Error()+"\nПришлите ссылку на канал еще раз:")
		return
	}
	info, errResolve := bh.Deps.Gateway.ResolveChat(channelID)
	if errResolve != nil {
		log.Printf("handleAdminAddChannelInput: не удалось разрешить %s: %v", channelID, errResolve)
		bh.sendErrorMessageHelper(chatID, menuMsgID,
			"❌ Не удалось найти канал. Убедитесь, что бот добавлен в него, и пришлите ссылку еще раз:")
		return
	}

	if _, errAdd := db.AddChannel(channelID, info.Title, chatID); errAdd != nil {
		bh.finishAdminInput(chatID, "❌ Не удалось добавить канал: "+adminErrorText(errAdd))
		return
	}
	bh.Deps.SessionManager.ClearState(chatID)
	bh.SendAdminChannelsMenu(chatID, menuMsgID)
}

// SendAdminSettingsMenu показывает настройки системы и тарифы баллов.
func (bh *BotHandler) SendAdminSettingsMenu(chatID int64, messageIDToEdit int) {
	system, errSys := db.GetSystemSettings()
	points, errPts := db.GetPointsSettings()
	if errSys != nil || errPts != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить настройки.")
		return
	}

	onOff := func(b bool) string {
		if b {
			return "включен"
		}
		return "выключен"
	}
	text := fmt.Sprintf(`⚙️ Настройки

Режим техработ: %s
Переводы баллов: %s (комиссия %d%%)

Тарифы:
• Балл за участника: %d
• Награда за друга: %d
• Ежедневный подарок: %d
• Награда за подписку: %d
• Минимальная заявка: %d`,
		onOff(system.MaintenanceMode), onOff(system.TransferEnabled), system.TransferFeePercent,
		points.PointsPerMember, points.PointsPerReferral, points.DailyGiftPoints,
		points.PointsPerChannel, points.MinPointsForFunding)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠 Техработы вкл/выкл", "admin_toggle_maintenance"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Текст техработ", "admin_maintenance_msg"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Переводы вкл/выкл", "admin_toggle_transfers"),
			tgbotapi.NewInlineKeyboardButtonData("％ Комиссия", "admin_transfer_fee"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Балл за участника", constants.CALLBACK_PREFIX_EDIT_SETTING+constants.SETTING_POINTS_PER_MEMBER),
			tgbotapi.NewInlineKeyboardButtonData("Награда за друга", constants.CALLBACK_PREFIX_EDIT_SETTING+constants.SETTING_POINTS_PER_REFERRAL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Подарок", constants.CALLBACK_PREFIX_EDIT_SETTING+constants.SETTING_DAILY_GIFT_POINTS),
			tgbotapi.NewInlineKeyboardButtonData("За подписку", constants.CALLBACK_PREFIX_EDIT_SETTING+constants.SETTING_POINTS_PER_CHANNEL),
			tgbotapi.NewInlineKeyboardButtonData("Мин. заявка", constants.CALLBACK_PREFIX_EDIT_SETTING+constants.SETTING_MIN_POINTS_FOR_FUNDING),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// SendAdminTransfersMenu показывает журнал последних переводов баллов.
func (bh *BotHandler) SendAdminTransfersMenu(chatID int64, messageIDToEdit int) {
	transfers, err := db.GetRecentTransfers(15)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить журнал переводов.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💳 Последние переводы баллов:\n")
	if len(transfers) == 0 {
		sb.WriteString("\nПереводов пока не было.")
	}
	for _, t := range transfers {
		sb.WriteString(fmt.Sprintf("\n%s: %d → %d, %s (комиссия %s)",
			t.TransferDate.Format("02.01 15:04"), t.FromChatID, t.ToChatID,
			utils.FormatPoints(t.Amount), utils.FormatPoints(t.FeeAmount)))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// SendAdminUsersMenu показывает недавних пользователей и операции над ними.
func (bh *BotHandler) SendAdminUsersMenu(chatID int64, messageIDToEdit int) {
	users, err := db.GetRecentUsers(10)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось загрузить пользователей.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👤 Недавние пользователи:\n")
	for _, u := range users {
		mark := ""
		if u.IsBanned {
			mark = " ⛔"
		}
		if u.IsAdmin {
			mark += " 👑"
		}
		sb.WriteString(fmt.Sprintf("\n%d — %s, %s%s", u.ChatID, u.DisplayName(), utils.FormatPoints(u.Points), mark))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛔ Заблокировать", "admin_ban"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Разблокировать", "admin_unban"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Начислить баллы", "admin_add_points"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Списать баллы", "admin_deduct_points"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👑 Назначить админа", "admin_promote"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// promptAdminInput переводит админа в состояние ввода и показывает подсказку.
func (bh *BotHandler) promptAdminInput(chatID int64, messageIDToEdit int, state, prompt string) {
	bh.Deps.SessionManager.SetState(chatID, state)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Админ-панель", "admin_menu"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, prompt, &keyboard, "")
}

// handleBroadcastInput рассылает сообщение всем незаблокированным пользователям.
func (bh *BotHandler) handleBroadcastInput(admin models.User, text string) {
	chatID := admin.ChatID
	users, err := db.GetAllUsers()
	if err != nil {
		bh.finishAdminInput(chatID, "❌ Не удалось загрузить пользователей для рассылки.")
		return
	}

	sent := 0
	for _, u := range users {
		if u.IsBanned || u.ChatID == chatID {
			continue
		}
		bh.sendPlainNotification(u.ChatID, "📣 "+text)
		sent++
	}
	log.Printf("Рассылка от администратора %d доставлена %d пользователям.", chatID, sent)
	bh.finishAdminInput(chatID, fmt.Sprintf("✅ Рассылка отправлена %d пользователям.", sent))
}
