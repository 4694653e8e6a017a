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

// SendMainMenu показывает главное меню пользователя.
func (bh *BotHandler) SendMainMenu(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	bh.Deps.SessionManager.ClearState(chatID)

	text := fmt.Sprintf("👋 Здравствуйте, %s!\n\n💰 Ваш баланс: %s\n👥 Приглашено друзей: %d\n\nВыберите действие:",
		user.DisplayName(), utils.FormatPoints(user.Points), user.Referrals)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Заказать участников", "funding_start"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Мои баллы", "my_points"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои заявки", "my_requests"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Ежедневный подарок", "daily_gift"),
			tgbotapi.NewInlineKeyboardButtonData("🔗 Пригласить друзей", "invite"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Перевести баллы", "transfer_start"),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", "help"),
		),
	}
	if bh.isAdmin(user) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠 Админ-панель", "admin_menu"),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")
}

// SendMyPointsMenu показывает баланс и способы заработка.
func (bh *BotHandler) SendMyPointsMenu(user models.User, messageIDToEdit int) {
	settings, err := db.GetPointsSettings()
	if err != nil {
		bh.sendErrorMessageHelper(user.ChatID, messageIDToEdit, "❌ Не удалось загрузить данные. Попробуйте позже.")
		return
	}

	text := fmt.Sprintf(`💰 Ваш баланс: %s

Как заработать баллы:
• 🔗 Пригласите друга — %s
• 🎁 Ежедневный подарок — %s
• 📢 Подпишитесь на каналы спонсоров — %s за канал

Стоимость продвижения: 1 участник = %s.`,
		utils.FormatPoints(user.Points),
		utils.FormatPoints(settings.PointsPerReferral),
		utils.FormatPoints(settings.DailyGiftPoints),
		utils.FormatPoints(settings.PointsPerChannel),
		utils.FormatPoints(settings.PointsPerMember))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Каналы спонсоров", "sponsor_channels"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(user.ChatID, messageIDToEdit, text, &keyboard, "")
}

// SendInviteMenu показывает реферальную ссылку и QR-код к ней.
func (bh *BotHandler) SendInviteMenu(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	link, err := utils.GenerateReferralLink(bh.Deps.Config.BotUsername, chatID)
	if err != nil {
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось сформировать ссылку. Попробуйте позже.")
		return
	}
	settings, errSettings := db.GetPointsSettings()
	reward := int64(constants.DEFAULT_POINTS_PER_REFERRAL)
	if errSettings == nil {
		reward = settings.PointsPerReferral
	}

	text := fmt.Sprintf("🔗 Ваша реферальная ссылка:\n%s\n\nЗа каждого друга, который запустит бота по ней, вы получите %s.\n\n👥 Уже приглашено: %d",
		link, utils.FormatPoints(reward), user.Referrals)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, text, &keyboard, "")

	// QR-код отправляется отдельным сообщением: фото нельзя подставить
	// в отредактированное текстовое меню.
	qrBytes, errQR := utils.GenerateReferralQRCode(bh.Deps.Config.BotUsername, chatID)
	if errQR != nil {
		log.Printf("SendInviteMenu: ошибка генерации QR-кода для chatID %d: %v", chatID, errQR)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "invite_qr.png", Bytes: qrBytes})
	photo.Caption = "📱 QR-код вашей ссылки"
	if _, errSend := bh.Deps.BotClient.Send(photo); errSend != nil {
		log.Printf("SendInviteMenu: ошибка отправки QR-кода chatID %d: %v", chatID, errSend)
	}
}

// HandleDailyGift начисляет ежедневный подарок или сообщает об оставшемся времени.
func (bh *BotHandler) HandleDailyGift(user models.User, messageIDToEdit int) {
	chatID := user.ChatID
	amount, err := db.ClaimDailyGift(chatID, timeNow())
	if err != nil {
		var cooldown *db.GiftCooldownError
		if errors.As(err, &cooldown) {
			hours := int(cooldown.Remaining.Hours())
			minutes := int(cooldown.Remaining.Minutes()) % 60
			bh.sendErrorMessageHelper(chatID, messageIDToEdit,
				fmt.Sprintf("⏳ Подарок уже получен. Следующий будет доступен через %dч %dмин.", hours, minutes))
			return
		}
		log.Printf("HandleDailyGift: ошибка начисления подарка chatID %d: %v", chatID, err)
		bh.sendErrorMessageHelper(chatID, messageIDToEdit, "❌ Не удалось получить подарок. Попробуйте позже.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit,
		fmt.Sprintf("🎁 Вам начислено %s! Возвращайтесь завтра.", utils.FormatPoints(amount)), &keyboard, "")
}

// SendMyRequestsMenu показывает последние заявки пользователя.
func (bh *BotHandler) SendMyRequestsMenu(user models.User, messageIDToEdit int) {
	requests, err := db.GetUserRequests(user.ChatID, 10)
	if err != nil {
		bh.sendErrorMessageHelper(user.ChatID, messageIDToEdit, "❌ Не удалось загрузить заявки. Попробуйте позже.")
		return
	}

	var sb strings.Builder
	if len(requests) == 0 {
		sb.WriteString("📋 У вас пока нет заявок.\n\nНажмите «Заказать участников», чтобы создать первую.")
	} else {
		sb.WriteString("📋 Ваши последние заявки:\n")
		for _, r := range requests {
			sb.WriteString(fmt.Sprintf("\n#%d — %s\n%s, %d из %d участников\n",
				r.ID, utils.GetStatusDisplayName(r.Status), r.TargetChannel, r.CompletedMembers, r.RequestedMembers))
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Новая заявка", "funding_start"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(user.ChatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// SendSponsorChannels показывает каналы спонсоров с наградой за подписку.
func (bh *BotHandler) SendSponsorChannels(user models.User, messageIDToEdit int) {
	channels, err := db.GetMandatoryChannels()
	if err != nil {
		bh.sendErrorMessageHelper(user.ChatID, messageIDToEdit, "❌ Не удалось загрузить каналы. Попробуйте позже.")
		return
	}

	var sb strings.Builder
	if len(channels) == 0 {
		sb.WriteString("📢 Сейчас нет каналов для подписки. Загляните позже.")
	} else {
		sb.WriteString("📢 Подпишитесь на каналы и нажмите «Проверить подписки», чтобы получить баллы:\n")
		for _, ch := range channels {
			sb.WriteString(fmt.Sprintf("\n• %s (%s)", ch.ChannelTitle, ch.ChannelID))
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Проверить подписки", "check_subscriptions"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_main"),
		),
	)
	bh.sendOrEditMessageHelper(user.ChatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// SendSubscriptionGate показывает экран обязательной подписки.
func (bh *BotHandler) SendSubscriptionGate(chatID int64, messageIDToEdit int, missing []models.Channel) {
	var sb strings.Builder
	sb.WriteString("📢 Для использования бота подпишитесь на каналы:\n")
	for _, ch := range missing {
		sb.WriteString(fmt.Sprintf("\n• %s (%s)", ch.ChannelTitle, ch.ChannelID))
	}
	sb.WriteString("\n\nЗатем нажмите «Проверить подписки».")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Проверить подписки", "check_subscriptions"),
		),
	)
	bh.sendOrEditMessageHelper(chatID, messageIDToEdit, sb.String(), &keyboard, "")
}

// HandleCheckSubscriptions повторно проверяет подписки и пускает в меню.
func (bh *BotHandler) HandleCheckSubscriptions(user models.User, messageIDToEdit int) {
	if missing := bh.checkMandatorySubscriptions(user); len(missing) > 0 {
		bh.SendSubscriptionGate(user.ChatID, messageIDToEdit, missing)
		return
	}
	// Баланс мог измениться за счет наград за подписку.
	if fresh, ok := bh.getUserFromDB(user.ChatID); ok {
		user = fresh
	}
	bh.SendMainMenu(user, messageIDToEdit)
}
