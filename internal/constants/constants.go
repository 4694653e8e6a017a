package constants

// Состояния пользовательских сценариев (диалогов).
// User interaction states (dialog flows).
const (
	STATE_IDLE = "idle"

	// Поток заявки на накрутку участников
	// Funding request flow
	STATE_FUNDING_TARGET_TYPE  = "funding_target_type"  // выбор типа цели (канал/группа)
	STATE_FUNDING_MEMBER_COUNT = "funding_member_count" // ожидание числа участников
	STATE_FUNDING_CHANNEL_LINK = "funding_channel_link" // ожидание ссылки на канал

	// Поток перевода баллов
	// Points transfer flow
	STATE_TRANSFER_RECIPIENT = "transfer_recipient" // ожидание ID получателя
	STATE_TRANSFER_AMOUNT    = "transfer_amount"    // ожидание суммы перевода

	// Админские потоки ввода
	// Admin input flows
	STATE_ADMIN_BAN_TARGET       = "admin_ban_target"
	STATE_ADMIN_BAN_REASON       = "admin_ban_reason"
	STATE_ADMIN_UNBAN_TARGET     = "admin_unban_target"
	STATE_ADMIN_ADD_POINTS       = "admin_add_points"       // "<chatID> <amount>"
	STATE_ADMIN_DEDUCT_POINTS    = "admin_deduct_points"    // "<chatID> <amount>"
	STATE_ADMIN_PROMOTE_TARGET   = "admin_promote_target"   // назначение администратора
	STATE_ADMIN_ADD_GROUP        = "admin_add_group"        // "<groupID> <название>"
	STATE_ADMIN_ADD_CHANNEL      = "admin_add_channel"      // "<channelID> <название>"
	STATE_ADMIN_EDIT_SETTING     = "admin_edit_setting"     // новое значение выбранной настройки
	STATE_ADMIN_MAINTENANCE_MSG  = "admin_maintenance_msg"  // текст сообщения о техработах
	STATE_ADMIN_BROADCAST_INPUT  = "admin_broadcast_input"  // текст рассылки
	STATE_ADMIN_TRANSFER_FEE     = "admin_transfer_fee"     // новая комиссия перевода в процентах
)

// Статусы заявок на накрутку.
// Funding request statuses.
const (
	REQUEST_STATUS_PENDING   = "pending"
	REQUEST_STATUS_APPROVED  = "approved"
	REQUEST_STATUS_REJECTED  = "rejected"
	REQUEST_STATUS_COMPLETED = "completed"
	REQUEST_STATUS_FAILED    = "failed"
)

// Типы целей накрутки.
const (
	TARGET_TYPE_CHANNEL = "channel"
	TARGET_TYPE_GROUP   = "group"
)

// Префиксы callback data.
const (
	CALLBACK_PREFIX_APPROVE_REQUEST = "approve_request_"
	CALLBACK_PREFIX_REJECT_REQUEST  = "reject_request_"
	CALLBACK_PREFIX_VIEW_REQUEST    = "view_request_"
	CALLBACK_PREFIX_FUNDING_TYPE    = "funding_type_"
	CALLBACK_PREFIX_TOGGLE_GROUP    = "toggle_group_"
	CALLBACK_PREFIX_DELETE_GROUP    = "delete_group_"
	CALLBACK_PREFIX_DELETE_CHANNEL  = "delete_channel_"
	CALLBACK_PREFIX_EDIT_SETTING    = "edit_setting_"
)

// Ключи настроек баллов (points_settings). Совпадают с именами колонок.
const (
	SETTING_POINTS_PER_MEMBER      = "points_per_member"
	SETTING_POINTS_PER_REFERRAL    = "points_per_referral"
	SETTING_DAILY_GIFT_POINTS      = "daily_gift_points"
	SETTING_POINTS_PER_CHANNEL     = "points_per_channel"
	SETTING_MIN_POINTS_FOR_FUNDING = "min_points_for_funding"
)

// Значения настроек по умолчанию (сидируются при инициализации БД).
// Default settings values (seeded on DB init).
const (
	DEFAULT_POINTS_PER_MEMBER      = 25
	DEFAULT_POINTS_PER_REFERRAL    = 5
	DEFAULT_DAILY_GIFT_POINTS      = 3
	DEFAULT_POINTS_PER_CHANNEL     = 2
	DEFAULT_MIN_POINTS_FOR_FUNDING = 25
	DEFAULT_TRANSFER_FEE_PERCENT   = 5
	DEFAULT_MAINTENANCE_MESSAGE    = "Бот временно на техническом обслуживании. Попробуйте позже."
)

// Префикс реферального параметра в /start.
const REFERRAL_START_PREFIX = "ref_"

// DAILY_GIFT_WINDOW_HOURS — длина скользящего окна ежедневного подарка в часах.
// Окно отсчитывается от момента последнего получения, а не от календарных суток:
// усечение по календарю давало бы либо два подарка в одни сутки, либо лишнее ожидание.
const DAILY_GIFT_WINDOW_HOURS = 24
