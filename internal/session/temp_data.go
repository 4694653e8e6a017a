package session

// TempFundingData — черновик заявки на накрутку, собираемый по шагам диалога.
// TempFundingData is the funding request draft collected across dialog steps.
type TempFundingData struct {
	UserChatID       int64
	TargetType       string // constants.TARGET_TYPE_CHANNEL или TARGET_TYPE_GROUP
	TargetChannel    string
	TargetTitle      string
	RequestedMembers int
	PointsCost       int64
	CurrentMessageID int // ID сообщения бота, которое редактируется на каждом шаге
}

// NewTempFunding создает пустой черновик заявки.
func NewTempFunding(chatID int64) TempFundingData {
	return TempFundingData{UserChatID: chatID}
}

// TempTransferData — черновик перевода баллов.
type TempTransferData struct {
	FromChatID       int64
	RecipientChatID  int64
	Amount           int64
	CurrentMessageID int
}

// NewTempTransfer создает пустой черновик перевода.
func NewTempTransfer(chatID int64) TempTransferData {
	return TempTransferData{FromChatID: chatID}
}

// TempAdminData — контекст многошаговых админ-операций (бан с причиной,
// начисление баллов выбранному пользователю, редактирование настройки).
type TempAdminData struct {
	AdminChatID      int64
	TargetChatID     int64  // пользователь, над которым выполняется операция
	SettingKey       string // редактируемая колонка points_settings
	CurrentMessageID int
}

// NewTempAdmin создает пустой админ-контекст.
func NewTempAdmin(chatID int64) TempAdminData {
	return TempAdminData{AdminChatID: chatID}
}
