// Package gateway описывает абстракцию мессенджера для воркера накрутки.
// Воркер работает только через этот интерфейс: реальная реализация живет в
// telegram_api, тесты подставляют фейк.
// Package gateway defines the messenger abstraction used by the fulfillment worker.
package gateway

// AddOutcome классифицирует результат одной попытки добавления участника.
type AddOutcome int

const (
	// OutcomeAdded — участник добавлен в целевой чат.
	OutcomeAdded AddOutcome = iota
	// OutcomeAlreadyMember — участник уже состоит в целевом чате.
	// Засчитывается как успех: цель заявки — присутствие участника.
	OutcomeAlreadyMember
	// OutcomePrivacyRestricted — настройки приватности запрещают добавление.
	OutcomePrivacyRestricted
	// OutcomeNotMutualContact — добавление требует взаимного контакта.
	OutcomeNotMutualContact
	// OutcomeTargetAccessDenied — у бота нет прав администратора в целевом
	// чате. Обработка заявки прерывается целиком.
	OutcomeTargetAccessDenied
	// OutcomeUserUnavailable — аккаунт кандидата удален или заблокирован.
	OutcomeUserUnavailable
	// OutcomeTransient — временная ошибка (сеть, флуд-контроль). Кандидат
	// пропускается в этом цикле, попытка повторится в следующем.
	OutcomeTransient
)

func (o AddOutcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeAlreadyMember:
		return "already_member"
	case OutcomePrivacyRestricted:
		return "privacy_restricted"
	case OutcomeNotMutualContact:
		return "not_mutual_contact"
	case OutcomeTargetAccessDenied:
		return "target_access_denied"
	case OutcomeUserUnavailable:
		return "user_unavailable"
	case OutcomeTransient:
		return "transient"
	}
	return "unknown"
}

// Member — кандидат на добавление из группы-источника.
type Member struct {
	UserID   int64
	Username string
	IsBot    bool
}

// ChatInfo — сведения о чате, разрешенные по ссылке или @имени.
type ChatInfo struct {
	ID          string
	Title       string
	MemberCount int
}

// Gateway — операции мессенджера, нужные воркеру и админ-командам.
type Gateway interface {
	// ListMembers возвращает до limit участников группы-источника.
	ListMembers(groupID string, limit int) ([]Member, error)
	// IsMember сообщает, состоит ли пользователь в чате.
	IsMember(chatID string, userID int64) (bool, error)
	// AddMember пытается добавить пользователя в целевой чат.
	// Ошибка возвращается только вместе с OutcomeTransient и
	// OutcomeTargetAccessDenied; остальные исходы — не ошибки.
	AddMember(chatID string, userID int64) (AddOutcome, error)
	// ResolveChat разрешает @имя или ссылку t.me в сведения о чате.
	ResolveChat(ref string) (ChatInfo, error)
}
