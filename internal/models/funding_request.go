package models

import (
	"database/sql"
	"time"
)

// FundingRequest — заявка на накрутку участников.
// Баллы списываются (эскроу) в момент создания заявки; отклонение возвращает
// ровно PointsCost, завершение и провал баллы не возвращают.
type FundingRequest struct {
	ID               int64
	UserChatID       int64
	TargetChannel    string // @username или инвайт-код цели
	TargetType       string // constants.TARGET_TYPE_CHANNEL | TARGET_TYPE_GROUP
	RequestedMembers int
	PointsCost       int64
	CompletedMembers int
	Status           string
	ApprovedBy       sql.NullInt64 // chat_id администратора
	Notes            sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Remaining возвращает, сколько участников осталось добавить по заявке.
func (r FundingRequest) Remaining() int {
	remaining := r.RequestedMembers - r.CompletedMembers
	if remaining < 0 {
		return 0
	}
	return remaining
}
