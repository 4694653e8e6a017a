package models

import (
	"database/sql"
	"time"
)

// User represents a user in the system.
type User struct {
	ID            int64
	ChatID        int64
	Username      sql.NullString
	FirstName     string
	LastName      sql.NullString
	Points        int64
	Referrals     int
	ReferredBy    sql.NullInt64 // chat_id пригласившего / inviter's chat_id
	IsBanned      bool
	BanReason     sql.NullString
	IsAdmin       bool
	LastDailyGift sql.NullTime
	CreatedAt     time.Time
}

// DisplayName возвращает имя пользователя для отображения в сообщениях.
func (u User) DisplayName() string {
	if u.Username.Valid && u.Username.String != "" {
		return "@" + u.Username.String
	}
	name := u.FirstName
	if u.LastName.Valid && u.LastName.String != "" {
		name += " " + u.LastName.String
	}
	return name
}

// Stats — агрегированная статистика для админ-панели и HTTP API.
type Stats struct {
	TotalUsers        int
	BannedUsers       int
	TotalPoints       int64
	TotalRequests     int
	PendingRequests   int
	ApprovedRequests  int
	CompletedRequests int
	TotalTransfers    int
	TotalFees         int64
	ActiveGroups      int
}
