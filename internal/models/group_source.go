package models

import "time"

// GroupSource — группа-источник, участники которой используются для накрутки.
// GroupSource is a pool of candidate members for fulfillment.
type GroupSource struct {
	ID           int64
	GroupID      string // идентификатор чата в Telegram (@username или -100...)
	GroupTitle   string
	IsActive     bool
	MemberCount  int // справочный счетчик, обновляется воркером / advisory counter, updated by the worker
	AddedByAdmin int64
	CreatedAt    time.Time
}
