package models

import "time"

// PointsTransfer — запись о переводе баллов между пользователями.
// Отправитель платит Amount+FeeAmount, получатель получает ровно Amount,
// комиссия никому не зачисляется.
type PointsTransfer struct {
	ID           int64
	TransferUID  string // публичный идентификатор перевода (uuid)
	FromChatID   int64
	ToChatID     int64
	Amount       int64
	FeePercent   int
	FeeAmount    int64
	TransferDate time.Time
}
