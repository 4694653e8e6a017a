package models

import "time"

// Channel — канал обязательной подписки.
// Channel is a mandatory-subscription channel.
type Channel struct {
	ID           int64
	ChannelID    string // @username или -100...
	ChannelTitle string
	IsMandatory  bool
	AddedByAdmin int64
	CreatedAt    time.Time
}
