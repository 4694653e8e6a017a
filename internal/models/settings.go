package models

import (
	"database/sql"
	"time"
)

// SystemSettings — системные настройки (единственная строка в таблице).
type SystemSettings struct {
	ID                 int64
	MaintenanceMode    bool
	MaintenanceMessage string
	TransferEnabled    bool
	TransferFeePercent int
	UpdatedBy          sql.NullInt64
	UpdatedAt          time.Time
}

// PointsSettings — тарифы начисления баллов (единственная строка в таблице).
type PointsSettings struct {
	ID                  int64
	PointsPerMember     int64 // цена одного добавленного участника
	PointsPerReferral   int64 // награда за приглашенного друга
	DailyGiftPoints     int64
	PointsPerChannel    int64 // награда за подписку на канал
	MinPointsForFunding int64 // минимальная стоимость заявки
	UpdatedBy           sql.NullInt64
	UpdatedAt           time.Time
}
