package db

import (
	"log"

	"memberbot/internal/constants"
	"memberbot/internal/models"
)

// GetRecentTransfers возвращает последние переводы для журнала в админ-панели.
func GetRecentTransfers(limit int) ([]models.PointsTransfer, error) {
	rows, err := DB.Query(`
        SELECT id, transfer_uid, from_chat_id, to_chat_id, amount, fee_percent, fee_amount, transfer_date
        FROM points_transfers ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		log.Printf("GetRecentTransfers: ошибка получения журнала переводов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var transfers []models.PointsTransfer
	for rows.Next() {
		var t models.PointsTransfer
		if errScan := rows.Scan(&t.ID, &t.TransferUID, &t.FromChatID, &t.ToChatID,
			&t.Amount, &t.FeePercent, &t.FeeAmount, &t.TransferDate); errScan != nil {
			log.Printf("GetRecentTransfers: ошибка сканирования перевода: %v", errScan)
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// GetAllTransfers возвращает все переводы (для Excel-отчета).
func GetAllTransfers() ([]models.PointsTransfer, error) {
	rows, err := DB.Query(`
        SELECT id, transfer_uid, from_chat_id, to_chat_id, amount, fee_percent, fee_amount, transfer_date
        FROM points_transfers ORDER BY id`)
	if err != nil {
		log.Printf("GetAllTransfers: ошибка получения переводов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var transfers []models.PointsTransfer
	for rows.Next() {
		var t models.PointsTransfer
		if errScan := rows.Scan(&t.ID, &t.TransferUID, &t.FromChatID, &t.ToChatID,
			&t.Amount, &t.FeePercent, &t.FeeAmount, &t.TransferDate); errScan != nil {
			log.Printf("GetAllTransfers: ошибка сканирования перевода: %v", errScan)
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// GetStats собирает агрегированную статистику для админ-панели и HTTP API.
func GetStats() (models.Stats, error) {
	var s models.Stats
	err := DB.QueryRow(`
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM users WHERE is_banned = TRUE),
            (SELECT COALESCE(SUM(points), 0) FROM users),
            (SELECT COUNT(*) FROM funding_requests),
            (SELECT COUNT(*) FROM funding_requests WHERE status = $1),
            (SELECT COUNT(*) FROM funding_requests WHERE status = $2),
            (SELECT COUNT(*) FROM funding_requests WHERE status = $3),
            (SELECT COUNT(*) FROM points_transfers),
            (SELECT COALESCE(SUM(fee_amount), 0) FROM points_transfers),
            (SELECT COUNT(*) FROM group_sources WHERE is_active = TRUE)`,
		constants.REQUEST_STATUS_PENDING, constants.REQUEST_STATUS_APPROVED, constants.REQUEST_STATUS_COMPLETED).
		Scan(&s.TotalUsers, &s.BannedUsers, &s.TotalPoints, &s.TotalRequests,
			&s.PendingRequests, &s.ApprovedRequests, &s.CompletedRequests,
			&s.TotalTransfers, &s.TotalFees, &s.ActiveGroups)
	if err != nil {
		log.Printf("GetStats: ошибка сбора статистики: %v", err)
		return s, err
	}
	return s, nil
}
