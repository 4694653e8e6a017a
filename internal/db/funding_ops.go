package db

import (
	"database/sql"
	"log"

	"memberbot/internal/constants"
	"memberbot/internal/models"
)

const requestColumns = `id, user_chat_id, target_channel, target_type, requested_members,
               points_cost, completed_members, status, approved_by, notes, created_at, updated_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (models.FundingRequest, error) {
	var r models.FundingRequest
	err := row.Scan(
		&r.ID, &r.UserChatID, &r.TargetChannel, &r.TargetType, &r.RequestedMembers,
		&r.PointsCost, &r.CompletedMembers, &r.Status, &r.ApprovedBy, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateFundingRequest создает заявку на накрутку и списывает ее полную
// стоимость (эскроу) одной транзакцией: заявка не может существовать без
// списания, а списание — без заявки. Стоимость фиксируется по текущему тарифу
// и не меняется при последующем изменении цены.
func CreateFundingRequest(userChatID int64, targetChannel, targetType string, requestedMembers, maxMembers int) (models.FundingRequest, error) {
	var request models.FundingRequest
	if requestedMembers <= 0 || (maxMembers > 0 && requestedMembers > maxMembers) {
		return request, ErrInvalidMemberCount
	}

	settings, err := GetPointsSettings()
	if err != nil {
		return request, err
	}
	pointsCost := int64(requestedMembers) * settings.PointsPerMember
	if pointsCost < settings.MinPointsForFunding {
		return request, ErrInvalidMemberCount
	}

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("CreateFundingRequest: ошибка начала транзакции: %v", err)
		return request, err
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if opErr != nil {
			tx.Rollback()
		}
	}()

	var points int64
	opErr = tx.QueryRow("SELECT points FROM users WHERE chat_id = $1 FOR UPDATE", userChatID).Scan(&points)
	if opErr != nil {
		if opErr == sql.ErrNoRows {
			opErr = ErrUserNotFound
		}
		return request, opErr
	}
	if points < pointsCost {
		opErr = ErrInsufficientBalance
		return request, opErr
	}

	if _, opErr = tx.Exec("UPDATE users SET points = points - $1 WHERE chat_id = $2", pointsCost, userChatID); opErr != nil {
		log.Printf("CreateFundingRequest: ошибка списания эскроу у chatID %d: %v", userChatID, opErr)
		return request, opErr
	}

	opErr = tx.QueryRow(`
        INSERT INTO funding_requests (user_chat_id, target_channel, target_type, requested_members, points_cost, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING `+requestColumns,
		userChatID, targetChannel, targetType, requestedMembers, pointsCost, constants.REQUEST_STATUS_PENDING).
		Scan(&request.ID, &request.UserChatID, &request.TargetChannel, &request.TargetType,
			&request.RequestedMembers, &request.PointsCost, &request.CompletedMembers,
			&request.Status, &request.ApprovedBy, &request.Notes, &request.CreatedAt, &request.UpdatedAt)
	if opErr != nil {
		log.Printf("CreateFundingRequest: ошибка вставки заявки для chatID %d: %v", userChatID, opErr)
		return request, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		log.Printf("CreateFundingRequest: ошибка коммита транзакции: %v", opErr)
		return request, opErr
	}
	log.Printf("Заявка #%d создана: chatID %d, %d участников, эскроу %d баллов.",
		request.ID, userChatID, requestedMembers, pointsCost)
	return request, nil
}

// ApproveFundingRequest переводит заявку pending -> approved.
func ApproveFundingRequest(requestID, adminChatID int64) (models.FundingRequest, error) {
	var request models.FundingRequest
	err := DB.QueryRow(`
        UPDATE funding_requests
        SET status = $1, approved_by = $2, updated_at = NOW()
        WHERE id = $3 AND status = $4
        RETURNING `+requestColumns,
		constants.REQUEST_STATUS_APPROVED, adminChatID, requestID, constants.REQUEST_STATUS_PENDING).
		Scan(&request.ID, &request.UserChatID, &request.TargetChannel, &request.TargetType,
			&request.RequestedMembers, &request.PointsCost, &request.CompletedMembers,
			&request.Status, &request.ApprovedBy, &request.Notes, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// Либо заявки нет, либо она уже не pending.
			if _, errGet := GetFundingRequestByID(requestID); errGet != nil {
				return request, errGet
			}
			return request, ErrInvalidTransition
		}
		log.Printf("ApproveFundingRequest: ошибка одобрения заявки #%d: %v", requestID, err)
		return request, err
	}
	log.Printf("Заявка #%d одобрена администратором %d.", requestID, adminChatID)
	return request, nil
}

// RejectFundingRequest переводит заявку pending -> rejected и возвращает
// пользователю ровно points_cost. Возврат и смена статуса — одна транзакция,
// поэтому повторное отклонение не приведет к двойному возврату.
func RejectFundingRequest(requestID, adminChatID int64) (models.FundingRequest, error) {
	var request models.FundingRequest

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("RejectFundingRequest: ошибка начала транзакции: %v", err)
		return request, err
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if opErr != nil {
			tx.Rollback()
		}
	}()

	opErr = tx.QueryRow(`
        UPDATE funding_requests
        SET status = $1, approved_by = $2, updated_at = NOW()
        WHERE id = $3 AND status = $4
        RETURNING `+requestColumns,
		constants.REQUEST_STATUS_REJECTED, adminChatID, requestID, constants.REQUEST_STATUS_PENDING).
		Scan(&request.ID, &request.UserChatID, &request.TargetChannel, &request.TargetType,
			&request.RequestedMembers, &request.PointsCost, &request.CompletedMembers,
			&request.Status, &request.ApprovedBy, &request.Notes, &request.CreatedAt, &request.UpdatedAt)
	if opErr != nil {
		if opErr == sql.ErrNoRows {
			if _, errGet := GetFundingRequestByID(requestID); errGet != nil {
				opErr = errGet
			} else {
				opErr = ErrInvalidTransition
			}
		} else {
			log.Printf("RejectFundingRequest: ошибка отклонения заявки #%d: %v", requestID, opErr)
		}
		return request, opErr
	}

	if _, opErr = tx.Exec("UPDATE users SET points = points + $1 WHERE chat_id = $2",
		request.PointsCost, request.UserChatID); opErr != nil {
		log.Printf("RejectFundingRequest: ошибка возврата %d баллов chatID %d: %v",
			request.PointsCost, request.UserChatID, opErr)
		return request, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		log.Printf("RejectFundingRequest: ошибка коммита транзакции: %v", opErr)
		return request, opErr
	}
	log.Printf("Заявка #%d отклонена администратором %d, возвращено %d баллов.",
		requestID, adminChatID, request.PointsCost)
	return request, nil
}

// GetFundingRequestByID извлекает заявку по ID.
func GetFundingRequestByID(requestID int64) (models.FundingRequest, error) {
	r, err := scanRequest(DB.QueryRow(`SELECT `+requestColumns+` FROM funding_requests WHERE id = $1`, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return r, ErrRequestNotFound
		}
		log.Printf("GetFundingRequestByID: ошибка получения заявки #%d: %v", requestID, err)
		return r, err
	}
	return r, nil
}

// GetRequestsByStatus возвращает заявки с указанным статусом, старые первыми.
// Стабильный порядок нужен воркеру для честной обработки между циклами.
func GetRequestsByStatus(status string, limit int) ([]models.FundingRequest, error) {
	rows, err := DB.Query(`
        SELECT `+requestColumns+` FROM funding_requests
        WHERE status = $1 ORDER BY id LIMIT $2`, status, limit)
	if err != nil {
		log.Printf("GetRequestsByStatus: ошибка получения заявок со статусом %s: %v", status, err)
		return nil, err
	}
	defer rows.Close()

	var requests []models.FundingRequest
	for rows.Next() {
		r, errScan := scanRequest(rows)
		if errScan != nil {
			log.Printf("GetRequestsByStatus: ошибка сканирования заявки: %v", errScan)
			continue
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetUserRequests возвращает заявки пользователя, новые первыми.
func GetUserRequests(userChatID int64, limit int) ([]models.FundingRequest, error) {
	rows, err := DB.Query(`
        SELECT `+requestColumns+` FROM funding_requests
        WHERE user_chat_id = $1 ORDER BY id DESC LIMIT $2`, userChatID, limit)
	if err != nil {
		log.Printf("GetUserRequests: ошибка получения заявок chatID %d: %v", userChatID, err)
		return nil, err
	}
	defer rows.Close()

	var requests []models.FundingRequest
	for rows.Next() {
		r, errScan := scanRequest(rows)
		if errScan != nil {
			log.Printf("GetUserRequests: ошибка сканирования заявки: %v", errScan)
			continue
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetAllFundingRequests возвращает все заявки, новые первыми. Используется
// для экспорта в Excel.
func GetAllFundingRequests() ([]models.FundingRequest, error) {
	rows, err := DB.Query(`SELECT ` + requestColumns + ` FROM funding_requests ORDER BY id DESC`)
	if err != nil {
		log.Printf("GetAllFundingRequests: ошибка получения заявок: %v", err)
		return nil, err
	}
	defer rows.Close()

	var requests []models.FundingRequest
	for rows.Next() {
		r, errScan := scanRequest(rows)
		if errScan != nil {
			log.Printf("GetAllFundingRequests: ошибка сканирования заявки: %v", errScan)
			continue
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// IncrementCompletedMembers увеличивает счетчик добавленных участников на
// единицу и возвращает новое значение. Прогресс сохраняется сразу после
// каждого успешного добавления: при падении процесса теряется максимум одна
// незавершенная попытка.
func IncrementCompletedMembers(requestID int64) (int, error) {
	var completed int
	err := DB.QueryRow(`
        UPDATE funding_requests
        SET completed_members = completed_members + 1, updated_at = NOW()
        WHERE id = $1 AND status = $2 AND completed_members < requested_members
        RETURNING completed_members`,
		requestID, constants.REQUEST_STATUS_APPROVED).Scan(&completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrInvalidTransition
		}
		log.Printf("IncrementCompletedMembers: ошибка обновления прогресса заявки #%d: %v", requestID, err)
		return 0, err
	}
	return completed, nil
}

// FinalizeRequest переводит одобренную заявку в терминальный статус
// (completed или failed). completed_members при этом сохраняется как есть.
func FinalizeRequest(requestID int64, status string) error {
	if status != constants.REQUEST_STATUS_COMPLETED && status != constants.REQUEST_STATUS_FAILED {
		return ErrInvalidTransition
	}
	res, err := DB.Exec(`
        UPDATE funding_requests SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		status, requestID, constants.REQUEST_STATUS_APPROVED)
	if err != nil {
		log.Printf("FinalizeRequest: ошибка завершения заявки #%d со статусом %s: %v", requestID, status, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	log.Printf("Заявка #%d переведена в статус %s.", requestID, status)
	return nil
}
