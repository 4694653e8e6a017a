package db

import (
	"database/sql"
	"fmt"
	"log"

	"memberbot/internal/models"
)

const userColumns = `id, chat_id, username, first_name, last_name, points, referrals,
               referred_by, is_banned, ban_reason, is_admin, last_daily_gift, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.Points, &u.Referrals,
		&u.ReferredBy, &u.IsBanned, &u.BanReason, &u.IsAdmin, &u.LastDailyGift, &u.CreatedAt)
	return u, err
}

// RegisterUser регистрирует нового пользователя или возвращает существующего.
// referrerChatID > 0 означает переход по реферальной ссылке: пригласившему
// начисляется реферальный бонус, но только при первой регистрации приглашенного.
// RegisterUser registers a new user or returns the existing one.
func RegisterUser(chatID int64, username, firstName, lastName string, referrerChatID int64) (models.User, bool, error) {
	var user models.User
	var exists bool
	err := DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE chat_id=$1)", chatID).Scan(&exists)
	if err != nil {
		log.Printf("RegisterUser: ошибка проверки существования пользователя chatID %d: %v", chatID, err)
		return user, false, err
	}

	if exists {
		user, err = GetUserByChatID(chatID)
		return user, false, err
	}

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("RegisterUser: ошибка начала транзакции: %v", err)
		return user, false, err
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

	var referredBy sql.NullInt64
	if referrerChatID > 0 && referrerChatID != chatID {
		// Бонус начисляется только если пригласивший реально существует.
		settings, errSettings := GetPointsSettings()
		if errSettings != nil {
			opErr = errSettings
			return user, false, opErr
		}
		res, errBonus := tx.Exec(`
            UPDATE users SET points = points + $1, referrals = referrals + 1
            WHERE chat_id = $2`, settings.PointsPerReferral, referrerChatID)
		if errBonus != nil {
			log.Printf("RegisterUser: ошибка начисления реферального бонуса chatID %d: %v", referrerChatID, errBonus)
			opErr = errBonus
			return user, false, opErr
		}
		if n, _ := res.RowsAffected(); n > 0 {
			referredBy = sql.NullInt64{Int64: referrerChatID, Valid: true}
			log.Printf("RegisterUser: пользователю %d начислен реферальный бонус %d за приглашение %d.",
				referrerChatID, settings.PointsPerReferral, chatID)
		}
	}

	opErr = tx.QueryRow(`
        INSERT INTO users (chat_id, username, first_name, last_name, referred_by, created_at)
        VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, NOW())
        RETURNING `+userColumns,
		chatID, username, firstName, lastName, referredBy).
		Scan(&user.ID, &user.ChatID, &user.Username, &user.FirstName, &user.LastName,
			&user.Points, &user.Referrals, &user.ReferredBy, &user.IsBanned, &user.BanReason,
			&user.IsAdmin, &user.LastDailyGift, &user.CreatedAt)
	if opErr != nil {
		log.Printf("RegisterUser: ошибка вставки нового пользователя chatID %d: %v", chatID, opErr)
		return user, false, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		log.Printf("RegisterUser: ошибка коммита транзакции: %v", opErr)
		return user, false, opErr
	}
	log.Printf("Зарегистрирован новый пользователь с chatID %d", chatID)
	return user, true, nil
}

// GetUserByChatID извлекает пользователя по его chat_id.
// Возвращает ErrUserNotFound, если пользователь не зарегистрирован.
func GetUserByChatID(chatID int64) (models.User, error) {
	u, err := scanUser(DB.QueryRow(`SELECT `+userColumns+` FROM users WHERE chat_id=$1`, chatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return u, ErrUserNotFound
		}
		log.Printf("GetUserByChatID: ошибка получения пользователя chatID %d: %v", chatID, err)
		return u, err
	}
	return u, nil
}

// UserExists проверяет существование пользователя по chat_id.
func UserExists(chatID int64) (bool, error) {
	var exists bool
	err := DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE chat_id=$1)", chatID).Scan(&exists)
	if err != nil {
		log.Printf("UserExists: ошибка проверки существования пользователя chatID %d: %v", chatID, err)
		return false, err
	}
	return exists, nil
}

// BanUser блокирует пользователя с указанной причиной (мягкая блокировка).
func BanUser(chatID int64, reason string) error {
	res, err := DB.Exec(`
        UPDATE users SET is_banned=TRUE, ban_reason=$1 WHERE chat_id=$2`, reason, chatID)
	if err != nil {
		log.Printf("BanUser: ошибка блокировки пользователя %d: %v", chatID, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	log.Printf("Пользователь %d заблокирован. Причина: %s", chatID, reason)
	return nil
}

// UnbanUser разблокирует пользователя.
func UnbanUser(chatID int64) error {
	res, err := DB.Exec(`
        UPDATE users SET is_banned=FALSE, ban_reason=NULL WHERE chat_id=$1`, chatID)
	if err != nil {
		log.Printf("UnbanUser: ошибка разблокировки пользователя %d: %v", chatID, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	log.Printf("Пользователь %d разблокирован.", chatID)
	return nil
}

// SetAdmin назначает или снимает права администратора.
func SetAdmin(chatID int64, isAdmin bool) error {
	res, err := DB.Exec("UPDATE users SET is_admin=$1 WHERE chat_id=$2", isAdmin, chatID)
	if err != nil {
		log.Printf("SetAdmin: ошибка изменения прав для chatID %d: %v", chatID, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	log.Printf("Права администратора для chatID %d установлены в %v", chatID, isAdmin)
	return nil
}

// GetAdmins возвращает всех администраторов.
func GetAdmins() ([]models.User, error) {
	rows, err := DB.Query(`SELECT ` + userColumns + ` FROM users WHERE is_admin=TRUE ORDER BY id`)
	if err != nil {
		log.Printf("GetAdmins: ошибка получения списка администраторов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var admins []models.User
	for rows.Next() {
		u, errScan := scanUser(rows)
		if errScan != nil {
			log.Printf("GetAdmins: ошибка сканирования администратора: %v", errScan)
			continue
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}

// GetAllUsers возвращает всех пользователей (для рассылки и экспорта).
func GetAllUsers() ([]models.User, error) {
	rows, err := DB.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса GetAllUsers: %v", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, errScan := scanUser(rows)
		if errScan != nil {
			return nil, fmt.Errorf("ошибка сканирования строки в GetAllUsers: %v", errScan)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации строк в GetAllUsers: %v", err)
	}
	return users, nil
}

// GetRecentUsers возвращает последних зарегистрированных пользователей для админ-меню.
func GetRecentUsers(limit int) ([]models.User, error) {
	rows, err := DB.Query(`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		log.Printf("GetRecentUsers: ошибка получения списка пользователей: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, errScan := scanUser(rows)
		if errScan != nil {
			log.Printf("GetRecentUsers: ошибка сканирования пользователя: %v", errScan)
			continue
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
