package db

import (
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"memberbot/internal/constants"
	"memberbot/internal/models"
)

// CreditPoints начисляет баллы пользователю. amount должен быть > 0.
func CreditPoints(chatID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	res, err := DB.Exec("UPDATE users SET points = points + $1 WHERE chat_id = $2", amount, chatID)
	if err != nil {
		log.Printf("CreditPoints: ошибка начисления %d баллов chatID %d: %v", amount, chatID, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	log.Printf("CreditPoints: chatID %d начислено %d баллов.", chatID, amount)
	return nil
}

// DebitPoints списывает баллы пользователя. Проверка баланса и списание —
// один атомарный UPDATE: параллельные списания не могут увести баланс в минус.
// DebitPoints debits the balance. Check-then-act is a single atomic UPDATE.
func DebitPoints(chatID int64, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	res, err := DB.Exec(`
        UPDATE users SET points = points - $1
        WHERE chat_id = $2 AND points >= $1`, amount, chatID)
	if err != nil {
		log.Printf("DebitPoints: ошибка списания %d баллов chatID %d: %v", amount, chatID, err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Либо пользователя нет, либо не хватило баллов — различаем для вызывающего.
		exists, errExists := UserExists(chatID)
		if errExists != nil {
			return errExists
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrInsufficientBalance
	}
	log.Printf("DebitPoints: chatID %d списано %d баллов.", chatID, amount)
	return nil
}

// ComputeTransferFee вычисляет комиссию перевода: floor(amount * feePercent / 100).
func ComputeTransferFee(amount int64, feePercent int) int64 {
	return amount * int64(feePercent) / 100
}

// TransferPoints переводит баллы между пользователями с комиссией.
// Отправитель платит amount+fee, получатель получает ровно amount, комиссия
// никому не зачисляется. Все четыре эффекта — одна транзакция; блокировки
// берутся в порядке возрастания chat_id, чтобы встречные переводы не взаимоблокировались.
func TransferPoints(fromChatID, toChatID, amount int64) (models.PointsTransfer, error) {
	var transfer models.PointsTransfer
	if fromChatID == toChatID {
		return transfer, ErrSelfTransfer
	}
	if amount <= 0 {
		return transfer, ErrInvalidAmount
	}

	system, err := GetSystemSettings()
	if err != nil {
		return transfer, err
	}
	if !system.TransferEnabled {
		return transfer, ErrTransferDisabled
	}
	feePercent := system.TransferFeePercent
	feeAmount := ComputeTransferFee(amount, feePercent)
	totalDebit := amount + feeAmount

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("TransferPoints: ошибка начала транзакции: %v", err)
		return transfer, err
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

	// Блокируем обе строки в стабильном порядке.
	first, second := fromChatID, toChatID
	if second < first {
		first, second = second, first
	}
	lockOne := func(chatID int64) error {
		var id int64
		errLock := tx.QueryRow("SELECT id FROM users WHERE chat_id = $1 FOR UPDATE", chatID).Scan(&id)
		if errLock == sql.ErrNoRows {
			return ErrUserNotFound
		}
		return errLock
	}
	if opErr = lockOne(first); opErr != nil {
		return transfer, opErr
	}
	if opErr = lockOne(second); opErr != nil {
		return transfer, opErr
	}

	var senderPoints int64
	opErr = tx.QueryRow("SELECT points FROM users WHERE chat_id = $1", fromChatID).Scan(&senderPoints)
	if opErr != nil {
		log.Printf("TransferPoints: ошибка чтения баланса отправителя %d: %v", fromChatID, opErr)
		return transfer, opErr
	}
	if senderPoints < totalDebit {
		opErr = ErrInsufficientBalance
		return transfer, opErr
	}

	if _, opErr = tx.Exec("UPDATE users SET points = points - $1 WHERE chat_id = $2", totalDebit, fromChatID); opErr != nil {
		log.Printf("TransferPoints: ошибка списания у отправителя %d: %v", fromChatID, opErr)
		return transfer, opErr
	}
	if _, opErr = tx.Exec("UPDATE users SET points = points + $1 WHERE chat_id = $2", amount, toChatID); opErr != nil {
		log.Printf("TransferPoints: ошибка зачисления получателю %d: %v", toChatID, opErr)
		return transfer, opErr
	}

	transfer = models.PointsTransfer{
		TransferUID: uuid.New().String(),
		FromChatID:  fromChatID,
		ToChatID:    toChatID,
		Amount:      amount,
		FeePercent:  feePercent,
		FeeAmount:   feeAmount,
	}
	opErr = tx.QueryRow(`
        INSERT INTO points_transfers (transfer_uid, from_chat_id, to_chat_id, amount, fee_percent, fee_amount, transfer_date)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id, transfer_date`,
		transfer.TransferUID, fromChatID, toChatID, amount, feePercent, feeAmount).
		Scan(&transfer.ID, &transfer.TransferDate)
	if opErr != nil {
		log.Printf("TransferPoints: ошибка записи перевода %d -> %d: %v", fromChatID, toChatID, opErr)
		return transfer, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		log.Printf("TransferPoints: ошибка коммита транзакции: %v", opErr)
		return transfer, opErr
	}
	log.Printf("Перевод #%d (%s): %d -> %d, сумма %d, комиссия %d.",
		transfer.ID, transfer.TransferUID, fromChatID, toChatID, amount, feeAmount)
	return transfer, nil
}

// DailyGiftRemaining возвращает, сколько осталось ждать до следующего
// подарка. Ноль означает, что подарок доступен. Окно скользящее от момента
// последнего получения, а не календарные сутки: так две выдачи не попадают
// в один календарный день и подарок не задерживается через полночь.
func DailyGiftRemaining(now time.Time, lastGift sql.NullTime, window time.Duration) time.Duration {
	if !lastGift.Valid {
		return 0
	}
	elapsed := now.Sub(lastGift.Time)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}

// ClaimDailyGift начисляет ежедневный подарок, если с последнего получения
// прошло не меньше суток. Окно скользящее от last_daily_gift, а не календарное.
// Возвращает размер подарка или GiftCooldownError с оставшимся временем.
func ClaimDailyGift(chatID int64, now time.Time) (int64, error) {
	settings, err := GetPointsSettings()
	if err != nil {
		return 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		log.Printf("ClaimDailyGift: ошибка начала транзакции: %v", err)
		return 0, err
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

	var lastGift sql.NullTime
	opErr = tx.QueryRow("SELECT last_daily_gift FROM users WHERE chat_id = $1 FOR UPDATE", chatID).Scan(&lastGift)
	if opErr != nil {
		if opErr == sql.ErrNoRows {
			opErr = ErrUserNotFound
		}
		return 0, opErr
	}

	if remaining := DailyGiftRemaining(now, lastGift, constants.DAILY_GIFT_WINDOW_HOURS*time.Hour); remaining > 0 {
		opErr = &GiftCooldownError{Remaining: remaining}
		return 0, opErr
	}

	_, opErr = tx.Exec(`
        UPDATE users SET points = points + $1, last_daily_gift = $2 WHERE chat_id = $3`,
		settings.DailyGiftPoints, now, chatID)
	if opErr != nil {
		log.Printf("ClaimDailyGift: ошибка начисления подарка chatID %d: %v", chatID, opErr)
		return 0, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		log.Printf("ClaimDailyGift: ошибка коммита транзакции: %v", opErr)
		return 0, opErr
	}
	log.Printf("ClaimDailyGift: chatID %d получил ежедневный подарок %d баллов.", chatID, settings.DailyGiftPoints)
	return settings.DailyGiftPoints, nil
}

// GrantChannelSubscriptionReward начисляет награду за подписку на обязательный
// канал. Награда за каждый канал выдается один раз: повторная проверка подписки
// не приводит к повторному начислению.
func GrantChannelSubscriptionReward(chatID int64, channelID string) (bool, error) {
	settings, err := GetPointsSettings()
	if err != nil {
		return false, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return false, err
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

	res, opErr := tx.Exec(`
        INSERT INTO channel_sub_rewards (user_chat_id, channel_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_chat_id, channel_id) DO NOTHING`, chatID, channelID)
	if opErr != nil {
		log.Printf("GrantChannelSubscriptionReward: ошибка записи награды для chatID %d, канал %s: %v", chatID, channelID, opErr)
		return false, opErr
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Награда за этот канал уже выдавалась.
		opErr = tx.Rollback()
		return false, opErr
	}

	if _, opErr = tx.Exec("UPDATE users SET points = points + $1 WHERE chat_id = $2",
		settings.PointsPerChannel, chatID); opErr != nil {
		log.Printf("GrantChannelSubscriptionReward: ошибка начисления баллов chatID %d: %v", chatID, opErr)
		return false, opErr
	}

	if opErr = tx.Commit(); opErr != nil {
		return false, opErr
	}
	log.Printf("GrantChannelSubscriptionReward: chatID %d получил %d баллов за подписку на %s.",
		chatID, settings.PointsPerChannel, channelID)
	return true, nil
}
