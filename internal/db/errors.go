package db

import (
	"errors"
	"fmt"
	"time"
)

// Типизированные бизнес-ошибки слоя хранения. Это ожидаемые исходы,
// а не аварии: обработчики показывают их пользователю как есть.
// Typed business errors of the storage layer. Expected outcomes, not crashes.
var (
	ErrUserNotFound        = errors.New("пользователь не найден")
	ErrRequestNotFound     = errors.New("заявка не найдена")
	ErrInsufficientBalance = errors.New("недостаточно баллов")
	ErrSelfTransfer        = errors.New("перевод самому себе невозможен")
	ErrTransferDisabled    = errors.New("переводы баллов отключены")
	ErrInvalidAmount       = errors.New("некорректная сумма")
	ErrInvalidMemberCount  = errors.New("некорректное число участников")
	ErrInvalidTransition   = errors.New("недопустимый переход статуса заявки")
)

// GiftCooldownError возвращается, когда ежедневный подарок еще не доступен.
type GiftCooldownError struct {
	Remaining time.Duration
}

func (e *GiftCooldownError) Error() string {
	return fmt.Sprintf("подарок будет доступен через %s", e.Remaining.Round(time.Minute))
}
