package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/gateway"
	"memberbot/internal/models"
)

// Store — операции хранилища, нужные воркеру. Реализуется пакетом db,
// тесты подставляют фейк.
type Store interface {
	ApprovedRequests(limit int) ([]models.FundingRequest, error)
	ActiveGroupSources() ([]models.GroupSource, error)
	IncrementCompleted(requestID int64) (int, error)
	Finalize(requestID int64, status string) error
	UpdateGroupMemberCount(groupID int64, memberCount int) error
}

// Notifier отправляет уведомление пользователю. Ошибки доставки уведомлений
// воркер не интересуют.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Кандидатов запрашивается вдвое больше остатка: часть отсеется
// (уже участники, приватность, боты).
const overFetchFactor = 2

// Deliverer выполняет одну заявку: обходит группы-источники и добавляет
// участников в целевой чат до исчерпания остатка или кандидатов.
type Deliverer struct {
	Gateway  gateway.Gateway
	Store    Store
	Notifier Notifier

	// Пауза между попытками добавления и между группами-источниками.
	// Флуд-контроль Telegram агрессивен к массовым добавлениям.
	AddDelay   time.Duration
	GroupDelay time.Duration
}

// Process обрабатывает одну одобренную заявку. Прогресс сохраняется после
// каждого успешного добавления, поэтому падение процесса теряет не больше
// одной попытки. Возвращает ошибку только при отмене контекста или отказе
// хранилища; исчерпание кандидатов ошибкой не является.
func (d *Deliverer) Process(ctx context.Context, req models.FundingRequest, pools []models.GroupSource) error {
	remaining := req.RequestedMembers - req.CompletedMembers
	if remaining <= 0 {
		// Заявка уже выполнена (например, после перезапуска между последним
		// добавлением и сменой статуса).
		return d.finish(req, req.CompletedMembers, constants.REQUEST_STATUS_COMPLETED)
	}

	addedThisRun := 0
	// Временные сбои шлюза (сеть, флуд-контроль) не должны хоронить заявку:
	// такой проход не считается исчерпанием источников.
	transientSeen := false
	for poolIdx, pool := range pools {
		if remaining <= 0 {
			break
		}
		if poolIdx > 0 {
			if !sleepCtx(ctx, d.GroupDelay) {
				return ctx.Err()
			}
		}

		candidates, err := d.Gateway.ListMembers(pool.GroupID, remaining*overFetchFactor)
		if err != nil {
			log.Printf("Воркер: заявка #%d: ошибка перечисления участников группы %s: %v", req.ID, pool.GroupID, err)
			transientSeen = true
			continue
		}
		// Счетчик участников справочный, его ошибка не прерывает обработку.
		if errCount := d.Store.UpdateGroupMemberCount(pool.ID, len(candidates)); errCount != nil {
			log.Printf("Воркер: ошибка обновления счетчика группы #%d: %v", pool.ID, errCount)
		}

		for _, candidate := range candidates {
			if remaining <= 0 {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			already, errMember := d.Gateway.IsMember(req.TargetChannel, candidate.UserID)
			switch {
			case errMember != nil:
				log.Printf("Воркер: заявка #%d: ошибка проверки членства %d: %v", req.ID, candidate.UserID, errMember)
				transientSeen = true
			case already:
				// Уже в целевом чате: пропуск без зачета и без попытки добавления.
			default:
				outcome, errAdd := d.Gateway.AddMember(req.TargetChannel, candidate.UserID)
				switch outcome {
				case gateway.OutcomeAdded, gateway.OutcomeAlreadyMember:
					// Уже участник — тоже успех: цель заявки достигнута.
					completed, errInc := d.Store.IncrementCompleted(req.ID)
					if errInc != nil {
						if errors.Is(errInc, db.ErrInvalidTransition) {
							// Статус заявки изменился извне, прекращаем обработку.
							log.Printf("Воркер: заявка #%d больше не в статусе approved, обработка остановлена.", req.ID)
							return nil
						}
						return fmt.Errorf("заявка #%d: ошибка сохранения прогресса: %w", req.ID, errInc)
					}
					remaining = req.RequestedMembers - completed
					addedThisRun++
				case gateway.OutcomeTargetAccessDenied:
					// Без прав администратора в целевом чате продолжать бессмысленно.
					log.Printf("Воркер: заявка #%d: нет прав в целевом чате %s: %v", req.ID, req.TargetChannel, errAdd)
					if errFin := d.finish(req, req.RequestedMembers-remaining, constants.REQUEST_STATUS_FAILED); errFin != nil {
						return errFin
					}
					return nil
				case gateway.OutcomeTransient:
					log.Printf("Воркер: заявка #%d: временная ошибка добавления %d: %v", req.ID, candidate.UserID, errAdd)
					transientSeen = true
				default:
					// Приватность, невзаимный контакт, недоступный аккаунт —
					// кандидат просто пропускается.
				}
			}

			// Пауза после каждого кандидата: проверка членства — тоже запрос
			// к шлюзу, подряд идущие пропуски не должны обходить троттлинг.
			if !sleepCtx(ctx, d.AddDelay) {
				return ctx.Err()
			}
		}
	}

	if remaining <= 0 {
		return d.finish(req, req.RequestedMembers, constants.REQUEST_STATUS_COMPLETED)
	}
	if addedThisRun == 0 {
		if transientSeen {
			// Проход сорвали временные сбои шлюза, а не исчерпание кандидатов:
			// заявка остается approved и будет повторена в следующем цикле.
			log.Printf("Воркер: заявка #%d: цикл без добавлений из-за временных ошибок, повтор в следующем цикле.", req.ID)
			return nil
		}
		// Все источники исчерпаны без единого добавления — заявка невыполнима.
		log.Printf("Воркер: заявка #%d: источники исчерпаны, добавлено 0 из %d оставшихся.", req.ID, remaining)
		return d.finish(req, req.RequestedMembers-remaining, constants.REQUEST_STATUS_FAILED)
	}
	// Частичный прогресс: заявка остается approved и будет продолжена
	// в следующем цикле.
	log.Printf("Воркер: заявка #%d: добавлено %d за цикл, осталось %d.", req.ID, addedThisRun, remaining)
	return nil
}

// finish переводит заявку в терминальный статус и уведомляет владельца.
func (d *Deliverer) finish(req models.FundingRequest, completed int, status string) error {
	if err := d.Store.Finalize(req.ID, status); err != nil {
		if errors.Is(err, db.ErrInvalidTransition) {
			// Кто-то уже завершил заявку, уведомление не дублируем.
			return nil
		}
		return fmt.Errorf("заявка #%d: ошибка завершения со статусом %s: %w", req.ID, status, err)
	}
	if d.Notifier == nil {
		return nil
	}
	switch status {
	case constants.REQUEST_STATUS_COMPLETED:
		d.Notifier.Notify(req.UserChatID, fmt.Sprintf(
			"✅ Ваша заявка #%d выполнена: добавлено %d участников в %s.",
			req.ID, req.RequestedMembers, req.TargetChannel))
	case constants.REQUEST_STATUS_FAILED:
		d.Notifier.Notify(req.UserChatID, fmt.Sprintf(
			"⚠️ Заявка #%d остановлена. Добавлено участников: %d из %d. Обратитесь к администратору.",
			req.ID, completed, req.RequestedMembers))
	}
	return nil
}

// sleepCtx ждет d или отмену контекста. Возвращает false при отмене.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
