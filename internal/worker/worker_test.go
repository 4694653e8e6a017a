package worker

import (
	"context"
	"testing"
	"time"

	"memberbot/internal/constants"
	"memberbot/internal/gateway"
	"memberbot/internal/models"
)

func TestRunCycleProcessesApprovedRequests(t *testing.T) {
	store := newFakeStore(
		approvedRequest(1, 2, 0),
		approvedRequest(2, 1, 0),
	)
	store.pools = []models.GroupSource{{ID: 1, GroupID: "g1"}}
	gw := &fakeGateway{members: map[string][]gateway.Member{"g1": membersRange(10, 19)}}
	w := New(store, newDeliverer(store, gw, &fakeNotifier{}), time.Minute, time.Second, 2)

	if err := w.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: неожиданная ошибка: %v", err)
	}

	for _, id := range []int64{1, 2} {
		if got := store.request(id); got.Status != constants.REQUEST_STATUS_COMPLETED {
			t.Errorf("заявка #%d: ожидался статус completed, получен %s", id, got.Status)
		}
	}
}

func TestRunCycleNoPools(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 2, 0))
	gw := &fakeGateway{}
	w := New(store, newDeliverer(store, gw, &fakeNotifier{}), time.Minute, time.Second, 2)

	if err := w.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: неожиданная ошибка: %v", err)
	}
	// Без источников заявка остается approved и ждет следующего цикла.
	if got := store.request(1); got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("ожидался статус approved, получен %s", got.Status)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{}
	w := New(store, newDeliverer(store, gw, &fakeNotifier{}), time.Hour, time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}

// cancelingGateway отменяет контекст сразу после первого добавления,
// имитируя сигнал завершения посреди обработки заявки.
type cancelingGateway struct {
	*fakeGateway
	cancel context.CancelFunc
}

func (g *cancelingGateway) AddMember(chatID string, userID int64) (gateway.AddOutcome, error) {
	outcome, err := g.fakeGateway.AddMember(chatID, userID)
	g.cancel()
	return outcome, err
}

func TestRunPersistsInFlightProgressBeforeStopping(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 3, 0))
	store.pools = []models.GroupSource{{ID: 1, GroupID: "g1"}}

	ctx, cancel := context.WithCancel(context.Background())
	gw := &cancelingGateway{
		fakeGateway: &fakeGateway{members: map[string][]gateway.Member{"g1": membersRange(10, 19)}},
		cancel:      cancel,
	}
	w := New(store, &Deliverer{Gateway: gw, Store: store, Notifier: &fakeNotifier{}}, time.Hour, time.Hour, 1)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}

	// Успешное добавление, случившееся до сигнала, сохранено, заявка
	// остается approved и будет продолжена после перезапуска.
	got := store.request(1)
	if got.CompletedMembers != 1 {
		t.Errorf("прогресс до остановки должен быть записан: ожидалось 1, получено %d", got.CompletedMembers)
	}
	if got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("ожидался статус approved, получен %s", got.Status)
	}
}

func TestLockForTargetReturnsSameMutex(t *testing.T) {
	w := New(newFakeStore(), nil, time.Minute, time.Second, 1)
	if w.lockForTarget("@a") != w.lockForTarget("@a") {
		t.Error("для одного целевого чата должен возвращаться один мьютекс")
	}
	if w.lockForTarget("@a") == w.lockForTarget("@b") {
		t.Error("для разных целевых чатов мьютексы должны различаться")
	}
}
