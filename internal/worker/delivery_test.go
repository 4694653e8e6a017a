package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/gateway"
	"memberbot/internal/models"
)

// fakeStore хранит заявки в памяти и повторяет переходную логику пакета db.
type fakeStore struct {
	mu       sync.Mutex
	requests map[int64]*models.FundingRequest
	pools    []models.GroupSource
}

func newFakeStore(requests ...models.FundingRequest) *fakeStore {
	s := &fakeStore{requests: make(map[int64]*models.FundingRequest)}
	for i := range requests {
		r := requests[i]
		s.requests[r.ID] = &r
	}
	return s
}

func (s *fakeStore) ApprovedRequests(limit int) ([]models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FundingRequest
	for _, r := range s.requests {
		if r.Status == constants.REQUEST_STATUS_APPROVED && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveGroupSources() ([]models.GroupSource, error) {
	return s.pools, nil
}

func (s *fakeStore) IncrementCompleted(requestID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || r.Status != constants.REQUEST_STATUS_APPROVED || r.CompletedMembers >= r.RequestedMembers {
		return 0, db.ErrInvalidTransition
	}
	r.CompletedMembers++
	return r.CompletedMembers, nil
}

func (s *fakeStore) Finalize(requestID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || r.Status != constants.REQUEST_STATUS_APPROVED {
		return db.ErrInvalidTransition
	}
	r.Status = status
	return nil
}

func (s *fakeStore) UpdateGroupMemberCount(groupID int64, memberCount int) error { return nil }

func (s *fakeStore) request(id int64) models.FundingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.requests[id]
}

// fakeGateway отдает заранее заданных кандидатов и исходы добавления.
type fakeGateway struct {
	mu        sync.Mutex
	members   map[string][]gateway.Member  // groupID -> кандидаты
	existing  map[int64]bool               // userID -> уже в целевом чате
	outcomes  map[int64]gateway.AddOutcome // userID -> исход добавления
	listErr   map[string]error             // groupID -> ошибка перечисления
	memberErr map[int64]error              // userID -> ошибка проверки членства
	added     []int64                      // успешно добавленные
}

func (g *fakeGateway) ListMembers(groupID string, limit int) ([]gateway.Member, error) {
	if err := g.listErr[groupID]; err != nil {
		return nil, err
	}
	members := g.members[groupID]
	if len(members) > limit {
		members = members[:limit]
	}
	return members, nil
}

func (g *fakeGateway) IsMember(chatID string, userID int64) (bool, error) {
	if err := g.memberErr[userID]; err != nil {
		return false, err
	}
	return g.existing[userID], nil
}

func (g *fakeGateway) AddMember(chatID string, userID int64) (gateway.AddOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	outcome, ok := g.outcomes[userID]
	if !ok {
		outcome = gateway.OutcomeAdded
	}
	switch outcome {
	case gateway.OutcomeAdded:
		g.added = append(g.added, userID)
		return outcome, nil
	case gateway.OutcomeTargetAccessDenied, gateway.OutcomeTransient:
		return outcome, fmt.Errorf("telegram: %s", outcome)
	}
	return outcome, nil
}

func (g *fakeGateway) ResolveChat(ref string) (gateway.ChatInfo, error) {
	return gateway.ChatInfo{ID: ref, Title: ref}, nil
}

// fakeNotifier записывает отправленные уведомления.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(chatID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func membersRange(from, to int64) []gateway.Member {
	var out []gateway.Member
	for id := from; id <= to; id++ {
		out = append(out, gateway.Member{UserID: id})
	}
	return out
}

func newDeliverer(store *fakeStore, gw *fakeGateway, notifier *fakeNotifier) *Deliverer {
	return &Deliverer{Gateway: gw, Store: store, Notifier: notifier}
}

func approvedRequest(id int64, requested, completed int) models.FundingRequest {
	return models.FundingRequest{
		ID:               id,
		UserChatID:       1000 + id,
		TargetChannel:    "@target",
		TargetType:       constants.TARGET_TYPE_CHANNEL,
		RequestedMembers: requested,
		CompletedMembers: completed,
		Status:           constants.REQUEST_STATUS_APPROVED,
	}
}

func TestProcessCompletesRequest(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 3, 0))
	gw := &fakeGateway{members: map[string][]gateway.Member{"g1": membersRange(10, 19)}}
	notifier := &fakeNotifier{}
	d := newDeliverer(store, gw, notifier)

	err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}})
	if err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_COMPLETED {
		t.Errorf("ожидался статус completed, получен %s", got.Status)
	}
	if got.CompletedMembers != 3 {
		t.Errorf("ожидалось 3 добавленных, получено %d", got.CompletedMembers)
	}
	if len(gw.added) != 3 {
		t.Errorf("ожидалось 3 вызова AddMember с успехом, получено %d", len(gw.added))
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "выполнена") {
		t.Errorf("ожидалось уведомление о выполнении, получено %v", notifier.messages)
	}
}

func TestProcessPartialProgressStaysApproved(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 10, 0))
	// Кандидатов меньше, чем нужно: цикл добавляет двоих и оставляет заявку.
	gw := &fakeGateway{members: map[string][]gateway.Member{"g1": membersRange(10, 11)}}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("при частичном прогрессе заявка должна остаться approved, получен %s", got.Status)
	}
	if got.CompletedMembers != 2 {
		t.Errorf("ожидалось 2 добавленных, получено %d", got.CompletedMembers)
	}
}

func TestProcessExhaustedPoolsFails(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 5, 2))
	// Все кандидаты недоступны: ни одного добавления за цикл.
	gw := &fakeGateway{
		members: map[string][]gateway.Member{"g1": membersRange(10, 12)},
		outcomes: map[int64]gateway.AddOutcome{
			10: gateway.OutcomePrivacyRestricted,
			11: gateway.OutcomeNotMutualContact,
			12: gateway.OutcomeUserUnavailable,
		},
	}
	notifier := &fakeNotifier{}
	d := newDeliverer(store, gw, notifier)

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_FAILED {
		t.Errorf("ожидался статус failed, получен %s", got.Status)
	}
	// Уже добавленные участники сохраняются, возврата баллов нет.
	if got.CompletedMembers != 2 {
		t.Errorf("completed_members должен сохраниться (2), получено %d", got.CompletedMembers)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "2 из 5") {
		t.Errorf("ожидалось уведомление с прогрессом '2 из 5', получено %v", notifier.messages)
	}
}

func TestProcessAbortsWithoutTargetRights(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 5, 0))
	gw := &fakeGateway{
		members:  map[string][]gateway.Member{"g1": membersRange(10, 19)},
		outcomes: map[int64]gateway.AddOutcome{10: gateway.OutcomeTargetAccessDenied},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_FAILED {
		t.Errorf("без прав в целевом чате заявка должна стать failed, получен %s", got.Status)
	}
	if len(gw.added) != 0 {
		t.Errorf("после отказа в правах добавлений быть не должно, получено %d", len(gw.added))
	}
}

func TestProcessAlreadyParticipantCountsAsSuccess(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 2, 0))
	gw := &fakeGateway{
		members:  map[string][]gateway.Member{"g1": membersRange(10, 11)},
		outcomes: map[int64]gateway.AddOutcome{10: gateway.OutcomeAlreadyMember},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_COMPLETED {
		t.Errorf("ожидался статус completed, получен %s", got.Status)
	}
	if got.CompletedMembers != 2 {
		t.Errorf("исход already_member должен засчитываться, получено %d из 2", got.CompletedMembers)
	}
}

func TestProcessSkipsExistingMembersWithoutCounting(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 2, 0))
	gw := &fakeGateway{
		members:  map[string][]gateway.Member{"g1": membersRange(10, 13)},
		existing: map[int64]bool{10: true, 11: true},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.CompletedMembers != 2 {
		t.Errorf("ожидалось 2 добавленных, получено %d", got.CompletedMembers)
	}
	// Добавлялись только кандидаты, которых еще не было в целевом чате.
	for _, id := range gw.added {
		if id == 10 || id == 11 {
			t.Errorf("кандидат %d уже состоял в чате и не должен был добавляться", id)
		}
	}
}

func TestProcessListErrorKeepsRequestApproved(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 5, 0))
	// Единственный источник недоступен из-за сетевой ошибки: это не
	// исчерпание кандидатов, заявка должна дождаться следующего цикла.
	gw := &fakeGateway{
		listErr: map[string]error{"g1": fmt.Errorf("telegram: timeout")},
	}
	notifier := &fakeNotifier{}
	d := newDeliverer(store, gw, notifier)

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("после временной ошибки перечисления заявка должна остаться approved, получен %s", got.Status)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("уведомлений о завершении быть не должно, получено %v", notifier.messages)
	}
}

func TestProcessAllTransientAddsKeepRequestApproved(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 3, 0))
	gw := &fakeGateway{
		members: map[string][]gateway.Member{"g1": membersRange(10, 12)},
		outcomes: map[int64]gateway.AddOutcome{
			10: gateway.OutcomeTransient,
			11: gateway.OutcomeTransient,
			12: gateway.OutcomeTransient,
		},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	if got := store.request(1); got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("после чисто временных ошибок добавления заявка должна остаться approved, получен %s", got.Status)
	}
}

func TestProcessMemberCheckErrorKeepsRequestApproved(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 2, 0))
	gw := &fakeGateway{
		members: map[string][]gateway.Member{"g1": membersRange(10, 11)},
		memberErr: map[int64]error{
			10: fmt.Errorf("telegram: timeout"),
			11: fmt.Errorf("telegram: timeout"),
		},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	if got := store.request(1); got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("после временных ошибок проверки членства заявка должна остаться approved, получен %s", got.Status)
	}
}

func TestProcessTransientMixedWithPermanentSkipsStaysApproved(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 5, 2))
	// Постоянные отказы вперемешку с временным: одного временного сбоя
	// достаточно, чтобы не хоронить заявку в этом цикле.
	gw := &fakeGateway{
		members: map[string][]gateway.Member{"g1": membersRange(10, 12)},
		outcomes: map[int64]gateway.AddOutcome{
			10: gateway.OutcomePrivacyRestricted,
			11: gateway.OutcomeTransient,
			12: gateway.OutcomeNotMutualContact,
		},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("ожидался статус approved, получен %s", got.Status)
	}
	if got.CompletedMembers != 2 {
		t.Errorf("прогресс должен сохраниться (2), получено %d", got.CompletedMembers)
	}
}

func TestProcessDelaysBetweenSkippedCandidates(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 1, 0))
	// Все кандидаты уже состоят в целевом чате: каждый пропуск — это
	// запрос к шлюзу, пауза обязана применяться и между пропусками.
	gw := &fakeGateway{
		members:  map[string][]gateway.Member{"g1": membersRange(10, 14)},
		existing: map[int64]bool{10: true, 11: true, 12: true, 13: true, 14: true},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})
	d.AddDelay = 20 * time.Millisecond

	start := time.Now()
	if err := d.Process(context.Background(), store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}
	// 2 кандидата (remaining*overFetchFactor) по 20мс паузы каждый.
	if elapsed := time.Since(start); elapsed < 2*d.AddDelay {
		t.Errorf("паузы между пропусками не применялись: прошло %v, ожидалось не меньше %v", elapsed, 2*d.AddDelay)
	}
}

func TestProcessFallsThroughToNextPool(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 3, 0))
	gw := &fakeGateway{
		members: map[string][]gateway.Member{
			"g1": membersRange(10, 10),
			"g2": membersRange(20, 29),
		},
	}
	d := newDeliverer(store, gw, &fakeNotifier{})

	pools := []models.GroupSource{{ID: 1, GroupID: "g1"}, {ID: 2, GroupID: "g2"}}
	if err := d.Process(context.Background(), store.request(1), pools); err != nil {
		t.Fatalf("Process: неожиданная ошибка: %v", err)
	}

	got := store.request(1)
	if got.Status != constants.REQUEST_STATUS_COMPLETED {
		t.Errorf("ожидался статус completed, получен %s", got.Status)
	}
	if len(gw.added) != 3 {
		t.Errorf("ожидалось 3 добавления из двух групп, получено %d", len(gw.added))
	}
}

func TestProcessCanceledContext(t *testing.T) {
	store := newFakeStore(approvedRequest(1, 5, 0))
	gw := &fakeGateway{members: map[string][]gateway.Member{"g1": membersRange(10, 19)}}
	d := newDeliverer(store, gw, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Process(ctx, store.request(1), []models.GroupSource{{ID: 1, GroupID: "g1"}}); err == nil {
		t.Fatal("ожидалась ошибка отмененного контекста")
	}
	// Отмена не переводит заявку в терминальный статус.
	if got := store.request(1); got.Status != constants.REQUEST_STATUS_APPROVED {
		t.Errorf("после отмены заявка должна остаться approved, получен %s", got.Status)
	}
}
