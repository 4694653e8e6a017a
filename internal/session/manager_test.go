package session

import (
	"testing"

	"memberbot/internal/constants"
)

func TestGetStateDefault(t *testing.T) {
	sm := NewSessionManager()
	if state := sm.GetState(100); state != constants.STATE_IDLE {
		t.Errorf("ожидалось STATE_IDLE для нового пользователя, получено %s", state)
	}
}

func TestSetAndPopState(t *testing.T) {
	sm := NewSessionManager()
	chatID := int64(100)

	sm.SetState(chatID, constants.STATE_IDLE)
	sm.SetState(chatID, constants.STATE_FUNDING_TARGET_TYPE)
	sm.SetState(chatID, constants.STATE_FUNDING_MEMBER_COUNT)

	if state := sm.GetState(chatID); state != constants.STATE_FUNDING_MEMBER_COUNT {
		t.Fatalf("ожидалось STATE_FUNDING_MEMBER_COUNT, получено %s", state)
	}

	if state := sm.PopState(chatID); state != constants.STATE_FUNDING_TARGET_TYPE {
		t.Errorf("PopState: ожидалось STATE_FUNDING_TARGET_TYPE, получено %s", state)
	}
	if state := sm.PopState(chatID); state != constants.STATE_IDLE {
		t.Errorf("PopState: ожидалось STATE_IDLE, получено %s", state)
	}
	// Повторный Pop на пустой истории остается в IDLE.
	if state := sm.PopState(chatID); state != constants.STATE_IDLE {
		t.Errorf("PopState на пустой истории: ожидалось STATE_IDLE, получено %s", state)
	}
}

func TestSetStateNoDuplicateHistory(t *testing.T) {
	sm := NewSessionManager()
	chatID := int64(100)

	sm.SetState(chatID, constants.STATE_FUNDING_TARGET_TYPE)
	sm.SetState(chatID, constants.STATE_FUNDING_TARGET_TYPE)

	if history := sm.GetHistory(chatID); len(history) != 1 {
		t.Errorf("ожидалась история из 1 состояния, получено %v", history)
	}
}

func TestTempFundingLifecycle(t *testing.T) {
	sm := NewSessionManager()
	chatID := int64(200)

	data := sm.GetTempFunding(chatID)
	if data.UserChatID != chatID {
		t.Fatalf("новый черновик должен принадлежать chatID %d, получено %d", chatID, data.UserChatID)
	}

	data.TargetType = constants.TARGET_TYPE_CHANNEL
	data.TargetChannel = "@testchannel"
	data.RequestedMembers = 30
	sm.UpdateTempFunding(chatID, data)

	got := sm.GetTempFunding(chatID)
	if got.TargetChannel != "@testchannel" || got.RequestedMembers != 30 {
		t.Errorf("черновик не сохранился: %+v", got)
	}

	sm.ClearTempFunding(chatID)
	if got := sm.GetTempFunding(chatID); got.TargetChannel != "" {
		t.Errorf("после ClearTempFunding черновик должен быть пустым: %+v", got)
	}
}

func TestResetDialog(t *testing.T) {
	sm := NewSessionManager()
	chatID := int64(300)

	sm.SetState(chatID, constants.STATE_TRANSFER_AMOUNT)
	transfer := sm.GetTempTransfer(chatID)
	transfer.RecipientChatID = 400
	transfer.Amount = 50
	sm.UpdateTempTransfer(chatID, transfer)

	sm.ResetDialog(chatID)

	if state := sm.GetState(chatID); state != constants.STATE_IDLE {
		t.Errorf("после ResetDialog ожидалось STATE_IDLE, получено %s", state)
	}
	if got := sm.GetTempTransfer(chatID); got.Amount != 0 || got.RecipientChatID != 0 {
		t.Errorf("после ResetDialog черновик перевода должен быть пустым: %+v", got)
	}
}
