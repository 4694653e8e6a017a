package session

import (
	"log"
	"sync"

	"memberbot/internal/constants"
)

// SessionManager управляет состояниями пользователей и временными данными диалогов.
// SessionManager manages user states and temporary dialog data.
type SessionManager struct {
	userStates     map[int64]string   // Ключ: chatID, Значение: текущее состояние / Key: chatID, Value: current state
	userStateMutex sync.RWMutex       // Мьютекс для userStates и userHistory / Mutex for userStates and userHistory
	userHistory    map[int64][]string // Ключ: chatID, Значение: история состояний / Key: chatID, Value: state history

	tempFundings      map[int64]TempFundingData
	tempFundingsMutex sync.RWMutex

	tempTransfers      map[int64]TempTransferData
	tempTransfersMutex sync.RWMutex

	tempAdmin      map[int64]TempAdminData
	tempAdminMutex sync.RWMutex

	// ID "главного" сообщения бота в каждом чате: все экраны редактируют его,
	// а не плодят новые сообщения.
	menuMessages      map[int64]int
	menuMessagesMutex sync.RWMutex
}

// NewSessionManager создает и возвращает новый экземпляр SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		userStates:    make(map[int64]string),
		userHistory:   make(map[int64][]string),
		tempFundings:  make(map[int64]TempFundingData),
		tempTransfers: make(map[int64]TempTransferData),
		tempAdmin:     make(map[int64]TempAdminData),
		menuMessages:  make(map[int64]int),
	}
}

// --- Управление состоянием пользователя (User State) ---

// GetState возвращает текущее состояние пользователя.
// Если состояние не установлено, возвращает STATE_IDLE.
func (sm *SessionManager) GetState(chatID int64) string {
	sm.userStateMutex.RLock()
	defer sm.userStateMutex.RUnlock()
	state, ok := sm.userStates[chatID]
	if !ok {
		return constants.STATE_IDLE
	}
	return state
}

// SetState устанавливает новое состояние для пользователя и добавляет его в историю.
func (sm *SessionManager) SetState(chatID int64, state string) {
	sm.userStateMutex.Lock()
	defer sm.userStateMutex.Unlock()

	sm.userStates[chatID] = state
	// Не дублируем последнее состояние в истории.
	historyLen := len(sm.userHistory[chatID])
	if historyLen == 0 || sm.userHistory[chatID][historyLen-1] != state {
		sm.userHistory[chatID] = append(sm.userHistory[chatID], state)
	}
	log.Printf("SessionManager.SetState: Состояние для chatID %d установлено: %s", chatID, state)
}

// PopState удаляет последнее состояние из истории и устанавливает предыдущее как текущее.
// Возвращает новое текущее состояние. Если история пуста или содержит одно состояние,
// устанавливает STATE_IDLE.
func (sm *SessionManager) PopState(chatID int64) string {
	sm.userStateMutex.Lock()
	defer sm.userStateMutex.Unlock()

	history, ok := sm.userHistory[chatID]
	if ok && len(history) > 1 {
		sm.userHistory[chatID] = history[:len(history)-1]
		newState := sm.userHistory[chatID][len(sm.userHistory[chatID])-1]
		sm.userStates[chatID] = newState
		return newState
	}

	sm.userStates[chatID] = constants.STATE_IDLE
	sm.userHistory[chatID] = []string{constants.STATE_IDLE}
	return constants.STATE_IDLE
}

// GetHistory возвращает копию истории состояний пользователя.
func (sm *SessionManager) GetHistory(chatID int64) []string {
	sm.userStateMutex.RLock()
	defer sm.userStateMutex.RUnlock()
	if history, ok := sm.userHistory[chatID]; ok {
		historyCopy := make([]string, len(history))
		copy(historyCopy, history)
		return historyCopy
	}
	return []string{}
}

// ClearState сбрасывает состояние пользователя к STATE_IDLE и очищает историю.
func (sm *SessionManager) ClearState(chatID int64) {
	sm.userStateMutex.Lock()
	defer sm.userStateMutex.Unlock()
	sm.userStates[chatID] = constants.STATE_IDLE
	sm.userHistory[chatID] = []string{constants.STATE_IDLE}
}

// --- Управление черновиками заявок (Temp Fundings) ---

// GetTempFunding возвращает черновик заявки пользователя.
// Если черновика нет, создает новый пустой.
func (sm *SessionManager) GetTempFunding(chatID int64) TempFundingData {
	sm.tempFundingsMutex.RLock()
	data, exists := sm.tempFundings[chatID]
	sm.tempFundingsMutex.RUnlock()

	if !exists {
		newData := NewTempFunding(chatID)
		sm.tempFundingsMutex.Lock()
		sm.tempFundings[chatID] = newData
		sm.tempFundingsMutex.Unlock()
		return newData
	}
	return data
}

// UpdateTempFunding обновляет черновик заявки пользователя.
func (sm *SessionManager) UpdateTempFunding(chatID int64, data TempFundingData) {
	sm.tempFundingsMutex.Lock()
	defer sm.tempFundingsMutex.Unlock()
	sm.tempFundings[chatID] = data
}

// ClearTempFunding удаляет черновик заявки пользователя.
func (sm *SessionManager) ClearTempFunding(chatID int64) {
	sm.tempFundingsMutex.Lock()
	defer sm.tempFundingsMutex.Unlock()
	delete(sm.tempFundings, chatID)
}

// --- Управление черновиками переводов (Temp Transfers) ---

// GetTempTransfer возвращает черновик перевода пользователя.
func (sm *SessionManager) GetTempTransfer(chatID int64) TempTransferData {
	sm.tempTransfersMutex.RLock()
	data, exists := sm.tempTransfers[chatID]
	sm.tempTransfersMutex.RUnlock()

	if !exists {
		newData := NewTempTransfer(chatID)
		sm.tempTransfersMutex.Lock()
		sm.tempTransfers[chatID] = newData
		sm.tempTransfersMutex.Unlock()
		return newData
	}
	return data
}

// UpdateTempTransfer обновляет черновик перевода пользователя.
func (sm *SessionManager) UpdateTempTransfer(chatID int64, data TempTransferData) {
	sm.tempTransfersMutex.Lock()
	defer sm.tempTransfersMutex.Unlock()
	sm.tempTransfers[chatID] = data
}

// ClearTempTransfer удаляет черновик перевода пользователя.
func (sm *SessionManager) ClearTempTransfer(chatID int64) {
	sm.tempTransfersMutex.Lock()
	defer sm.tempTransfersMutex.Unlock()
	delete(sm.tempTransfers, chatID)
}

// --- Управление админ-контекстом (Temp Admin) ---

// GetTempAdmin возвращает контекст многошаговой админ-операции.
func (sm *SessionManager) GetTempAdmin(chatID int64) TempAdminData {
	sm.tempAdminMutex.RLock()
	data, exists := sm.tempAdmin[chatID]
	sm.tempAdminMutex.RUnlock()

	if !exists {
		newData := NewTempAdmin(chatID)
		sm.tempAdminMutex.Lock()
		sm.tempAdmin[chatID] = newData
		sm.tempAdminMutex.Unlock()
		return newData
	}
	return data
}

// UpdateTempAdmin обновляет контекст админ-операции.
func (sm *SessionManager) UpdateTempAdmin(chatID int64, data TempAdminData) {
	sm.tempAdminMutex.Lock()
	defer sm.tempAdminMutex.Unlock()
	sm.tempAdmin[chatID] = data
}

// ClearTempAdmin удаляет контекст админ-операции.
func (sm *SessionManager) ClearTempAdmin(chatID int64) {
	sm.tempAdminMutex.Lock()
	defer sm.tempAdminMutex.Unlock()
	delete(sm.tempAdmin, chatID)
}

// --- Главное сообщение чата (Menu Message) ---

// GetMenuMessageID возвращает ID главного сообщения бота в чате (0, если нет).
func (sm *SessionManager) GetMenuMessageID(chatID int64) int {
	sm.menuMessagesMutex.RLock()
	defer sm.menuMessagesMutex.RUnlock()
	return sm.menuMessages[chatID]
}

// SetMenuMessageID запоминает ID главного сообщения бота в чате.
func (sm *SessionManager) SetMenuMessageID(chatID int64, messageID int) {
	sm.menuMessagesMutex.Lock()
	defer sm.menuMessagesMutex.Unlock()
	if messageID == 0 {
		delete(sm.menuMessages, chatID)
		return
	}
	sm.menuMessages[chatID] = messageID
}

// ResetDialog сбрасывает состояние и все черновики пользователя.
// Вызывается по /start и кнопке "Главное меню".
func (sm *SessionManager) ResetDialog(chatID int64) {
	sm.ClearState(chatID)
	sm.ClearTempFunding(chatID)
	sm.ClearTempTransfer(chatID)
	sm.ClearTempAdmin(chatID)
}
