package worker

import (
	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
	"memberbot/internal/telegram_api"
)

// DBStore реализует Store поверх пакета db.
type DBStore struct{}

func (DBStore) ApprovedRequests(limit int) ([]models.FundingRequest, error) {
	return db.GetRequestsByStatus(constants.REQUEST_STATUS_APPROVED, limit)
}

func (DBStore) ActiveGroupSources() ([]models.GroupSource, error) {
	return db.GetActiveGroupSources()
}

func (DBStore) IncrementCompleted(requestID int64) (int, error) {
	return db.IncrementCompletedMembers(requestID)
}

func (DBStore) Finalize(requestID int64, status string) error {
	return db.FinalizeRequest(requestID, status)
}

func (DBStore) UpdateGroupMemberCount(groupID int64, memberCount int) error {
	return db.UpdateGroupSourceMemberCount(groupID, memberCount)
}

// BotNotifier реализует Notifier через глобальный BotClient.
type BotNotifier struct{}

func (BotNotifier) Notify(chatID int64, text string) {
	telegram_api.Notify(telegram_api.Client, chatID, text)
}
