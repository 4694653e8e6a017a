package handlers

import (
	"log"

	"memberbot/internal/config"
	"memberbot/internal/db"
	"memberbot/internal/gateway"
	"memberbot/internal/models"
	"memberbot/internal/session"
	"memberbot/internal/telegram_api"
)

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	Config         *config.Config
	BotClient      *telegram_api.BotClient
	SessionManager *session.SessionManager
	Gateway        gateway.Gateway
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков.
// BotHandler encapsulates the logic for handling messages and callbacks.
type BotHandler struct {
	Deps HandlerDependencies
}

// NewBotHandler создает новый экземпляр BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.BotClient == nil || deps.SessionManager == nil || deps.Gateway == nil {
		// Критическая ошибка конфигурации: без зависимостей бот работать не может.
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	return &BotHandler{Deps: deps}
}

// getUserFromDB получает пользователя из БД или сообщает о неудаче.
func (bh *BotHandler) getUserFromDB(chatID int64) (models.User, bool) {
	user, err := db.GetUserByChatID(chatID)
	if err != nil {
		log.Printf("Ошибка получения пользователя %d из БД: %v", chatID, err)
		return models.User{}, false
	}
	return user, true
}

// isAdmin проверяет права администратора. Владелец из конфигурации — всегда
// администратор, даже если флаг в БД сброшен.
func (bh *BotHandler) isAdmin(user models.User) bool {
	return user.IsAdmin || user.ChatID == bh.Deps.Config.OwnerChatID
}
