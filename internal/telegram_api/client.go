package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// BotClient — обертка над Telegram Bot API.
// BotClient is a wrapper around the Telegram Bot API.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// Глобальный экземпляр бота для пакета.
// Global bot instance for the package.
var Client *BotClient

// InitBot инициализирует Telegram бота.
// token - API токен бота, debug - режим отладки.
// InitBot initializes the Telegram bot.
func InitBot(token string, debug bool) error {
	if token == "" {
		return fmt.Errorf("токен Telegram API не предоставлен")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug

	log.Printf("Авторизован как аккаунт %s", api.Self.UserName)

	// Отключаем вебхук, если он активен (важно для getUpdates).
	// Disable webhook if active (important for getUpdates).
	_, err = api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		log.Printf("Предупреждение при отключении вебхука: %v. Это нормально, если вебхук не был установлен.", err)
	}

	Client = &BotClient{
		api:   api,
		Debug: debug,
	}
	return nil
}

// GetAPI возвращает нижележащий экземпляр *tgbotapi.BotAPI.
func (bc *BotClient) GetAPI() *tgbotapi.BotAPI {
	if bc == nil || bc.api == nil {
		log.Fatal("BotClient или его API не инициализирован.")
	}
	return bc.api
}

// GetUpdatesChan возвращает канал обновлений от Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if bc == nil || bc.api == nil {
		log.Fatal("BotClient или его API не инициализирован перед запросом обновлений.")
	}
	return bc.api.GetUpdatesChan(config)
}

// Send отправляет сообщение через BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			log.Printf("Отправка сообщения: ChatID=%d, Text='%.50s...'", msg.ChatID, msg.Text)
		} else {
			log.Printf("Отправка/запрос типа %T", c)
		}
	}
	return bc.api.Send(c)
}

// Request выполняет запрос через BotClient.
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient или его API не инициализирован")
	}
	return bc.api.Request(c)
}

// MakeRequest выполняет произвольный запрос к API Telegram.
// Используется для вызовов, не обернутых в стандартные методы tgbotapi
// (перечисление участников, добавление участника).
// MakeRequest performs an arbitrary request to the Telegram API.
func (bc *BotClient) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		log.Printf("Выполнение MakeRequest: endpoint=%s, params=%v", endpoint, params)
	}
	return bc.api.MakeRequest(endpoint, params)
}
