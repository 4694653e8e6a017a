// internal/config/config.go
package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	AppEnv        string
	BotUsername   string
	OwnerChatID   int64
	APIToken      string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Параметры фонового воркера добавления участников.
	// Fulfillment worker parameters.
	WorkerPollInterval  time.Duration // интервал между циклами обработки одобренных заявок
	WorkerErrorInterval time.Duration // укороченный интервал после ошибки цикла
	AddMemberDelay      time.Duration // минимальная пауза между попытками добавления
	WorkerPoolSize      int           // сколько заявок обрабатывается параллельно

	// Максимальное число участников в одной заявке на накрутку.
	MaxMembersPerRequest int
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_APITOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AppEnv:        os.Getenv("ENV"),
		BotUsername:   os.Getenv("BOT_USERNAME"),
		APIToken:      os.Getenv("API_TOKEN"),
	}

	var err error
	cfg.OwnerChatID, err = strconv.ParseInt(os.Getenv("OWNER_CHAT_ID"), 10, 64)
	if err != nil {
		log.Printf("Предупреждение: не удалось прочитать OWNER_CHAT_ID: %v. Установлено в 0.", err)
		cfg.OwnerChatID = 0
	}

	cfg.WorkerPollInterval = durationFromEnv("WORKER_POLL_INTERVAL_SEC", 300*time.Second)
	cfg.WorkerErrorInterval = durationFromEnv("WORKER_ERROR_INTERVAL_SEC", 60*time.Second)
	cfg.AddMemberDelay = durationFromEnv("ADD_MEMBER_DELAY_SEC", 1*time.Second)

	cfg.WorkerPoolSize = intFromEnv("WORKER_POOL_SIZE", 2)
	if cfg.WorkerPoolSize < 1 {
		log.Printf("Предупреждение: WORKER_POOL_SIZE меньше 1, используется 1.")
		cfg.WorkerPoolSize = 1
	}
	cfg.MaxMembersPerRequest = intFromEnv("MAX_MEMBERS_PER_REQUEST", 50)

	if cfg.TelegramToken == "" {
		log.Println("Критическая ошибка: TELEGRAM_APITOKEN не установлен.")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Критическая ошибка: DATABASE_URL не установлен.")
	} else {
		parsedURL, parseErr := url.Parse(cfg.DatabaseURL)
		if parseErr != nil {
			log.Printf("Критическая ошибка: ошибка парсинга DATABASE_URL: %v", parseErr)
		} else {
			cfg.DBHost = parsedURL.Hostname()
			cfg.DBPort = parsedURL.Port()
			if cfg.DBPort == "" {
				cfg.DBPort = "5432"
			}
			cfg.DBUser = parsedURL.User.Username()
			cfg.DBPassword, _ = parsedURL.User.Password()
			cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")
		}
	}
	if cfg.BotUsername == "" {
		log.Println("Предупреждение: BOT_USERNAME не установлен. Реферальные ссылки работать не будут.")
	}
	if cfg.APIToken == "" {
		log.Println("Предупреждение: API_TOKEN не установлен. Админский HTTP API будет недоступен.")
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}

// durationFromEnv читает число секунд из переменной окружения.
func durationFromEnv(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		log.Printf("Предупреждение: некорректное значение %s ('%s'): %v. Используется %v.", name, raw, err, def)
		return def
	}
	return time.Duration(secs) * time.Second
}

func intFromEnv(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Предупреждение: некорректное значение %s ('%s'): %v. Используется %d.", name, raw, err, def)
		return def
	}
	return v
}
