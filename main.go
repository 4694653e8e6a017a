package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"memberbot/internal/api"
	"memberbot/internal/config"
	"memberbot/internal/db"
	"memberbot/internal/handlers"
	"memberbot/internal/session"
	"memberbot/internal/telegram_api"
	"memberbot/internal/worker"
)

func main() {
	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := db.InitDB(); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer db.CloseDB()

	if err := telegram_api.InitBot(cfg.TelegramToken, cfg.AppEnv == "dev"); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать Telegram бота: %v", err)
	}
	if telegram_api.Client == nil || telegram_api.Client.GetAPI() == nil {
		log.Fatalf("Критическая ошибка: Telegram API клиент не был корректно инициализирован.")
	}
	botAPI := telegram_api.Client.GetAPI()

	memberGateway := telegram_api.NewMemberGateway(telegram_api.Client)
	sessionManager := session.NewSessionManager()

	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:         cfg,
		BotClient:      telegram_api.Client,
		SessionManager: sessionManager,
		Gateway:        memberGateway,
	})

	// Контекст процесса: завершение по SIGINT/SIGTERM останавливает воркер.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- HTTP API ---
	apiRouter := chi.NewRouter()
	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	api.SetupRoutes(apiRouter, api.ApiDependencies{Config: cfg})

	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		log.Printf("Запуск HTTP-сервера админского API на порту %s", port)
		if err := http.ListenAndServe(":"+port, apiRouter); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	// --- Воркер добавления участников ---
	deliverer := &worker.Deliverer{
		Gateway:    memberGateway,
		Store:      worker.DBStore{},
		Notifier:   worker.BotNotifier{},
		AddDelay:   cfg.AddMemberDelay,
		GroupDelay: 5 * time.Second,
	}
	memberWorker := worker.New(worker.DBStore{}, deliverer,
		cfg.WorkerPollInterval, cfg.WorkerErrorInterval, cfg.WorkerPoolSize)

	// Воркер обязан дописать прогресс текущей попытки до выхода процесса,
	// иначе закрытие БД оборвет запись. Ждем его завершения перед возвратом.
	var workerWG sync.WaitGroup
	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		memberWorker.Run(ctx)
	}()

	// --- Цикл обновлений бота ---
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	log.Println("Бот, API-сервер и воркер запущены и готовы к работе...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Получен сигнал завершения. Остановка бота...")
			botAPI.StopReceivingUpdates()
			workerWG.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				stop()
				workerWG.Wait()
				return
			}
			if update.Message != nil {
				go botHandler.HandleMessage(update)
			} else if update.CallbackQuery != nil {
				go botHandler.HandleCallback(update)
			}
		}
	}
}
