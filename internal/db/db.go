// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"memberbot/internal/constants"
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// InitDB инициализирует соединение с базой данных и выполняет миграции.
func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL не установлена")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	DB.SetMaxOpenConns(50)
	DB.SetMaxIdleConns(20)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}
	log.Println("Успешное подключение к базе данных.")

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %v", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("Откат транзакции из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            chat_id BIGINT UNIQUE NOT NULL,
            username VARCHAR(100),
            first_name VARCHAR(100),
            last_name VARCHAR(100),
            points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
            referrals INTEGER NOT NULL DEFAULT 0,
            referred_by BIGINT,
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            ban_reason TEXT,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            last_daily_gift TIMESTAMP,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS group_sources (
            id SERIAL PRIMARY KEY,
            group_id VARCHAR(100) NOT NULL UNIQUE,
            group_title VARCHAR(200),
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            member_count INTEGER NOT NULL DEFAULT 0,
            added_by_admin BIGINT,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS channels (
            id SERIAL PRIMARY KEY,
            channel_id VARCHAR(100) NOT NULL UNIQUE,
            channel_title VARCHAR(200),
            is_mandatory BOOLEAN NOT NULL DEFAULT TRUE,
            added_by_admin BIGINT,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS funding_requests (
            id SERIAL PRIMARY KEY,
            user_chat_id BIGINT NOT NULL,
            target_channel VARCHAR(100) NOT NULL,
            target_type VARCHAR(20) NOT NULL,
            requested_members INTEGER NOT NULL CHECK (requested_members > 0),
            points_cost BIGINT NOT NULL,
            completed_members INTEGER NOT NULL DEFAULT 0,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            approved_by BIGINT,
            notes TEXT,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS points_transfers (
            id SERIAL PRIMARY KEY,
            transfer_uid VARCHAR(36) NOT NULL UNIQUE,
            from_chat_id BIGINT NOT NULL,
            to_chat_id BIGINT NOT NULL,
            amount BIGINT NOT NULL CHECK (amount > 0),
            fee_percent INTEGER NOT NULL,
            fee_amount BIGINT NOT NULL,
            transfer_date TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS channel_sub_rewards (
            id SERIAL PRIMARY KEY,
            user_chat_id BIGINT NOT NULL,
            channel_id VARCHAR(100) NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            UNIQUE (user_chat_id, channel_id)
        );
        CREATE TABLE IF NOT EXISTS system_settings (
            id SERIAL PRIMARY KEY,
            maintenance_mode BOOLEAN NOT NULL DEFAULT FALSE,
            maintenance_message TEXT NOT NULL DEFAULT '',
            transfer_enabled BOOLEAN NOT NULL DEFAULT TRUE,
            transfer_fee_percent INTEGER NOT NULL DEFAULT 5,
            updated_by BIGINT,
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS points_settings (
            id SERIAL PRIMARY KEY,
            points_per_member BIGINT NOT NULL DEFAULT 25,
            points_per_referral BIGINT NOT NULL DEFAULT 5,
            daily_gift_points BIGINT NOT NULL DEFAULT 3,
            points_per_channel BIGINT NOT NULL DEFAULT 2,
            min_points_for_funding BIGINT NOT NULL DEFAULT 25,
            updated_by BIGINT,
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
    `
	_, err = tx.Exec(createTablesSQL)
	if err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}

	// Сидируем singleton-строки настроек, если их еще нет.
	// Seed singleton settings rows if absent.
	_, err = tx.Exec(`
        INSERT INTO system_settings (maintenance_mode, maintenance_message, transfer_enabled, transfer_fee_percent)
        SELECT FALSE, $1, TRUE, $2
        WHERE NOT EXISTS (SELECT 1 FROM system_settings)`,
		constants.DEFAULT_MAINTENANCE_MESSAGE, constants.DEFAULT_TRANSFER_FEE_PERCENT)
	if err != nil {
		return fmt.Errorf("ошибка сидирования system_settings: %v", err)
	}
	_, err = tx.Exec(`
        INSERT INTO points_settings (points_per_member, points_per_referral, daily_gift_points, points_per_channel, min_points_for_funding)
        SELECT $1, $2, $3, $4, $5
        WHERE NOT EXISTS (SELECT 1 FROM points_settings)`,
		constants.DEFAULT_POINTS_PER_MEMBER, constants.DEFAULT_POINTS_PER_REFERRAL,
		constants.DEFAULT_DAILY_GIFT_POINTS, constants.DEFAULT_POINTS_PER_CHANNEL,
		constants.DEFAULT_MIN_POINTS_FOR_FUNDING)
	if err != nil {
		return fmt.Errorf("ошибка сидирования points_settings: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("ошибка фиксации транзакции создания таблиц: %v", err)
	}
	log.Println("Создание таблиц (если не существуют) завершено.")

	createIndexesSQL := `
        CREATE INDEX IF NOT EXISTS idx_users_chat_id ON users(chat_id);
        CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by);
        CREATE INDEX IF NOT EXISTS idx_funding_requests_status ON funding_requests(status);
        CREATE INDEX IF NOT EXISTS idx_funding_requests_user ON funding_requests(user_chat_id);
        CREATE INDEX IF NOT EXISTS idx_points_transfers_from ON points_transfers(from_chat_id);
        CREATE INDEX IF NOT EXISTS idx_points_transfers_to ON points_transfers(to_chat_id);
        CREATE INDEX IF NOT EXISTS idx_group_sources_active ON group_sources(is_active);
    `
	indexStatements := strings.Split(strings.TrimSpace(createIndexesSQL), ";")
	for _, stmt := range indexStatements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, errIdx := DB.Exec(trimmedStmt); errIdx != nil {
			log.Printf("Предупреждение: ошибка при создании индекса ('%s'): %v.", trimmedStmt, errIdx)
		}
	}
	log.Println("Создание индексов (если не существуют) завершено.")

	log.Println("Инициализация базы данных успешно завершена.")
	return nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		DB.Close()
		log.Println("Соединение с базой данных закрыто.")
	}
}
