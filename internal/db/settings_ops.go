package db

import (
	"fmt"
	"log"
	"sync"

	"memberbot/internal/constants"
	"memberbot/internal/models"
)

// Настройки читаются на каждом пользовательском действии, поэтому кэшируются
// в памяти. Кэш сбрасывается при любой записи; процесс-писатель один (бот),
// так что устаревание кэша между процессами не возникает.
// Settings are read on every user action and cached in-process.
var (
	settingsMutex        sync.RWMutex
	cachedSystemSettings *models.SystemSettings
	cachedPointsSettings *models.PointsSettings
)

func invalidateSettingsCache() {
	settingsMutex.Lock()
	cachedSystemSettings = nil
	cachedPointsSettings = nil
	settingsMutex.Unlock()
}

// GetSystemSettings возвращает системные настройки (из кэша, если он валиден).
func GetSystemSettings() (models.SystemSettings, error) {
	settingsMutex.RLock()
	if cachedSystemSettings != nil {
		s := *cachedSystemSettings
		settingsMutex.RUnlock()
		return s, nil
	}
	settingsMutex.RUnlock()

	var s models.SystemSettings
	err := DB.QueryRow(`
        SELECT id, maintenance_mode, maintenance_message, transfer_enabled, transfer_fee_percent, updated_by, updated_at
        FROM system_settings ORDER BY id LIMIT 1`).
		Scan(&s.ID, &s.MaintenanceMode, &s.MaintenanceMessage, &s.TransferEnabled,
			&s.TransferFeePercent, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		log.Printf("GetSystemSettings: ошибка чтения системных настроек: %v", err)
		return s, err
	}

	settingsMutex.Lock()
	copied := s
	cachedSystemSettings = &copied
	settingsMutex.Unlock()
	return s, nil
}

// GetPointsSettings возвращает тарифы баллов (из кэша, если он валиден).
func GetPointsSettings() (models.PointsSettings, error) {
	settingsMutex.RLock()
	if cachedPointsSettings != nil {
		s := *cachedPointsSettings
		settingsMutex.RUnlock()
		return s, nil
	}
	settingsMutex.RUnlock()

	var s models.PointsSettings
	err := DB.QueryRow(`
        SELECT id, points_per_member, points_per_referral, daily_gift_points, points_per_channel, min_points_for_funding, updated_by, updated_at
        FROM points_settings ORDER BY id LIMIT 1`).
		Scan(&s.ID, &s.PointsPerMember, &s.PointsPerReferral, &s.DailyGiftPoints,
			&s.PointsPerChannel, &s.MinPointsForFunding, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		log.Printf("GetPointsSettings: ошибка чтения тарифов баллов: %v", err)
		return s, err
	}

	settingsMutex.Lock()
	copied := s
	cachedPointsSettings = &copied
	settingsMutex.Unlock()
	return s, nil
}

// SetMaintenanceMode включает или выключает режим техработ.
func SetMaintenanceMode(enabled bool, adminChatID int64) error {
	_, err := DB.Exec(`
        UPDATE system_settings SET maintenance_mode = $1, updated_by = $2, updated_at = NOW()`,
		enabled, adminChatID)
	if err != nil {
		log.Printf("SetMaintenanceMode: ошибка обновления: %v", err)
		return err
	}
	invalidateSettingsCache()
	log.Printf("Режим техработ установлен в %v администратором %d.", enabled, adminChatID)
	return nil
}

// SetMaintenanceMessage обновляет текст сообщения о техработах.
func SetMaintenanceMessage(message string, adminChatID int64) error {
	_, err := DB.Exec(`
        UPDATE system_settings SET maintenance_message = $1, updated_by = $2, updated_at = NOW()`,
		message, adminChatID)
	if err != nil {
		log.Printf("SetMaintenanceMessage: ошибка обновления: %v", err)
		return err
	}
	invalidateSettingsCache()
	return nil
}

// SetTransferEnabled включает или выключает переводы баллов.
func SetTransferEnabled(enabled bool, adminChatID int64) error {
	_, err := DB.Exec(`
        UPDATE system_settings SET transfer_enabled = $1, updated_by = $2, updated_at = NOW()`,
		enabled, adminChatID)
	if err != nil {
		log.Printf("SetTransferEnabled: ошибка обновления: %v", err)
		return err
	}
	invalidateSettingsCache()
	log.Printf("Переводы баллов установлены в %v администратором %d.", enabled, adminChatID)
	return nil
}

// SetTransferFeePercent обновляет комиссию переводов (0..100).
func SetTransferFeePercent(percent int, adminChatID int64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("комиссия должна быть в диапазоне 0-100, получено %d", percent)
	}
	_, err := DB.Exec(`
        UPDATE system_settings SET transfer_fee_percent = $1, updated_by = $2, updated_at = NOW()`,
		percent, adminChatID)
	if err != nil {
		log.Printf("SetTransferFeePercent: ошибка обновления: %v", err)
		return err
	}
	invalidateSettingsCache()
	log.Printf("Комиссия переводов установлена в %d%% администратором %d.", percent, adminChatID)
	return nil
}

// UpdatePointsSetting обновляет один из тарифов points_settings по ключу.
// Ключ сверяется с белым списком колонок: значение из callback data не
// попадает в SQL напрямую.
func UpdatePointsSetting(key string, value int64, adminChatID int64) error {
	switch key {
	case constants.SETTING_POINTS_PER_MEMBER,
		constants.SETTING_POINTS_PER_REFERRAL,
		constants.SETTING_DAILY_GIFT_POINTS,
		constants.SETTING_POINTS_PER_CHANNEL,
		constants.SETTING_MIN_POINTS_FOR_FUNDING:
	default:
		return fmt.Errorf("неизвестная настройка баллов: %s", key)
	}
	if value < 0 {
		return fmt.Errorf("значение настройки не может быть отрицательным: %d", value)
	}

	query := fmt.Sprintf("UPDATE points_settings SET %s = $1, updated_by = $2, updated_at = NOW()", key)
	_, err := DB.Exec(query, value, adminChatID)
	if err != nil {
		log.Printf("UpdatePointsSetting: ошибка обновления '%s': %v", key, err)
		return err
	}
	invalidateSettingsCache()
	log.Printf("Настройка '%s' установлена в %d администратором %d.", key, value, adminChatID)
	return nil
}
