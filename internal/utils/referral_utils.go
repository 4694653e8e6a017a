package utils

import (
	"fmt"
	"log"

	"github.com/skip2/go-qrcode"

	"memberbot/internal/constants"
)

// GenerateReferralLink генерирует реферальную ссылку для пользователя.
// botUsername должен передаваться, так как это конфигурационное значение.
func GenerateReferralLink(botUsername string, chatID int64) (string, error) {
	if botUsername == "" {
		log.Println("GenerateReferralLink: botUsername не предоставлен.")
		return "", fmt.Errorf("имя пользователя бота не настроено")
	}
	if chatID == 0 {
		return "", fmt.Errorf("невалидный ID пользователя для реферальной ссылки")
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%d", botUsername, constants.REFERRAL_START_PREFIX, chatID), nil
}

// GenerateReferralQRCode генерирует QR-код реферальной ссылки (PNG).
func GenerateReferralQRCode(botUsername string, chatID int64) ([]byte, error) {
	link, err := GenerateReferralLink(botUsername, chatID)
	if err != nil {
		return nil, err
	}

	// qrcode.Medium - уровень коррекции ошибок, 256 - размер в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		log.Printf("GenerateReferralQRCode: ошибка кодирования QR-кода для ссылки '%s': %v", link, err)
		return nil, err
	}
	return qrBytes, nil
}
