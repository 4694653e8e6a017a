package utils

import (
	"fmt"
	"strings"

	"memberbot/internal/constants"
	"memberbot/internal/models"
)

// EscapeTelegramMarkdown экранирует специальные символы для Telegram Markdown (старый стиль).
func EscapeTelegramMarkdown(text string) string {
	var replacer = strings.NewReplacer(
		"_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[",
	)
	return replacer.Replace(text)
}

// FormatPoints форматирует количество баллов с правильной формой слова.
func FormatPoints(points int64) string {
	return fmt.Sprintf("%d %s", points, pluralRu(points, "балл", "балла", "баллов"))
}

// FormatMembers форматирует количество участников с правильной формой слова.
func FormatMembers(count int) string {
	return fmt.Sprintf("%d %s", count, pluralRu(int64(count), "участник", "участника", "участников"))
}

// pluralRu выбирает русскую форму существительного по числу.
func pluralRu(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%10 == 1 && n%100 != 11:
		return one
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 10 || n%100 >= 20):
		return few
	}
	return many
}

// GetStatusDisplayName возвращает отображаемое имя статуса заявки.
func GetStatusDisplayName(status string) string {
	names := map[string]string{
		constants.REQUEST_STATUS_PENDING:   "⏳ На рассмотрении",
		constants.REQUEST_STATUS_APPROVED:  "🔄 Выполняется",
		constants.REQUEST_STATUS_REJECTED:  "❌ Отклонена",
		constants.REQUEST_STATUS_COMPLETED: "✅ Выполнена",
		constants.REQUEST_STATUS_FAILED:    "⚠️ Не выполнена",
	}
	if name, ok := names[status]; ok {
		return name
	}
	return status
}

// FormatFundingRequest форматирует заявку для карточки в сообщении.
func FormatFundingRequest(r models.FundingRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Заявка #%d\n", r.ID))
	sb.WriteString(fmt.Sprintf("Цель: %s (%s)\n", r.TargetChannel, targetTypeDisplayName(r.TargetType)))
	sb.WriteString(fmt.Sprintf("Прогресс: %d из %d участников\n", r.CompletedMembers, r.RequestedMembers))
	sb.WriteString(fmt.Sprintf("Стоимость: %s\n", FormatPoints(r.PointsCost)))
	sb.WriteString(fmt.Sprintf("Статус: %s", GetStatusDisplayName(r.Status)))
	return sb.String()
}

func targetTypeDisplayName(targetType string) string {
	switch targetType {
	case constants.TARGET_TYPE_CHANNEL:
		return "канал"
	case constants.TARGET_TYPE_GROUP:
		return "группа"
	}
	return targetType
}
