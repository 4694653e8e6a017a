package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ExtractChannelID нормализует пользовательский ввод в идентификатор чата.
// Принимает @имя, t.me/имя, https://t.me/имя или числовой ID (-100...).
// Возвращает "@имя" либо числовой ID строкой.
// ExtractChannelID normalizes user input into a chat identifier.
func ExtractChannelID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("пустая ссылка на канал")
	}

	// Числовой ID (каналы и супергруппы начинаются с -100).
	if input[0] == '-' || (input[0] >= '0' && input[0] <= '9') {
		if _, err := strconv.ParseInt(input, 10, 64); err != nil {
			return "", fmt.Errorf("некорректный числовой ID чата: %s", input)
		}
		return input, nil
	}

	name := input
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimPrefix(name, "t.me/")
	name = strings.TrimPrefix(name, "telegram.me/")
	name = strings.TrimPrefix(name, "@")
	// Отрезаем хвост ссылки вида t.me/name?start=...
	if idx := strings.IndexAny(name, "/?"); idx >= 0 {
		name = name[:idx]
	}

	if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "joinchat") {
		return "", fmt.Errorf("приватные инвайт-ссылки не поддерживаются, укажите @имя или публичную ссылку")
	}
	if !usernameRegex.MatchString(name) {
		return "", fmt.Errorf("некорректное имя канала: %s", input)
	}
	return "@" + name, nil
}

// ParsePositiveInt парсит строго положительное целое из пользовательского ввода.
func ParsePositiveInt(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("ожидалось число, получено: %s", input)
	}
	if n <= 0 {
		return 0, fmt.Errorf("число должно быть больше нуля, получено: %d", n)
	}
	return n, nil
}

// ParseChatID парсит chat_id пользователя. Принимает числовой ID,
// опционально с ведущим @ отрезанным заранее вызывающим.
func ParseChatID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("некорректный ID пользователя: %s", input)
	}
	return id, nil
}
