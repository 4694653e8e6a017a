package telegram_api

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"memberbot/internal/gateway"
)

// MemberGateway реализует gateway.Gateway поверх BotClient.
// Все вызовы идут через MakeRequest: операции с участниками выполняются через
// локальный Bot API сервер с расширенными правами, и единый путь запросов
// упрощает классификацию ошибок по тексту.
type MemberGateway struct {
	client *BotClient
}

var _ gateway.Gateway = (*MemberGateway)(nil)

// NewMemberGateway создает шлюз поверх инициализированного BotClient.
func NewMemberGateway(client *BotClient) *MemberGateway {
	return &MemberGateway{client: client}
}

type apiUser struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username"`
}

type apiChatMember struct {
	User   apiUser `json:"user"`
	Status string  `json:"status"`
}

type apiChat struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// ListMembers возвращает до limit участников группы-источника.
// Боты и покинувшие группу аккаунты отфильтровываются.
func (g *MemberGateway) ListMembers(groupID string, limit int) ([]gateway.Member, error) {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("chat_id", groupID)
	params.AddNonZero("limit", limit)

	resp, err := g.client.MakeRequest("getChatMembers", params)
	if err != nil {
		return nil, fmt.Errorf("getChatMembers %s: %w", groupID, err)
	}

	var raw []apiChatMember
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, fmt.Errorf("getChatMembers %s: ошибка разбора ответа: %w", groupID, err)
	}

	members := make([]gateway.Member, 0, len(raw))
	for _, m := range raw {
		if m.User.IsBot || m.Status == "left" || m.Status == "kicked" {
			continue
		}
		members = append(members, gateway.Member{
			UserID:   m.User.ID,
			Username: m.User.Username,
			IsBot:    m.User.IsBot,
		})
	}
	return members, nil
}

// IsMember сообщает, состоит ли пользователь в чате.
func (g *MemberGateway) IsMember(chatID string, userID int64) (bool, error) {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("chat_id", chatID)
	params.AddNonZero64("user_id", userID)

	resp, err := g.client.MakeRequest("getChatMember", params)
	if err != nil {
		msg := strings.ToUpper(err.Error())
		// Telegram отвечает ошибкой, а не статусом "left", если пользователь
		// никогда не состоял в чате.
		if strings.Contains(msg, "USER_NOT_PARTICIPANT") ||
			strings.Contains(msg, "PARTICIPANT_ID_INVALID") ||
			strings.Contains(msg, "USER NOT FOUND") ||
			strings.Contains(msg, "MEMBER NOT FOUND") {
			return false, nil
		}
		return false, fmt.Errorf("getChatMember %s/%d: %w", chatID, userID, err)
	}

	var member apiChatMember
	if err := json.Unmarshal(resp.Result, &member); err != nil {
		return false, fmt.Errorf("getChatMember %s/%d: ошибка разбора ответа: %w", chatID, userID, err)
	}
	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	}
	return false, nil
}

// AddMember пытается добавить пользователя в целевой чат.
func (g *MemberGateway) AddMember(chatID string, userID int64) (gateway.AddOutcome, error) {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("chat_id", chatID)
	params.AddNonZero64("user_id", userID)

	_, err := g.client.MakeRequest("addChatMember", params)
	if err == nil {
		return gateway.OutcomeAdded, nil
	}
	outcome := classifyAddError(err)
	switch outcome {
	case gateway.OutcomeTargetAccessDenied:
		return outcome, fmt.Errorf("addChatMember %s: нет прав администратора: %w", chatID, err)
	case gateway.OutcomeTransient:
		return outcome, fmt.Errorf("addChatMember %s/%d: %w", chatID, userID, err)
	}
	// Остальные исходы — свойство кандидата, а не ошибка вызова.
	if g.client.Debug {
		log.Printf("AddMember %s/%d: исход %s (%v)", chatID, userID, outcome, err)
	}
	return outcome, nil
}

// ResolveChat разрешает @имя или ссылку в сведения о чате.
// Счетчик участников справочный: его ошибка не считается ошибкой разрешения.
func (g *MemberGateway) ResolveChat(ref string) (gateway.ChatInfo, error) {
	var info gateway.ChatInfo

	params := make(tgbotapi.Params)
	params.AddNonEmpty("chat_id", ref)
	resp, err := g.client.MakeRequest("getChat", params)
	if err != nil {
		return info, fmt.Errorf("getChat %s: %w", ref, err)
	}
	var chat apiChat
	if err := json.Unmarshal(resp.Result, &chat); err != nil {
		return info, fmt.Errorf("getChat %s: ошибка разбора ответа: %w", ref, err)
	}
	info.ID = fmt.Sprintf("%d", chat.ID)
	info.Title = chat.Title
	if info.Title == "" && chat.Username != "" {
		info.Title = "@" + chat.Username
	}

	countParams := make(tgbotapi.Params)
	countParams.AddNonEmpty("chat_id", ref)
	if countResp, errCount := g.client.MakeRequest("getChatMemberCount", countParams); errCount == nil {
		var count int
		if json.Unmarshal(countResp.Result, &count) == nil {
			info.MemberCount = count
		}
	}
	return info, nil
}

// classifyAddError переводит текст ошибки Telegram в исход попытки.
// Telegram кодирует причину строковым кодом в описании ошибки.
func classifyAddError(err error) gateway.AddOutcome {
	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "USER_ALREADY_PARTICIPANT"):
		return gateway.OutcomeAlreadyMember
	case strings.Contains(msg, "USER_PRIVACY_RESTRICTED") || strings.Contains(msg, "PRIVACY"):
		return gateway.OutcomePrivacyRestricted
	case strings.Contains(msg, "USER_NOT_MUTUAL_CONTACT"):
		return gateway.OutcomeNotMutualContact
	case strings.Contains(msg, "CHAT_ADMIN_REQUIRED") ||
		strings.Contains(msg, "NOT ENOUGH RIGHTS") ||
		strings.Contains(msg, "CHAT_WRITE_FORBIDDEN"):
		return gateway.OutcomeTargetAccessDenied
	case strings.Contains(msg, "USER_DEACTIVATED") ||
		strings.Contains(msg, "USER_IS_BLOCKED") ||
		strings.Contains(msg, "USER_IS_BOT"):
		return gateway.OutcomeUserUnavailable
	}
	return gateway.OutcomeTransient
}
