package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"memberbot/internal/constants"
	"memberbot/internal/db"
	"memberbot/internal/models"
)

// requestDTO — представление заявки в JSON-ответах API.
type requestDTO struct {
	ID               int64     `json:"id"`
	UserChatID       int64     `json:"user_chat_id"`
	TargetChannel    string    `json:"target_channel"`
	TargetType       string    `json:"target_type"`
	RequestedMembers int       `json:"requested_members"`
	CompletedMembers int       `json:"completed_members"`
	PointsCost       int64     `json:"points_cost"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type userDTO struct {
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name"`
	Points    int64     `json:"points"`
	Referrals int       `json:"referrals"`
	IsBanned  bool      `json:"is_banned"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toRequestDTO(r models.FundingRequest) requestDTO {
	return requestDTO{
		ID:               r.ID,
		UserChatID:       r.UserChatID,
		TargetChannel:    r.TargetChannel,
		TargetType:       r.TargetType,
		RequestedMembers: r.RequestedMembers,
		CompletedMembers: r.CompletedMembers,
		PointsCost:       r.PointsCost,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toUserDTO(u models.User) userDTO {
	return userDTO{
		ChatID:    u.ChatID,
		Username:  u.Username.String,
		FirstName: u.FirstName,
		Points:    u.Points,
		Referrals: u.Referrals,
		IsBanned:  u.IsBanned,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("writeJSON: ошибка сериализации ответа: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// GetStatsHandler отдает агрегированную статистику системы.
func GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := db.GetStats()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить статистику")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":        stats.TotalUsers,
		"banned_users":       stats.BannedUsers,
		"total_points":       stats.TotalPoints,
		"total_requests":     stats.TotalRequests,
		"pending_requests":   stats.PendingRequests,
		"approved_requests":  stats.ApprovedRequests,
		"completed_requests": stats.CompletedRequests,
		"total_transfers":    stats.TotalTransfers,
		"total_fees":         stats.TotalFees,
		"active_groups":      stats.ActiveGroups,
	})
}

// GetRequestsHandler отдает заявки, по умолчанию ожидающие рассмотрения.
// Параметры: ?status=pending|approved|completed|failed|rejected&limit=N.
func GetRequestsHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = constants.REQUEST_STATUS_PENDING
	}
	switch status {
	case constants.REQUEST_STATUS_PENDING, constants.REQUEST_STATUS_APPROVED,
		constants.REQUEST_STATUS_COMPLETED, constants.REQUEST_STATUS_FAILED,
		constants.REQUEST_STATUS_REJECTED:
	default:
		writeJSONError(w, http.StatusBadRequest, "неизвестный статус: "+status)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeJSONError(w, http.StatusBadRequest, "limit должен быть числом от 1 до 500")
			return
		}
		limit = parsed
	}

	requests, err := db.GetRequestsByStatus(status, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить заявки")
		return
	}
	dtos := make([]requestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRequestHandler отдает одну заявку по идентификатору.
func GetRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	request, err := db.GetFundingRequestByID(id)
	if err != nil {
		if errors.Is(err, db.ErrRequestNotFound) {
			writeJSONError(w, http.StatusNotFound, "заявка не найдена")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить заявку")
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(request))
}

// ApproveRequestHandler одобряет заявку от имени владельца API-токена.
func ApproveRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	request, err := db.ApproveFundingRequest(id, apiAdminChatID(r))
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(request))
}

// RejectRequestHandler отклоняет заявку с возвратом баллов.
func RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	request, err := db.RejectFundingRequest(id, apiAdminChatID(r))
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(request))
}

// GetUserHandler отдает пользователя по chat_id.
func GetUserHandler(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный chat_id")
		return
	}
	user, err := db.GetUserByChatID(chatID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "пользователь не найден")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "не удалось получить пользователя")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		writeJSONError(w, http.StatusBadRequest, "некорректный идентификатор заявки")
		return 0, false
	}
	return id, true
}

// apiAdminChatID извлекает необязательный параметр admin_chat_id, чтобы
// решение по заявке было привязано к конкретному администратору.
func apiAdminChatID(r *http.Request) int64 {
	raw := r.URL.Query().Get("admin_chat_id")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrRequestNotFound):
		writeJSONError(w, http.StatusNotFound, "заявка не найдена")
	case errors.Is(err, db.ErrInvalidTransition):
		writeJSONError(w, http.StatusConflict, "заявка уже рассмотрена")
	default:
		writeJSONError(w, http.StatusInternalServerError, "не удалось обработать заявку")
	}
}
