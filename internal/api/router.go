package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"memberbot/internal/config"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config *config.Config
}

// SetupRoutes настраивает маршруты админского HTTP API.
// Все маршруты, кроме /api/health, защищены токеном.
func SetupRoutes(r *chi.Mux, deps ApiDependencies) {
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config.APIToken))

		r.Get("/api/stats", GetStatsHandler)
		r.Get("/api/requests", GetRequestsHandler)
		r.Get("/api/requests/{id}", GetRequestHandler)
		r.Post("/api/requests/{id}/approve", ApproveRequestHandler)
		r.Post("/api/requests/{id}/reject", RejectRequestHandler)
		r.Get("/api/users/{chatID}", GetUserHandler)
	})
}
