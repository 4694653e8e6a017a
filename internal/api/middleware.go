package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware проверяет заголовок Authorization: Bearer <token>.
// Пустой серверный токен закрывает API полностью.
func AuthMiddleware(apiToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiToken == "" {
				writeJSONError(w, http.StatusServiceUnavailable, "API отключен: токен не настроен")
				return
			}

			authHeader := r.Header.Get("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || token == authHeader {
				writeJSONError(w, http.StatusUnauthorized, "требуется заголовок Authorization: Bearer <token>")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "неверный токен")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
