package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// RequireAdminPassword проверяет общий админский пароль в query-параметре
// `password`. Сравнение за постоянное время, чтобы не давать тайминговой
// подсказки по длине совпавшего префикса.
func RequireAdminPassword(password string) func(http.Handler) http.Handler {
	secret := []byte(password)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.URL.Query().Get("password"))
			if subtle.ConstantTimeCompare(provided, secret) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid admin password"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
