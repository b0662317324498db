package syncapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"fabula/internal/models"
	"fabula/internal/repo"
)

type ctxKey string

const deviceKey ctxKey = "sync-device"

// BearerAuth проверяет Authorization: Bearer <auth_token> через реестр
// устройств. Без валидного токена запрос дальше не идёт; устройство
// кладётся в контекст запроса.
func BearerAuth(devices *repo.DeviceStore) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const p = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, p) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"missing bearer credential", nil)
				return
			}
			d, err := devices.Authenticate(r.Context(), strings.TrimPrefix(auth, p))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized",
					"invalid authentication token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), deviceKey, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DeviceFrom достаёт аутентифицированное устройство из контекста.
func DeviceFrom(r *http.Request) *models.SyncDevice {
	if d, ok := r.Context().Value(deviceKey).(*models.SyncDevice); ok {
		return d
	}
	return nil
}
