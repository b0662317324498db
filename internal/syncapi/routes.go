package syncapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"fabula/internal/repo"
)

func RegisterRoutes(r *mux.Router, h *Handler, devices *repo.DeviceStore) {
	// Сопряжение — до аутентификации (токен и есть пропуск)
	pair := r.PathPrefix("/pair").Subrouter()
	pair.HandleFunc("/qr-data", h.QRData).Methods(http.MethodGet)
	pair.HandleFunc("/qr-image", h.QRImage).Methods(http.MethodGet)
	pair.HandleFunc("/register", h.Register).Methods(http.MethodPost)

	// Синхронизация — только с bearer-токеном устройства
	sync := r.PathPrefix("/sync").Subrouter()
	sync.Use(BearerAuth(devices))
	sync.HandleFunc("/pull", h.Pull).Methods(http.MethodPost)
	sync.HandleFunc("/push", h.Push).Methods(http.MethodPost)
	sync.HandleFunc("/status", h.Status).Methods(http.MethodGet)

	// Отладочные ручки. Нарочно без аутентификации: сервер слушает только
	// локальную сеть пользователя.
	r.HandleFunc("/devices", h.Devices).Methods(http.MethodGet)
	r.HandleFunc("/devices/{device_id}", h.RemoveDevice).Methods(http.MethodDelete)
}
