package syncapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"fabula/internal/logs"
	"fabula/internal/models"
	"fabula/internal/pairing"
	"fabula/internal/repo"
	"fabula/internal/syncengine"
)

const (
	directionPull = "pull"
	directionPush = "push"
)

type Handler struct {
	pairing *pairing.Coordinator
	devices *repo.DeviceStore
	engine  *syncengine.Engine
	audit   *repo.SyncLogStore
}

func NewHandler(p *pairing.Coordinator, ds *repo.DeviceStore, e *syncengine.Engine, audit *repo.SyncLogStore) *Handler {
	return &Handler{pairing: p, devices: ds, engine: e, audit: audit}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /pair/qr-data
func (h *Handler) QRData(w http.ResponseWriter, r *http.Request) {
	payload, err := h.pairing.Issue()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to issue pairing token", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// GET /pair/qr-image — тот же payload, но PNG для сканирования с экрана.
func (h *Handler) QRImage(w http.ResponseWriter, r *http.Request) {
	payload, err := h.pairing.Issue()
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to issue pairing token", nil)
		return
	}
	png, err := pairing.QRPNG(payload, 256)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to render QR code", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// POST /pair/register — обмен одноразового pairing-токена на постоянный
// auth-токен. Токен гасится до записи устройства; при сбое хранилища
// возвращается обратно, чтобы живой токен не сгорел зря.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.DeviceID == "" || req.PairingToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "device_id and pairing_token required"})
		return
	}

	if err := h.pairing.Consume(req.PairingToken); err != nil {
		detail := "invalid pairing token"
		if errors.Is(err, pairing.ErrExpiredToken) {
			detail = "expired pairing token"
		}
		models.WriteProblem(w, http.StatusUnauthorized, "Pairing Failed", detail, nil)
		return
	}

	d, created, err := h.devices.Register(r.Context(), req.DeviceID, req.DeviceName)
	if err != nil {
		h.pairing.Restore(req.PairingToken)
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to register device", nil)
		return
	}

	code := http.StatusOK
	msg := "device already registered"
	if created {
		code = http.StatusCreated
		msg = "device paired successfully"
	}
	logs.Logger.Infof("pairing: device %q (%s) registered, new=%v", d.DeviceName, d.DeviceID, created)
	writeJSON(w, code, RegisterResponse{
		DeviceID:   d.DeviceID,
		DeviceName: d.DeviceName,
		AuthToken:  d.AuthToken,
		Message:    msg,
	})
}

// POST /sync/pull
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	device := DeviceFrom(r)
	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	changes, err := h.engine.Changes(r.Context(), req.SinceTimestamp, req.EntityTypes)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to collect changes", nil)
		return
	}

	now := time.Now().UTC()
	if err := h.devices.TouchLastSync(r.Context(), device.ID, now); err != nil {
		logs.Logger.Errorf("pull: touch last_sync for device %d: %v", device.ID, err)
	}
	if err := h.audit.Append(r.Context(), device.ID, directionPull, len(changes), 0); err != nil {
		logs.Logger.Errorf("pull: audit append for device %d: %v", device.ID, err)
	}

	writeJSON(w, http.StatusOK, PullResponse{Changes: changes, SyncTimestamp: now})
}

// POST /sync/push
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	device := DeviceFrom(r)
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res := h.engine.Apply(r.Context(), req.Changes)

	now := time.Now().UTC()
	if err := h.devices.TouchLastSync(r.Context(), device.ID, now); err != nil {
		logs.Logger.Errorf("push: touch last_sync for device %d: %v", device.ID, err)
	}
	if err := h.audit.Append(r.Context(), device.ID, directionPush, len(req.Changes), len(res.Conflicts)); err != nil {
		logs.Logger.Errorf("push: audit append for device %d: %v", device.ID, err)
	}

	writeJSON(w, http.StatusOK, PushResponse{
		Accepted:  res.Accepted,
		Rejected:  res.Rejected,
		Conflicts: res.Conflicts,
		Message:   "processed " + strconv.Itoa(len(req.Changes)) + " changes",
	})
}

// GET /sync/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	device := DeviceFrom(r)
	pending, err := h.engine.PendingCount(r.Context(), device.LastSyncAt)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to count pending changes", nil)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		DeviceID:           device.DeviceID,
		DeviceName:         device.DeviceName,
		LastSyncAt:         device.LastSyncAt,
		PendingChangeCount: pending,
		ServerTimestamp:    time.Now().UTC(),
	})
}

// GET /devices — список активных устройств.
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	list, err := h.devices.List(r.Context())
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to list devices", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": list})
}

// DELETE /devices/{device_id} — мягкое отключение устройства.
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]
	d, err := h.devices.Deactivate(r.Context(), deviceID)
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteProblem(w, http.StatusNotFound, "Not Found",
			"device "+deviceID+" not found", nil)
		return
	}
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError,
			"Internal Server Error", "failed to remove device", nil)
		return
	}
	logs.Logger.Infof("device removed: %s (%s)", d.DeviceName, d.DeviceID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "device removed",
		"device_id":   d.DeviceID,
		"device_name": d.DeviceName,
	})
}
