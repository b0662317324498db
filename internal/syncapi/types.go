package syncapi

import (
	"time"

	"fabula/internal/syncengine"
)

type RegisterRequest struct {
	DeviceID     string `json:"device_id"`
	DeviceName   string `json:"device_name"`
	PairingToken string `json:"pairing_token"`
}

type RegisterResponse struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	AuthToken  string `json:"auth_token"`
	Message    string `json:"message"`
}

type PullRequest struct {
	SinceTimestamp *time.Time `json:"since_timestamp"` // null — полная синхронизация
	EntityTypes    []string   `json:"entity_types"`    // null — все типы
}

type PullResponse struct {
	Changes       []syncengine.Change `json:"changes"`
	SyncTimestamp time.Time           `json:"sync_timestamp"`
}

type PushRequest struct {
	Changes []syncengine.Change `json:"changes"`
}

type PushResponse struct {
	Accepted  int                   `json:"accepted"`
	Rejected  int                   `json:"rejected"`
	Conflicts []syncengine.Conflict `json:"conflicts"`
	Message   string                `json:"message"`
}

type StatusResponse struct {
	DeviceID           string     `json:"device_id"`
	DeviceName         string     `json:"device_name"`
	LastSyncAt         *time.Time `json:"last_sync_at"`
	PendingChangeCount int64      `json:"pending_change_count"`
	ServerTimestamp    time.Time  `json:"server_timestamp"`
}
