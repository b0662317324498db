package models

import "time"

// SyncFields — журнальные поля, общие для всех синхронизируемых таблиц.
// version растёт ровно на 1 при каждой мутации; deleted_at — мягкое удаление.
// Нарочно не gorm.DeletedAt: движок синхронизации управляет мягким
// удалением сам и должен видеть удалённые строки в выборках.
type SyncFields struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `gorm:"index" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	Version   int64      `gorm:"not null;default:1" json:"version"`
}

// Touch обновляет updated_at и инкрементирует версию.
func (f *SyncFields) Touch(now time.Time) {
	f.UpdatedAt = now
	f.Version++
}

// MarkDeleted — мягкое удаление: проставляет deleted_at и двигает журнал.
func (f *SyncFields) MarkDeleted(now time.Time) {
	f.DeletedAt = &now
	f.Touch(now)
}

// SyncDevice — зарегистрированное мобильное устройство.
type SyncDevice struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	DeviceID   string     `gorm:"uniqueIndex;size:64;not null" json:"device_id"`
	DeviceName string     `gorm:"size:255" json:"device_name"`
	AuthToken  string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	PairedAt   time.Time  `json:"paired_at"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	Active     bool       `gorm:"not null;default:true" json:"active"`
}

func (SyncDevice) TableName() string { return "sync_devices" }

// SyncLog — append-only запись аудита: одна строка на батч pull/push.
// Движок её никогда не изменяет и не удаляет.
type SyncLog struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DeviceID      int64  `gorm:"index;not null" json:"device_id"`
	Direction     string `gorm:"size:8;not null" json:"direction"` // pull|push
	EntityCount   int    `gorm:"not null" json:"entity_count"`
	ConflictCount int    `gorm:"not null" json:"conflict_count"`
}

func (SyncLog) TableName() string { return "sync_logs" }
