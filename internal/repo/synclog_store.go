package repo

import (
	"context"

	"gorm.io/gorm"

	"fabula/internal/models"
)

type SyncLogStore struct{ db *gorm.DB }

func NewSyncLogStore(db *gorm.DB) *SyncLogStore { return &SyncLogStore{db: db} }

// Append пишет одну строку аудита на батч. Только счётчики, без полезной
// нагрузки — журнал append-only и никогда не правится задним числом.
func (s *SyncLogStore) Append(ctx context.Context, deviceID int64, direction string, entities, conflicts int) error {
	return s.db.WithContext(ctx).Create(&models.SyncLog{
		DeviceID:      deviceID,
		Direction:     direction,
		EntityCount:   entities,
		ConflictCount: conflicts,
	}).Error
}

// ForDevice — последние записи по устройству, новые первыми.
func (s *SyncLogStore) ForDevice(ctx context.Context, deviceID int64, limit int) ([]models.SyncLog, error) {
	var out []models.SyncLog
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
