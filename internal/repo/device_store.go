package repo

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"gorm.io/gorm"

	"fabula/internal/logs"
	"fabula/internal/models"
)

var (
	ErrNotFound     = errors.New("device not found")
	ErrUnauthorized = errors.New("unauthorized")
)

type DeviceStore struct{ db *gorm.DB }

func NewDeviceStore(db *gorm.DB) *DeviceStore { return &DeviceStore{db: db} }

// NewAuthToken — 32 случайных байта в base64url (без паддинга).
func NewAuthToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Register создаёт устройство и выдаёт ему постоянный auth-токен.
// Повторная регистрация того же device_id идемпотентна: возвращаем
// существующую запись с её токеном, вторую строку не создаём.
func (s *DeviceStore) Register(ctx context.Context, deviceID, deviceName string) (*models.SyncDevice, bool, error) {
	var existing models.SyncDevice
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&existing).Error
	if err == nil {
		// обновим имя "по дороге", если устройство переименовали;
		// неудача не фатальна — регистрация всё равно успешна
		if deviceName != "" && existing.DeviceName != deviceName {
			existing.DeviceName = deviceName
			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				logs.Logger.Warnf("device %s: rename failed: %v", deviceID, err)
			}
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	token, err := NewAuthToken()
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	d := models.SyncDevice{
		DeviceID:   deviceID,
		DeviceName: deviceName,
		AuthToken:  token,
		PairedAt:   now,
		Active:     true,
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Authenticate ищет активное устройство по предъявленному токену.
// Побочных эффектов нет.
func (s *DeviceStore) Authenticate(ctx context.Context, token string) (*models.SyncDevice, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var d models.SyncDevice
	err := s.db.WithContext(ctx).
		Where("auth_token = ? AND active = ?", token, true).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// TouchLastSync проставляет устройству отметку последней синхронизации.
func (s *DeviceStore) TouchLastSync(ctx context.Context, id int64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.SyncDevice{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}

// List возвращает активные устройства (для отладочного /devices).
func (s *DeviceStore) List(ctx context.Context) ([]models.SyncDevice, error) {
	var out []models.SyncDevice
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// Deactivate отключает устройство по device_id (мягко, строку не удаляем).
func (s *DeviceStore) Deactivate(ctx context.Context, deviceID string) (*models.SyncDevice, error) {
	var d models.SyncDevice
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Active = false
	if err := s.db.WithContext(ctx).Save(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
