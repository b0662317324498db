package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// EntityStore — обобщённый доступ к журналируемым доменным таблицам.
// Каждая таблица несёт колонки id/created_at/updated_at/deleted_at/version;
// остальные колонки произвольны, поэтому работаем через map[string]any.
type EntityStore struct{ db *gorm.DB }

func NewEntityStore(db *gorm.DB) *EntityStore { return &EntityStore{db: db} }

// Get возвращает строку по id или nil, если строки нет.
func (s *EntityStore) Get(ctx context.Context, table string, id int64) (map[string]any, error) {
	var rows []map[string]any
	err := s.db.WithContext(ctx).Table(table).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Insert создаёт строку с version=1 и свежими журнальными полями.
func (s *EntityStore) Insert(ctx context.Context, table string, id int64, data map[string]any, now time.Time) error {
	row := map[string]any{}
	for k, v := range data {
		row[k] = v
	}
	row["id"] = id
	row["created_at"] = now
	row["updated_at"] = now
	row["deleted_at"] = nil
	row["version"] = int64(1)
	return s.db.WithContext(ctx).Table(table).Create(row).Error
}

// UpdateIfVersion — оптимистичный апдейт: одна атомарная операция
// UPDATE ... WHERE id=? AND version=?. Ноль затронутых строк означает,
// что проверка версии не прошла (или строки нет) — конфликтная ветка
// решается на уровне движка.
func (s *EntityStore) UpdateIfVersion(ctx context.Context, table string, id, expected int64, data map[string]any, now time.Time) (bool, error) {
	row := map[string]any{}
	for k, v := range data {
		row[k] = v
	}
	row["updated_at"] = now
	row["version"] = expected + 1
	tx := s.db.WithContext(ctx).Table(table).
		Where("id = ? AND version = ?", id, expected).
		Updates(row)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SoftDeleteIfVersion — мягкое удаление с той же оптимистичной проверкой.
func (s *EntityStore) SoftDeleteIfVersion(ctx context.Context, table string, id, expected int64, now time.Time) (bool, error) {
	tx := s.db.WithContext(ctx).Table(table).
		Where("id = ? AND version = ?", id, expected).
		Updates(map[string]any{
			"deleted_at": now,
			"updated_at": now,
			"version":    expected + 1,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// ListActive — неудалённые строки по возрастанию id (полная синхронизация).
func (s *EntityStore) ListActive(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	var rows []map[string]any
	q := s.db.WithContext(ctx).Table(table).
		Where("deleted_at IS NULL").
		Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListSince — строки с updated_at > since, старые первыми (инкрементальная
// синхронизация). Удалённые строки включаются: классификация — дело движка.
func (s *EntityStore) ListSince(ctx context.Context, table string, since time.Time, limit int) ([]map[string]any, error) {
	var rows []map[string]any
	q := s.db.WithContext(ctx).Table(table).
		Where("updated_at > ?", since).
		Order("updated_at asc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// CountSince — сколько строк вернул бы pull с этим чекпойнтом.
// Фильтр обязан совпадать с ListActive/ListSince, иначе status разойдётся
// с pull.
func (s *EntityStore) CountSince(ctx context.Context, table string, since *time.Time) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Table(table)
	if since == nil {
		q = q.Where("deleted_at IS NULL")
	} else {
		q = q.Where("updated_at > ?", *since)
	}
	err := q.Count(&n).Error
	return n, err
}
