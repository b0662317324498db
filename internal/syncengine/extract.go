package syncengine

import (
	"context"
	"sort"
	"time"

	"fabula/internal/repo"
)

// Engine — ядро синхронизации: извлечение изменений (pull) и применение
// входящих батчей с детекцией конфликтов (push).
type Engine struct {
	entities *repo.EntityStore
	batch    int
	now      func() time.Time
}

func New(entities *repo.EntityStore, batchSize int) *Engine {
	return &Engine{entities: entities, batch: batchSize, now: time.Now}
}

// Changes возвращает изменения после чекпойнта since.
//
// since == nil — полная синхронизация: все неудалённые сущности как create,
// в порядке реестра (родители раньше потомков), внутри типа по id. Лимит
// батча здесь не действует: чекпойнт после усечённой полной выдачи
// перепрыгнул бы сущности поздних типов с более старым updated_at.
//
// since != nil — инкрементальная, не больше batch штук: строки с
// updated_at > since, старые первыми по всем типам вместе. Сервер не
// сигналит "есть ещё" — клиент тянет повторно со свежим чекпойнтом,
// пока не получит меньше лимита.
func (e *Engine) Changes(ctx context.Context, since *time.Time, entityTypes []string) ([]Change, error) {
	types := filterTypes(entityTypes)
	if since == nil {
		return e.fullSync(ctx, types)
	}
	return e.incremental(ctx, *since, types)
}

func (e *Engine) fullSync(ctx context.Context, types []EntityType) ([]Change, error) {
	changes := []Change{}
	for _, t := range types {
		rows, err := e.entities.ListActive(ctx, t.Table, 0)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			changes = append(changes, changeFromRow(t.Name, OpCreate, row))
		}
	}
	return changes, nil
}

func (e *Engine) incremental(ctx context.Context, since time.Time, types []EntityType) ([]Change, error) {
	changes := make([]Change, 0, e.batch)
	for _, t := range types {
		rows, err := e.entities.ListSince(ctx, t.Table, since, e.batch)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			c, ok := classify(t.Name, since, row)
			if !ok {
				continue
			}
			changes = append(changes, c)
		}
	}
	// Старые изменения первыми по всем типам сразу: при усечении до лимита
	// клиент гарантированно не перепрыгнет чекпойнтом через невиденное.
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})
	if len(changes) > e.batch {
		changes = changes[:e.batch]
	}
	return changes, nil
}

// classify раскладывает строку в операцию относительно чекпойнта.
// Удалённая до чекпойнта строка пропускается: её delete клиент уже видел.
func classify(entityType string, since time.Time, row map[string]any) (Change, bool) {
	deletedAt := fieldTime(row, "deleted_at")
	if deletedAt != nil {
		if !deletedAt.After(since) {
			return Change{}, false
		}
		c := changeFromRow(entityType, OpDelete, row)
		c.Data = nil
		return c, true
	}
	createdAt := fieldTime(row, "created_at")
	if createdAt != nil && createdAt.After(since) {
		return changeFromRow(entityType, OpCreate, row), true
	}
	return changeFromRow(entityType, OpUpdate, row), true
}

func changeFromRow(entityType string, op Op, row map[string]any) Change {
	c := Change{
		EntityType: entityType,
		EntityID:   fieldInt64(row, "id"),
		Operation:  op,
		Version:    fieldInt64(row, "version"),
	}
	if up := fieldTime(row, "updated_at"); up != nil {
		c.UpdatedAt = *up
	}
	if op != OpDelete {
		c.Data = row
	}
	return c
}

// PendingCount считает, сколько изменений вернул бы pull с этим чекпойнтом.
// Тот же фильтр, что и в Changes, — status и pull не должны расходиться.
func (e *Engine) PendingCount(ctx context.Context, since *time.Time) (int64, error) {
	var total int64
	for _, t := range Registry {
		n, err := e.entities.CountSince(ctx, t.Table, since)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
