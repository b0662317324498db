package syncengine

import (
	"context"

	"fabula/internal/logs"
)

// Apply обрабатывает входящий батч best-effort: отказ по одной сущности не
// прерывает остальные, общего транзакционного скобочного блока на батч нет —
// атомарна только мутация отдельной сущности.
func (e *Engine) Apply(ctx context.Context, changes []Change) PushResult {
	res := PushResult{Conflicts: []Conflict{}}
	for _, c := range changes {
		t, ok := Lookup(c.EntityType)
		if !ok {
			logs.Logger.Warnf("push: unknown entity type %q, rejecting #%d", c.EntityType, c.EntityID)
			res.Rejected++
			continue
		}

		var (
			status   applyStatus
			conflict *Conflict
			err      error
		)
		switch c.Operation {
		case OpCreate:
			status, conflict, err = e.applyCreate(ctx, t, c)
		case OpUpdate:
			status, conflict, err = e.applyUpdate(ctx, t, c)
		case OpDelete:
			status, conflict, err = e.applyDelete(ctx, t, c)
		default:
			logs.Logger.Warnf("push: unknown operation %q for %s#%d", c.Operation, c.EntityType, c.EntityID)
			status = statusRejected
		}

		if err != nil {
			// Ошибка хранилища: сущность отклонена, уже принятые не откатываются.
			logs.Logger.Errorf("push: storage error on %s#%d: %v", c.EntityType, c.EntityID, err)
			res.Rejected++
			continue
		}
		switch status {
		case statusAccepted:
			res.Accepted++
		case statusConflict:
			res.Conflicts = append(res.Conflicts, *conflict)
			res.Rejected++
		case statusRejected:
			res.Rejected++
		}
	}
	return res
}

type applyStatus int

const (
	statusAccepted applyStatus = iota
	statusConflict
	statusRejected
)

func (e *Engine) applyCreate(ctx context.Context, t EntityType, c Change) (applyStatus, *Conflict, error) {
	existing, err := e.entities.Get(ctx, t.Table, c.EntityID)
	if err != nil {
		return statusRejected, nil, err
	}
	if existing != nil {
		// create/create: настольная запись остаётся, клиенту отдаём её данные.
		return statusConflict, e.conflict(c, existing, OpCreate), nil
	}
	if c.Data == nil {
		return statusRejected, nil, nil
	}
	if err := e.entities.Insert(ctx, t.Table, c.EntityID, sanitize(c.Data), e.now().UTC()); err != nil {
		return statusRejected, nil, err
	}
	return statusAccepted, nil, nil
}

func (e *Engine) applyUpdate(ctx context.Context, t EntityType, c Change) (applyStatus, *Conflict, error) {
	existing, err := e.entities.Get(ctx, t.Table, c.EntityID)
	if err != nil {
		return statusRejected, nil, err
	}
	if existing == nil {
		return statusRejected, nil, nil
	}
	stored := fieldInt64(existing, "version")
	switch {
	case c.Version > stored:
		// Клиент впереди сервера — рассинхрон, а не обычный конфликт.
		// Отклоняем без записи конфликта и фиксируем в логе.
		logs.Logger.Warnf("push: version anomaly on %s#%d: mobile=%d desktop=%d",
			c.EntityType, c.EntityID, c.Version, stored)
		return statusRejected, nil, nil
	case c.Version < stored:
		return statusConflict, e.conflict(c, existing, OpUpdate), nil
	}
	if c.Data == nil {
		return statusRejected, nil, nil
	}
	ok, err := e.entities.UpdateIfVersion(ctx, t.Table, c.EntityID, c.Version, sanitize(c.Data), e.now().UTC())
	if err != nil {
		return statusRejected, nil, err
	}
	if !ok {
		// Оптимистичная проверка не прошла: кто-то успел раньше между
		// чтением и UPDATE. Перечитываем и отдаём конфликт.
		current, err := e.entities.Get(ctx, t.Table, c.EntityID)
		if err != nil || current == nil {
			return statusRejected, nil, err
		}
		return statusConflict, e.conflict(c, current, OpUpdate), nil
	}
	return statusAccepted, nil, nil
}

func (e *Engine) applyDelete(ctx context.Context, t EntityType, c Change) (applyStatus, *Conflict, error) {
	existing, err := e.entities.Get(ctx, t.Table, c.EntityID)
	if err != nil {
		return statusRejected, nil, err
	}
	if existing == nil {
		// Удаление уже отсутствующей сущности идемпотентно.
		return statusAccepted, nil, nil
	}
	stored := fieldInt64(existing, "version")
	switch {
	case c.Version > stored:
		logs.Logger.Warnf("push: version anomaly on delete %s#%d: mobile=%d desktop=%d",
			c.EntityType, c.EntityID, c.Version, stored)
		return statusRejected, nil, nil
	case c.Version < stored:
		return statusConflict, e.conflict(c, existing, OpDelete), nil
	}
	ok, err := e.entities.SoftDeleteIfVersion(ctx, t.Table, c.EntityID, c.Version, e.now().UTC())
	if err != nil {
		return statusRejected, nil, err
	}
	if !ok {
		current, err := e.entities.Get(ctx, t.Table, c.EntityID)
		if err != nil || current == nil {
			return statusRejected, nil, err
		}
		return statusConflict, e.conflict(c, current, OpDelete), nil
	}
	return statusAccepted, nil, nil
}

func (e *Engine) conflict(c Change, desktop map[string]any, op Op) *Conflict {
	cf := &Conflict{
		EntityType:      c.EntityType,
		EntityID:        c.EntityID,
		MobileVersion:   c.Version,
		DesktopVersion:  fieldInt64(desktop, "version"),
		MobileUpdatedAt: c.UpdatedAt,
		MobileData:      c.Data,
		DesktopData:     desktop,
		Resolution:      resolutionPolicy[op],
	}
	if up := fieldTime(desktop, "updated_at"); up != nil {
		cf.DesktopUpdatedAt = *up
	}
	return cf
}
