package syncengine

import "time"

// Op — закрытое множество операций синхронизации. Обработчики обязаны
// матчить его исчерпывающе: незнакомая операция отклоняется, а не
// молча пропускается.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (o Op) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Resolution — стратегия разрешения конфликта.
type Resolution string

const (
	ResolutionDesktopWins Resolution = "desktop_wins"
	ResolutionMerge       Resolution = "merge"
	ResolutionManual      Resolution = "manual"
)

// Явная таблица политики: вид операции -> стратегия. Изменение политики —
// правка таблицы, а не управляющего потока.
var resolutionPolicy = map[Op]Resolution{
	OpCreate: ResolutionDesktopWins,
	OpUpdate: ResolutionMerge,
	OpDelete: ResolutionMerge,
}

// Change — одно изменение сущности в любом направлении.
// Для delete поле data отсутствует.
type Change struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Operation  Op             `json:"operation"`
	Data       map[string]any `json:"data,omitempty"`
	Version    int64          `json:"version"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Conflict — результат несовпадения версий. Возвращается клиенту как данные,
// никогда не как ошибка уровня запроса.
type Conflict struct {
	EntityType       string         `json:"entity_type"`
	EntityID         int64          `json:"entity_id"`
	MobileVersion    int64          `json:"mobile_version"`
	DesktopVersion   int64          `json:"desktop_version"`
	MobileUpdatedAt  time.Time      `json:"mobile_updated_at"`
	DesktopUpdatedAt time.Time      `json:"desktop_updated_at"`
	MobileData       map[string]any `json:"mobile_data,omitempty"`
	DesktopData      map[string]any `json:"desktop_data,omitempty"`
	Resolution       Resolution     `json:"resolution"`
}

// PushResult — итог обработки батча push.
type PushResult struct {
	Accepted  int        `json:"accepted"`
	Rejected  int        `json:"rejected"`
	Conflicts []Conflict `json:"conflicts"`
}
