package models

import "time"

// Доменные таблицы настольного приложения (мир истории).
// Схема принадлежит настольному приложению; здесь — минимальный набор
// колонок, достаточный для миграции и синхронизации. Порядок перечисления
// типов для синхронизации задаётся в syncengine (родители раньше потомков).

type Storyline struct {
	SyncFields
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `json:"description"`
}

func (Storyline) TableName() string { return "storylines" }

type Setting struct {
	SyncFields
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `json:"description"`
}

func (Setting) TableName() string { return "settings" }

type Actor struct {
	SyncFields
	SettingID int64  `gorm:"index;not null" json:"setting_id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	Role      string `gorm:"size:255" json:"role"`
	Biography string `json:"biography"`
}

func (Actor) TableName() string { return "actors" }

type Faction struct {
	SyncFields
	SettingID   int64  `gorm:"index;not null" json:"setting_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `json:"description"`
}

func (Faction) TableName() string { return "factions" }

type Location struct {
	SyncFields
	SettingID   int64  `gorm:"index;not null" json:"setting_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Kind        string `gorm:"size:64" json:"kind"` // city|dungeon|region|...
	Description string `json:"description"`
}

func (Location) TableName() string { return "locations" }

type FactionMember struct {
	SyncFields
	FactionID int64  `gorm:"index;not null" json:"faction_id"`
	ActorID   int64  `gorm:"index;not null" json:"actor_id"`
	Role      string `gorm:"size:255" json:"role"`
}

func (FactionMember) TableName() string { return "faction_members" }

type Resident struct {
	SyncFields
	LocationID int64 `gorm:"index;not null" json:"location_id"`
	ActorID    int64 `gorm:"index;not null" json:"actor_id"`
}

func (Resident) TableName() string { return "residents" }

type Object struct {
	SyncFields
	SettingID   int64  `gorm:"index;not null" json:"setting_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `json:"description"`
}

func (Object) TableName() string { return "objects" }

type History struct {
	SyncFields
	SettingID   int64      `gorm:"index;not null" json:"setting_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (History) TableName() string { return "histories" }

type Arc struct {
	SyncFields
	StorylineID int64  `gorm:"index;not null" json:"storyline_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
}

func (Arc) TableName() string { return "arcs" }

type ArcPoint struct {
	SyncFields
	ArcID      int64  `gorm:"index;not null" json:"arc_id"`
	Title      string `gorm:"size:255;not null" json:"title"`
	OrderIndex int    `gorm:"not null;default:0" json:"order_index"`
}

func (ArcPoint) TableName() string { return "arc_points" }

type Note struct {
	SyncFields
	StorylineID int64  `gorm:"index;not null" json:"storyline_id"`
	Title       string `gorm:"size:255" json:"title"`
	Body        string `json:"body"`
}

func (Note) TableName() string { return "notes" }

// All — полный список моделей для AutoMigrate.
func All() []any {
	return []any{
		&SyncDevice{},
		&SyncLog{},
		&Storyline{},
		&Setting{},
		&Actor{},
		&Faction{},
		&Location{},
		&FactionMember{},
		&Resident{},
		&Object{},
		&History{},
		&Arc{},
		&ArcPoint{},
		&Note{},
	}
}
