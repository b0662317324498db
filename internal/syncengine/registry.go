package syncengine

// EntityType — синхронизируемый тип сущности и его таблица.
type EntityType struct {
	Name    string
	Table   string
	Parents []string // типы, на которые ссылаемся по FK
}

// Registry — фиксированный топологический порядок типов: родители строго
// раньше потомков. Полная синхронизация отдаёт типы именно в этом порядке,
// чтобы клиент мог воспроизводить записи без нарушения FK. Порядок не
// вычисляется динамически — при добавлении типа вставить его вручную
// после всех родителей.
var Registry = []EntityType{
	{Name: "storyline", Table: "storylines"},
	{Name: "setting", Table: "settings"},
	{Name: "actor", Table: "actors", Parents: []string{"setting"}},
	{Name: "faction", Table: "factions", Parents: []string{"setting"}},
	{Name: "location", Table: "locations", Parents: []string{"setting"}},
	{Name: "faction_member", Table: "faction_members", Parents: []string{"faction", "actor"}},
	{Name: "resident", Table: "residents", Parents: []string{"location", "actor"}},
	{Name: "object", Table: "objects", Parents: []string{"setting"}},
	{Name: "history", Table: "histories", Parents: []string{"setting"}},
	{Name: "arc", Table: "arcs", Parents: []string{"storyline"}},
	{Name: "arc_point", Table: "arc_points", Parents: []string{"arc"}},
	{Name: "note", Table: "notes", Parents: []string{"storyline"}},
}

var registryByName = func() map[string]EntityType {
	m := make(map[string]EntityType, len(Registry))
	for _, t := range Registry {
		m[t.Name] = t
	}
	return m
}()

// Lookup возвращает тип по имени.
func Lookup(name string) (EntityType, bool) {
	t, ok := registryByName[name]
	return t, ok
}

// filterTypes сужает реестр до запрошенных типов, сохраняя порядок реестра.
// Незнакомые имена молча пропускаются — клиент может быть новее сервера.
func filterTypes(names []string) []EntityType {
	if len(names) == 0 {
		return Registry
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]EntityType, 0, len(names))
	for _, t := range Registry {
		if _, ok := want[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}
