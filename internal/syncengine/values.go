package syncengine

import "time"

// Хелперы чтения журнальных полей из map-строк. Драйверы отдают
// timestamp-колонки по-разному (time.Time у postgres/mysql, иногда строка
// у sqlite), поэтому приводим терпимо.

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func fieldTime(row map[string]any, key string) *time.Time {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				u := parsed.UTC()
				return &u
			}
		}
	}
	return nil
}

func fieldInt64(row map[string]any, key string) int64 {
	switch n := row[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// sanitize отбрасывает журнальные колонки из входящих данных: id задаётся
// адресацией изменения, а created_at/updated_at/deleted_at/version — только
// сервером. Клиент не может продвинуть журнал напрямую.
func sanitize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case "id", "created_at", "updated_at", "deleted_at", "version":
			continue
		}
		out[k] = v
	}
	return out
}
