package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	s := NewEntityStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(ctx, "actors", 1, map[string]any{
		"setting_id": int64(1),
		"name":       "Aria",
	}, now))

	row, err := s.Get(ctx, "actors", 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Aria", row["name"])
	assert.EqualValues(t, 1, row["version"])

	missing, err := s.Get(ctx, "actors", 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateIfVersion(t *testing.T) {
	s := NewEntityStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(ctx, "actors", 1, map[string]any{"setting_id": int64(1), "name": "Aria"}, now))

	// совпавшая версия — одна затронутая строка
	ok, err := s.UpdateIfVersion(ctx, "actors", 1, 1, map[string]any{"name": "Aria II"}, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	row, err := s.Get(ctx, "actors", 1)
	require.NoError(t, err)
	assert.Equal(t, "Aria II", row["name"])
	assert.EqualValues(t, 2, row["version"])

	// устаревшая версия — ноль затронутых строк, данные не тронуты
	ok, err = s.UpdateIfVersion(ctx, "actors", 1, 1, map[string]any{"name": "stale"}, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	row, err = s.Get(ctx, "actors", 1)
	require.NoError(t, err)
	assert.Equal(t, "Aria II", row["name"])
	assert.EqualValues(t, 2, row["version"])
}

func TestSoftDeleteIfVersion(t *testing.T) {
	s := NewEntityStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(ctx, "actors", 1, map[string]any{"setting_id": int64(1), "name": "Aria"}, now))

	ok, err := s.SoftDeleteIfVersion(ctx, "actors", 1, 2, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.SoftDeleteIfVersion(ctx, "actors", 1, 1, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	row, err := s.Get(ctx, "actors", 1)
	require.NoError(t, err)
	assert.NotNil(t, row["deleted_at"])
	assert.EqualValues(t, 2, row["version"])

	// удалённые строки не входят в ListActive
	rows, err := s.ListActive(ctx, "actors", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListSinceAndCount(t *testing.T) {
	s := NewEntityStore(openTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, s.Insert(ctx, "actors", 1, map[string]any{"setting_id": int64(1), "name": "old"}, base))
	require.NoError(t, s.Insert(ctx, "actors", 2, map[string]any{"setting_id": int64(1), "name": "new"}, base.Add(30*time.Minute)))

	cut := base.Add(15 * time.Minute)
	rows, err := s.ListSince(ctx, "actors", cut, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0]["name"])

	n, err := s.CountSince(ctx, "actors", &cut)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// nil-чекпойнт считает неудалённые строки (то, что вернёт полный pull)
	n, err = s.CountSince(ctx, "actors", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
