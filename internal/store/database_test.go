package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

// memBackend keeps the document in memory and counts saves.
type memBackend struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  error
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) Load(context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), b.data...), nil
}

func (b *memBackend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.data = append([]byte(nil), data...)
	b.saves++
	return nil
}

func openMem(t *testing.T) (*Database, *memBackend) {
	t.Helper()
	b := &memBackend{}
	db, err := Open(context.Background(), b, logger.NewNop())
	require.NoError(t, err)
	return db, b
}

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestOpenCreatesDocument(t *testing.T) {
	_, b := openMem(t)

	require.Equal(t, 1, b.saves)
	var doc map[string]table
	require.NoError(t, json.Unmarshal(b.data, &doc))
	for _, name := range Tables {
		assert.Equal(t, name, doc[name].Name)
		assert.Equal(t, 1, doc[name].NextInsertID)
		assert.Empty(t, doc[name].Data)
	}
}

func TestInsertMonotonicWithDeletes(t *testing.T) {
	ctx := context.Background()
	db, _ := openMem(t)

	var ids []int
	for i := 0; i < 5; i++ {
		id, err := db.Insert(ctx, TableFilters, map[string]any{"n": i})
		require.NoError(t, err)
		ids = append(ids, id)
		if i%2 == 0 {
			require.NoError(t, db.Delete(ctx, TableFilters, id))
		}
	}

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	id, err := db.Insert(ctx, TableFilters, map[string]any{"n": "last"})
	require.NoError(t, err)
	assert.Equal(t, ids[len(ids)-1]+1, id, "deleted ids must not be reused")
}

func TestUnknownTable(t *testing.T) {
	db, _ := openMem(t)

	_, err := db.Insert(context.Background(), "complaints", map[string]any{})
	var tableErr *UnknownTableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, "complaints", tableErr.Table)

	_, err = db.FindAll("complaints", Page{})
	require.ErrorAs(t, err, &tableErr)
}

func TestUnknownEntry(t *testing.T) {
	ctx := context.Background()
	db, _ := openMem(t)

	_, err := db.Find(TableFilters, 42)
	assert.True(t, IsUnknownEntry(err))

	_, err = db.Update(ctx, TableFilters, 42, map[string]any{"a": 1})
	assert.True(t, IsUnknownEntry(err))

	err = db.Delete(ctx, TableFilters, 42)
	assert.True(t, IsUnknownEntry(err))
}

func TestUpdateShallowMerge(t *testing.T) {
	ctx := context.Background()
	db, _ := openMem(t)

	id, err := db.Insert(ctx, TableFilters, map[string]any{"a": 0, "b": 2})
	require.NoError(t, err)

	got, err := db.Update(ctx, TableFilters, id, map[string]any{"a": 1, "id": 99})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	raw, err := db.Find(TableFilters, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2), "id": float64(id)}, decode(t, raw))
}

func TestInsertRejectsNonObject(t *testing.T) {
	db, _ := openMem(t)

	_, err := db.Insert(context.Background(), TableFilters, []int{1, 2})
	require.Error(t, err)
}

func TestFindAllPaging(t *testing.T) {
	ctx := context.Background()
	db, _ := openMem(t)

	for i := 0; i < 5; i++ {
		_, err := db.Insert(ctx, TableFilters, map[string]any{"n": i})
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		page Page
		want []float64
	}{
		{name: "all", page: Page{}, want: []float64{1, 2, 3, 4, 5}},
		{name: "first two", page: Page{Limit: 2}, want: []float64{1, 2}},
		{name: "offset", page: Page{Offset: 3}, want: []float64{4, 5}},
		{name: "window", page: Page{Offset: 1, Limit: 2}, want: []float64{2, 3}},
		{name: "past end", page: Page{Offset: 10}, want: []float64{}},
		{name: "negative offset", page: Page{Offset: -1, Limit: 1}, want: []float64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := db.FindAll(TableFilters, tt.page)
			require.NoError(t, err)

			got := make([]float64, 0, len(raws))
			for _, raw := range raws {
				got = append(got, decode(t, raw)["id"].(float64))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	db, b := openMem(t)

	id, err := db.Insert(ctx, TableFilters, map[string]any{"a": 1})
	require.NoError(t, err)

	b.fail = errors.New("disk full")
	_, err = db.Update(ctx, TableFilters, id, map[string]any{"a": 2})
	require.Error(t, err)
	_, err = db.Insert(ctx, TableFilters, map[string]any{"a": 3})
	require.Error(t, err)

	raw, err := db.Find(TableFilters, id)
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, raw)["a"])

	b.fail = nil
	next, err := db.Insert(ctx, TableFilters, map[string]any{"a": 4})
	require.NoError(t, err)
	assert.Equal(t, id+1, next, "a failed insert must not consume an id")
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	db, b := openMem(t)

	id, err := db.Insert(ctx, TableFilters, map[string]any{})
	require.NoError(t, err)

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			if i >= 26 {
				key += "2"
			}
			_, err := db.Update(ctx, TableFilters, id, map[string]any{key: i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reopened, err := Open(ctx, b, logger.NewNop())
	require.NoError(t, err)
	raw, err := reopened.Find(TableFilters, id)
	require.NoError(t, err)
	assert.Len(t, decode(t, raw), writers+1, "every writer's field plus id must be persisted")
}

func TestFileBackendPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "local_database")

	fb := NewFileBackend(path)
	assert.Equal(t, path, fb.Path())

	db, err := Open(ctx, fb, logger.NewNop())
	require.NoError(t, err)

	first, err := db.Insert(ctx, TableFilters, map[string]any{"name": "one"})
	require.NoError(t, err)
	second, err := db.Insert(ctx, TableFilters, map[string]any{"name": "two"})
	require.NoError(t, err)
	require.NoError(t, db.Delete(ctx, TableFilters, second))

	reopened, err := Open(ctx, NewFileBackend(path), logger.NewNop())
	require.NoError(t, err)

	raw, err := reopened.Find(TableFilters, first)
	require.NoError(t, err)
	assert.Equal(t, "one", decode(t, raw)["name"])

	third, err := reopened.Insert(ctx, TableFilters, map[string]any{"name": "three"})
	require.NoError(t, err)
	assert.Equal(t, second+1, third)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".local_database-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temp files left behind")
}

func TestOpenRepairsCounter(t *testing.T) {
	b := &memBackend{data: []byte(`{"bitscreen":{"name":"bitscreen","data":{"7":{"id":7}},"nextInsertId":3}}`)}

	db, err := Open(context.Background(), b, logger.NewNop())
	require.NoError(t, err)

	id, err := db.Insert(context.Background(), TableFilters, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 8, id)

	n, err := db.Count(TableConfig)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "missing tables are provisioned")
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	db, _ := openMem(t)

	id, err := db.Upsert(ctx, TableConfig, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	again, err := db.Upsert(ctx, TableConfig, map[string]any{"b": 2, "id": 7})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	raw, err := db.Find(TableConfig, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2), "id": float64(1)}, decode(t, raw))

	n, err := db.Count(TableConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertRollsBackInsert(t *testing.T) {
	ctx := context.Background()
	db, b := openMem(t)

	b.fail = errors.New("disk full")
	_, err := db.Upsert(ctx, TableConfig, map[string]any{"a": 1})
	require.Error(t, err)

	n, err := db.Count(TableConfig)
	require.NoError(t, err)
	assert.Zero(t, n)

	b.fail = nil
	id, err := db.Upsert(ctx, TableConfig, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, id, "a failed upsert must not consume an id")
}
