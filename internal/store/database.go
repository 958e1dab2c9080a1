package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

const (
	TableConfig  = "config"
	TableFilters = "bitscreen"
)

// Tables lists the tables provisioned in every document.
var Tables = []string{TableConfig, TableFilters}

// Page bounds a FindAll result. A zero Limit returns every record
// after Offset.
type Page struct {
	Offset int
	Limit  int
}

// table is the persisted shape of one logical table.
type table struct {
	Name         string                  `json:"name"`
	Data         map[int]json.RawMessage `json:"data"`
	NextInsertID int                     `json:"nextInsertId"`
}

func newTable(name string) *table {
	return &table{Name: name, Data: make(map[int]json.RawMessage), NextInsertID: 1}
}

func (t *table) firstID() (int, bool) {
	first, found := 0, false
	for id := range t.Data {
		if !found || id < first {
			first, found = id, true
		}
	}
	return first, found
}

func (t *table) clone() *table {
	data := make(map[int]json.RawMessage, len(t.Data))
	for id, raw := range t.Data {
		data[id] = raw
	}
	return &table{Name: t.Name, Data: data, NextInsertID: t.NextInsertID}
}

// Database is a JSON document made of id-indexed tables.
//
// Reads are served from memory. Every mutation holds the write lock
// until the whole document has been handed to the backend, so concurrent
// writers are serialized instead of overwriting each other.
type Database struct {
	mu      sync.RWMutex
	tables  map[string]*table
	backend Backend
	log     logger.Logger
}

// Open loads the document from backend, or creates and persists an empty
// one with every provisioned table.
func Open(ctx context.Context, backend Backend, log logger.Logger) (*Database, error) {
	db := &Database{
		tables:  make(map[string]*table, len(Tables)),
		backend: backend,
		log:     log,
	}

	raw, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoDocument):
		for _, name := range Tables {
			db.tables[name] = newTable(name)
		}
		if err := db.persistLocked(ctx); err != nil {
			return nil, err
		}
		log.Info("store document created", logger.String("backend", backend.Name()))
		return db, nil
	case err != nil:
		return nil, fmt.Errorf("load store document: %w", err)
	}

	if err := json.Unmarshal(raw, &db.tables); err != nil {
		return nil, fmt.Errorf("decode store document: %w", err)
	}
	if db.tables == nil {
		db.tables = make(map[string]*table, len(Tables))
	}
	db.repair()

	log.Info("store document loaded",
		logger.String("backend", backend.Name()),
		logger.Int("filters", len(db.tables[TableFilters].Data)))
	return db, nil
}

// repair provisions missing tables and moves counters past existing ids.
func (db *Database) repair() {
	for _, name := range Tables {
		t, ok := db.tables[name]
		if !ok || t == nil {
			db.tables[name] = newTable(name)
			continue
		}
		if t.Name == "" {
			t.Name = name
		}
		if t.Data == nil {
			t.Data = make(map[int]json.RawMessage)
		}
		for id := range t.Data {
			if id >= t.NextInsertID {
				db.log.Warn("store counter behind existing ids, advancing",
					logger.String("table", name),
					logger.Int("next_insert_id", t.NextInsertID),
					logger.Int("id", id))
				t.NextInsertID = id + 1
			}
		}
		if t.NextInsertID < 1 {
			t.NextInsertID = 1
		}
	}
}

// BackendName returns the name of the underlying backend.
func (db *Database) BackendName() string {
	return db.backend.Name()
}

// Insert stores record under the next id of the table and returns that id.
func (db *Database) Insert(ctx context.Context, name string, record any) (int, error) {
	fields, err := toObject(record)
	if err != nil {
		return 0, err
	}

	return db.mutate(ctx, name, func(t *table) (int, error) {
		id := t.NextInsertID
		raw, err := withID(fields, id)
		if err != nil {
			return 0, err
		}
		t.Data[id] = raw
		t.NextInsertID++
		return id, nil
	})
}

// Update merges the top-level fields of patch over the record and
// returns its id. The stored id always wins over one carried by patch.
func (db *Database) Update(ctx context.Context, name string, id int, patch any) (int, error) {
	fields, err := toObject(patch)
	if err != nil {
		return 0, err
	}
	return db.Modify(ctx, name, id, func(json.RawMessage) (map[string]json.RawMessage, error) {
		return fields, nil
	})
}

// Modify computes a patch from the current record while holding the
// write lock, then merges and persists it like Update.
func (db *Database) Modify(ctx context.Context, name string, id int, fn func(current json.RawMessage) (map[string]json.RawMessage, error)) (int, error) {
	return db.mutate(ctx, name, func(t *table) (int, error) {
		current, ok := t.Data[id]
		if !ok {
			return 0, &UnknownEntryError{Table: name, ID: id}
		}

		patch, err := fn(current)
		if err != nil {
			return 0, err
		}

		merged := make(map[string]json.RawMessage)
		if err := json.Unmarshal(current, &merged); err != nil {
			return 0, fmt.Errorf("decode %s/%d: %w", name, id, err)
		}
		for k, v := range patch {
			merged[k] = v
		}

		raw, err := withID(merged, id)
		if err != nil {
			return 0, err
		}
		t.Data[id] = raw
		return id, nil
	})
}

// Upsert merges patch into the lowest-id record of the table, or inserts
// it as a new record when the table is empty. Lookup and write happen
// under one lock, so concurrent first writers end up in a single record.
func (db *Database) Upsert(ctx context.Context, name string, patch any) (int, error) {
	fields, err := toObject(patch)
	if err != nil {
		return 0, err
	}

	return db.mutate(ctx, name, func(t *table) (int, error) {
		id, ok := t.firstID()
		if !ok {
			id = t.NextInsertID
			t.NextInsertID++
			t.Data[id] = json.RawMessage(`{}`)
		}

		merged := make(map[string]json.RawMessage)
		if err := json.Unmarshal(t.Data[id], &merged); err != nil {
			return 0, fmt.Errorf("decode %s/%d: %w", name, id, err)
		}
		for k, v := range fields {
			merged[k] = v
		}

		raw, err := withID(merged, id)
		if err != nil {
			return 0, err
		}
		t.Data[id] = raw
		return id, nil
	})
}

// Delete removes the record. Its id is never handed out again.
func (db *Database) Delete(ctx context.Context, name string, id int) error {
	_, err := db.mutate(ctx, name, func(t *table) (int, error) {
		if _, ok := t.Data[id]; !ok {
			return 0, &UnknownEntryError{Table: name, ID: id}
		}
		delete(t.Data, id)
		return id, nil
	})
	return err
}

// Find returns a copy of the stored record.
func (db *Database) Find(name string, id int) (json.RawMessage, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return nil, &UnknownTableError{Table: name}
	}
	raw, ok := t.Data[id]
	if !ok {
		return nil, &UnknownEntryError{Table: name, ID: id}
	}
	return append(json.RawMessage(nil), raw...), nil
}

// FindAll returns records in insertion order, bounded by page.
func (db *Database) FindAll(name string, page Page) ([]json.RawMessage, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return nil, &UnknownTableError{Table: name}
	}

	ids := make([]int, 0, len(t.Data))
	for id := range t.Data {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	start := min(max(page.Offset, 0), len(ids))
	end := len(ids)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}

	out := make([]json.RawMessage, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, append(json.RawMessage(nil), t.Data[id]...))
	}
	return out, nil
}

// Count returns the number of records in a table.
func (db *Database) Count(name string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	if !ok {
		return 0, &UnknownTableError{Table: name}
	}
	return len(t.Data), nil
}

// mutate applies fn to a table and persists the document. On failure the
// table is restored to its previous state.
func (db *Database) mutate(ctx context.Context, name string, fn func(t *table) (int, error)) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tables[name]
	if !ok {
		return 0, &UnknownTableError{Table: name}
	}

	backup := t.clone()
	id, err := fn(t)
	if err != nil {
		db.tables[name] = backup
		return 0, err
	}

	if err := db.persistLocked(ctx); err != nil {
		db.tables[name] = backup
		return 0, err
	}
	return id, nil
}

func (db *Database) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(db.tables)
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}
	if err := db.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("persist store document: %w", err)
	}
	return nil
}

// toObject converts a record to its top-level JSON fields.
func toObject(record any) (map[string]json.RawMessage, error) {
	var data []byte
	switch v := record.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(record); err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, errors.New("store: record must be a JSON object")
	}
	return fields, nil
}

func withID(fields map[string]json.RawMessage, id int) (json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	idRaw, _ := json.Marshal(id)
	out["id"] = idRaw

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return raw, nil
}
