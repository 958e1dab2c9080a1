package store

import (
	"context"
	"encoding/json"
)

// ConfigStore keeps the single opaque config record.
type ConfigStore struct {
	db *Database
}

func NewConfigStore(db *Database) *ConfigStore {
	return &ConfigStore{db: db}
}

// Get returns the config record, or an empty object when none was saved.
func (s *ConfigStore) Get() (map[string]json.RawMessage, error) {
	raws, err := s.db.FindAll(TableConfig, Page{Limit: 1})
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage)
	if len(raws) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raws[0], &out); err != nil {
		return nil, err
	}
	delete(out, "id")
	return out, nil
}

// Merge overwrites the top-level keys present in patch and keeps the
// others. It returns the resulting record.
func (s *ConfigStore) Merge(ctx context.Context, patch map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	clean := make(map[string]json.RawMessage, len(patch))
	for k, v := range patch {
		if k == "id" {
			continue
		}
		clean[k] = v
	}

	if _, err := s.db.Upsert(ctx, TableConfig, clean); err != nil {
		return nil, err
	}
	return s.Get()
}
