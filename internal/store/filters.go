package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
)

// FilterStore is the typed view over the filter list table. Records are
// normalized and validated before they reach the document.
type FilterStore struct {
	db *Database
}

func NewFilterStore(db *Database) *FilterStore {
	return &FilterStore{db: db}
}

// Insert persists f as a new list and sets f.ID.
func (s *FilterStore) Insert(ctx context.Context, f *domain.FilterList) (int, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return 0, err
	}
	id, err := s.db.Insert(ctx, TableFilters, f)
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// Update overwrites the stored list identified by f.ID with f.
func (s *FilterStore) Update(ctx context.Context, f *domain.FilterList) (int, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return s.db.Update(ctx, TableFilters, f.ID, f)
}

// Merge applies a raw JSON patch over the stored list. The merged result
// must still be a valid list; otherwise nothing is written.
func (s *FilterStore) Merge(ctx context.Context, id int, patch json.RawMessage) (*domain.FilterList, error) {
	fields, err := toObject(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var merged *domain.FilterList
	_, err = s.db.Modify(ctx, TableFilters, id, func(current json.RawMessage) (map[string]json.RawMessage, error) {
		base := make(map[string]json.RawMessage)
		if err := json.Unmarshal(current, &base); err != nil {
			return nil, fmt.Errorf("decode filter %d: %w", id, err)
		}
		for k, v := range fields {
			base[k] = v
		}
		idRaw, _ := json.Marshal(id)
		base["id"] = idRaw

		raw, err := json.Marshal(base)
		if err != nil {
			return nil, err
		}
		f, err := domain.DecodeFilterList(raw)
		if err != nil {
			return nil, err
		}
		merged = f
		return toObject(f)
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Apply loads the list, lets fn change it and stores the result, all
// under the store write lock.
func (s *FilterStore) Apply(ctx context.Context, id int, fn func(f *domain.FilterList) error) (*domain.FilterList, error) {
	var out *domain.FilterList
	_, err := s.db.Modify(ctx, TableFilters, id, func(current json.RawMessage) (map[string]json.RawMessage, error) {
		f, err := decodeStored(current)
		if err != nil {
			return nil, err
		}
		if err := fn(f); err != nil {
			return nil, err
		}
		f.ID = id
		f.Normalize()
		if err := f.Validate(); err != nil {
			return nil, err
		}
		out = f
		return toObject(f)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FilterStore) Get(id int) (*domain.FilterList, error) {
	raw, err := s.db.Find(TableFilters, id)
	if err != nil {
		return nil, err
	}
	return decodeStored(raw)
}

func (s *FilterStore) All(page Page) ([]*domain.FilterList, error) {
	raws, err := s.db.FindAll(TableFilters, page)
	if err != nil {
		return nil, err
	}

	lists := make([]*domain.FilterList, 0, len(raws))
	for _, raw := range raws {
		f, err := decodeStored(raw)
		if err != nil {
			return nil, err
		}
		lists = append(lists, f)
	}
	return lists, nil
}

func (s *FilterStore) Delete(ctx context.Context, id int) error {
	return s.db.Delete(ctx, TableFilters, id)
}

// ByCryptID finds a list by its share identifier.
func (s *FilterStore) ByCryptID(cryptID string) (*domain.FilterList, error) {
	if cryptID == "" {
		return nil, domain.ErrNotFound
	}
	lists, err := s.All(Page{})
	if err != nil {
		return nil, err
	}
	for _, f := range lists {
		if f.CryptID == cryptID {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: shared list %s", domain.ErrNotFound, cryptID)
}

// Imported returns every list carrying an origin.
func (s *FilterStore) Imported() ([]*domain.FilterList, error) {
	lists, err := s.All(Page{})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.FilterList, 0)
	for _, f := range lists {
		if f.Imported() {
			out = append(out, f)
		}
	}
	return out, nil
}

// decodeStored reads a persisted record without re-validating it, so a
// legacy record never makes the whole table unreadable.
func decodeStored(raw json.RawMessage) (*domain.FilterList, error) {
	var f domain.FilterList
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode filter list: %w", err)
	}
	if f.CIDs == nil {
		f.CIDs = []domain.CidItem{}
	}
	return &f, nil
}
