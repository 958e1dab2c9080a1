package filters

import (
	"context"
	"io"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

// ImportResult reports a CID batch import into one list.
type ImportResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	// Conflicts is only filled for exception lists: rows of regular
	// lists that block one of the imported cids.
	Conflicts []domain.Conflict   `json:"conflicts"`
	Kind      domain.ConflictKind `json:"kind"`
}

// ImportCIDs parses a CID batch and appends the cids the list does not
// hold yet.
func (s *Service) ImportCIDs(ctx context.Context, id int, r io.Reader) (ImportResult, error) {
	items, stats, err := domain.ParseCIDBatch(r)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Duplicates: stats.Duplicates, Conflicts: []domain.Conflict{}, Kind: domain.ConflictNone}
	added := make([]string, 0, len(items))

	f, err := s.edit(ctx, id, func(f *domain.FilterList) error {
		for _, item := range items {
			if f.HasCID(item.CID) {
				res.Duplicates++
				continue
			}
			item.ID = domain.NewItemID()
			f.CIDs = append(f.CIDs, item)
			added = append(added, item.CID)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	res.Added = len(added)

	if f.Override && len(added) > 0 {
		conflicts, kind, err := s.DetectConflicts(added, f.ID)
		if err != nil {
			return ImportResult{}, err
		}
		res.Conflicts, res.Kind = conflicts, kind
	}

	s.log.Info("cid batch imported",
		logger.Int("id", id),
		logger.Int("lines", stats.Lines),
		logger.Int("added", res.Added),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("conflicts", len(res.Conflicts)))
	return res, nil
}
