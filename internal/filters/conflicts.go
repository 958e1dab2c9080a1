package filters

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

// Resolution is the outcome of a conflict resolution batch.
type Resolution struct {
	Resolved []domain.Conflict `json:"resolved"`
	Failed   []FailedConflict  `json:"failed"`
	// Pending is the input minus the resolved conflicts.
	Pending []domain.Conflict `json:"pending"`
}

// FailedConflict carries a conflict that could not be removed. Error is
// safe to show to the owner.
type FailedConflict struct {
	domain.Conflict
	Error string `json:"error"`
}

// DetectConflicts returns the rows of the owner's regular lists holding
// one of cids, ignoring the list identified by targetID.
func (s *Service) DetectConflicts(cids []string, targetID int) ([]domain.Conflict, domain.ConflictKind, error) {
	lists, err := s.repo.All(store.Page{})
	if err != nil {
		return nil, domain.ConflictNone, err
	}
	conflicts := domain.DetectConflicts(lists, cids, targetID)
	return conflicts, domain.ClassifyConflicts(conflicts), nil
}

// ResolveConflicts deletes every conflicting row from its list. Each
// deletion is independent: a failure is recorded and the batch goes on.
func (s *Service) ResolveConflicts(ctx context.Context, conflicts []domain.Conflict) Resolution {
	res := Resolution{
		Resolved: make([]domain.Conflict, 0, len(conflicts)),
		Failed:   make([]FailedConflict, 0),
	}

	for _, c := range conflicts {
		if err := s.removeConflict(ctx, c); err != nil {
			s.log.Warn("conflict not resolved",
				logger.Int("filter_id", c.FilterID),
				logger.String("item_id", c.ID),
				logger.Error(err))
			res.Failed = append(res.Failed, FailedConflict{Conflict: c, Error: publicMessage(err)})
			continue
		}
		res.Resolved = append(res.Resolved, c)
	}

	res.Pending = domain.WithoutConflicts(conflicts, res.Resolved)
	s.log.Info("conflicts resolved",
		logger.Int("resolved", len(res.Resolved)),
		logger.Int("failed", len(res.Failed)))
	return res
}

func (s *Service) removeConflict(ctx context.Context, c domain.Conflict) error {
	_, err := s.edit(ctx, c.FilterID, func(f *domain.FilterList) error {
		if f.Override {
			return fmt.Errorf("%w: list %d is an exception list", domain.ErrValidation, f.ID)
		}
		item, ok := f.FindItem(c.ID)
		if !ok {
			return fmt.Errorf("%w: cid row %s in list %d", domain.ErrNotFound, c.ID, f.ID)
		}
		if c.CID != "" && item.CID != c.CID {
			return fmt.Errorf("%w: cid row %s no longer holds %s", domain.ErrValidation, c.ID, c.CID)
		}
		f.RemoveItem(c.ID)
		return nil
	})
	return err
}

// publicMessage turns an error into text that never leaks internals.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal error"
	}
}
