package filters

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

// MoveCID moves one cid row from a list to another.
//
// The row is added to the destination first, then removed from the
// source. The two writes are not atomic: when the removal fails the row
// exists in both lists and ErrPartialMove is returned.
func (s *Service) MoveCID(ctx context.Context, fromID, toID int, itemID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: source and destination are the same list", domain.ErrValidation)
	}

	source, err := s.Get(fromID)
	if err != nil {
		return err
	}
	item, ok := source.FindItem(itemID)
	if !ok {
		return fmt.Errorf("%w: cid row %s in list %d", domain.ErrNotFound, itemID, fromID)
	}

	if _, err := s.edit(ctx, toID, func(f *domain.FilterList) error {
		if !f.HasCID(item.CID) {
			f.CIDs = append(f.CIDs, item)
		}
		return nil
	}); err != nil {
		return err
	}

	if _, err := s.edit(ctx, fromID, func(f *domain.FilterList) error {
		if _, ok := f.RemoveItem(itemID); !ok {
			return fmt.Errorf("%w: cid row %s in list %d", domain.ErrNotFound, itemID, fromID)
		}
		return nil
	}); err != nil {
		s.log.Error("cid move left a copy in the source list",
			logger.Int("from", fromID),
			logger.Int("to", toID),
			logger.String("item_id", itemID),
			logger.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPartialMove, err)
	}

	s.log.Info("cid moved",
		logger.Int("from", fromID),
		logger.Int("to", toID),
		logger.String("cid", item.CID))
	return nil
}
