package filters

import (
	"context"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

// PartialFailureMessage is reported when some items of a batch failed.
const PartialFailureMessage = "some items could not be processed"

// ItemResult is the outcome for one list of a bulk operation.
type ItemResult struct {
	ID      int    `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkResult aggregates a bulk operation. Items never stop each other.
type BulkResult struct {
	Results []ItemResult `json:"results"`
}

// Failed counts the items that did not succeed.
func (r BulkResult) Failed() int {
	n := 0
	for _, item := range r.Results {
		if !item.Success {
			n++
		}
	}
	return n
}

// Message is empty on full success and PartialFailureMessage otherwise.
func (r BulkResult) Message() string {
	if r.Failed() > 0 {
		return PartialFailureMessage
	}
	return ""
}

// BulkSetEnabled enables or disables every listed filter list.
func (s *Service) BulkSetEnabled(ctx context.Context, ids []int, enabled bool) BulkResult {
	return s.bulk("bulk enable", ids, func(id int) error {
		_, err := s.edit(ctx, id, func(f *domain.FilterList) error {
			f.Enabled = enabled
			return nil
		})
		return err
	})
}

// BulkDelete deletes every listed filter list.
func (s *Service) BulkDelete(ctx context.Context, ids []int) BulkResult {
	return s.bulk("bulk delete", ids, func(id int) error {
		return s.Delete(ctx, id)
	})
}

func (s *Service) bulk(op string, ids []int, fn func(id int) error) BulkResult {
	res := BulkResult{Results: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		if err := fn(id); err != nil {
			s.log.Warn(op+" item failed", logger.Int("id", id), logger.Error(err))
			res.Results = append(res.Results, ItemResult{ID: id, Error: publicMessage(err)})
			continue
		}
		res.Results = append(res.Results, ItemResult{ID: id, Success: true})
	}
	if n := res.Failed(); n > 0 {
		s.log.Warn(op+" partially failed", logger.Int("failed", n), logger.Int("total", len(ids)))
	}
	return res
}
