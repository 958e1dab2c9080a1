// Package settings serves the owner's config record and mirrors the node
// toggles it contains into the node config file.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/nodeconfig"
)

// Repository stores the opaque config record. *store.ConfigStore
// satisfies it.
type Repository interface {
	Get() (map[string]json.RawMessage, error)
	Merge(ctx context.Context, patch map[string]json.RawMessage) (map[string]json.RawMessage, error)
}

type Service struct {
	repo     Repository
	nodePath string
	log      logger.Logger

	// mu serializes exports to the node config file.
	mu sync.Mutex
}

func New(repo Repository, nodePath string, log logger.Logger) *Service {
	return &Service{repo: repo, nodePath: nodePath, log: log}
}

func (s *Service) Get() (map[string]json.RawMessage, error) {
	return s.repo.Get()
}

// Update merges patch into the config record, then exports the node
// toggles. Malformed toggles are rejected before anything is stored.
func (s *Service) Update(ctx context.Context, patch map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	if err := nodeconfig.Default().Apply(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	merged, err := s.repo.Merge(ctx, patch)
	if err != nil {
		return nil, err
	}
	if err := s.Export(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Export writes the toggles found in record to the node config file.
func (s *Service) Export(record map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := nodeconfig.Load(s.nodePath)
	if err != nil {
		return err
	}
	if err := cfg.Apply(record); err != nil {
		return fmt.Errorf("export node config: %w", err)
	}
	if err := nodeconfig.Save(s.nodePath, cfg); err != nil {
		return err
	}

	s.log.Info("node config exported",
		logger.String("path", s.nodePath),
		logger.Bool("bitscreen", cfg.BitScreen),
		logger.Bool("share", cfg.Share))
	return nil
}
