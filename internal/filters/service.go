package filters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

// Repository is the persistence the service needs. *store.FilterStore
// satisfies it.
type Repository interface {
	Insert(ctx context.Context, f *domain.FilterList) (int, error)
	Update(ctx context.Context, f *domain.FilterList) (int, error)
	Apply(ctx context.Context, id int, fn func(f *domain.FilterList) error) (*domain.FilterList, error)
	Get(id int) (*domain.FilterList, error)
	All(page store.Page) ([]*domain.FilterList, error)
	Delete(ctx context.Context, id int) error
	ByCryptID(cryptID string) (*domain.FilterList, error)
}

// Service implements the owner and peer operations on filter lists.
type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func New(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// List returns the owner's lists in insertion order.
func (s *Service) List(page store.Page) ([]*domain.FilterList, error) {
	return s.repo.All(page)
}

// Search returns lists whose name, description or one of whose cids
// contains term, case-insensitively. An empty term matches everything.
func (s *Service) Search(term string, page store.Page) ([]*domain.FilterList, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return s.repo.All(page)
	}

	lists, err := s.repo.All(store.Page{})
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.FilterList, 0)
	for _, f := range lists {
		if matches(f, term) {
			matched = append(matched, f)
		}
	}
	return paginate(matched, page), nil
}

func matches(f *domain.FilterList, term string) bool {
	if strings.Contains(strings.ToLower(f.Name), term) ||
		strings.Contains(strings.ToLower(f.Description), term) {
		return true
	}
	for _, item := range f.CIDs {
		if strings.Contains(strings.ToLower(item.CID), term) {
			return true
		}
	}
	return false
}

func paginate(lists []*domain.FilterList, page store.Page) []*domain.FilterList {
	start := min(max(page.Offset, 0), len(lists))
	end := len(lists)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return lists[start:end]
}

func (s *Service) Get(id int) (*domain.FilterList, error) {
	f, err := s.repo.Get(id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return f, nil
}

// Create stores a new list under a fresh share id; any share id sent by
// the client is ignored. Locally authored lists are stamped now; imported
// lists keep the stamp they were fetched with.
func (s *Service) Create(ctx context.Context, f *domain.FilterList) (int, error) {
	f.ID = 0
	f.CryptID = domain.NewCryptID()
	if !f.Imported() || f.LastUpdatedAt == nil {
		f.Touch(s.now())
	}

	id, err := s.repo.Insert(ctx, f)
	if err != nil {
		return 0, err
	}

	s.log.Info("filter list created",
		logger.Int("id", id),
		logger.String("visibility", f.Visibility.String()),
		logger.Bool("imported", f.Imported()),
		logger.Int("cids", len(f.CIDs)))
	return id, nil
}

// Update replaces an existing list. The share id and the origin belong
// to the stored list and cannot be changed through an update; an
// imported list also keeps its origin stamp.
func (s *Service) Update(ctx context.Context, f *domain.FilterList) (int, error) {
	if f.ID <= 0 {
		return 0, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	current, err := s.repo.Get(f.ID)
	if err != nil {
		return 0, notFound(err, f.ID)
	}

	f.CryptID = current.CryptID
	f.Origin = current.Origin
	if current.Imported() {
		f.LastUpdatedAt = current.LastUpdatedAt
	} else {
		f.Touch(s.now())
	}

	id, err := s.repo.Update(ctx, f)
	if err != nil {
		return 0, notFound(err, f.ID)
	}
	s.log.Info("filter list updated", logger.Int("id", id), logger.Int("cids", len(f.CIDs)))
	return id, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, id)
	}
	s.log.Info("filter list deleted", logger.Int("id", id))
	return nil
}

// edit applies fn to the list and stamps locally authored lists.
func (s *Service) edit(ctx context.Context, id int, fn func(f *domain.FilterList) error) (*domain.FilterList, error) {
	f, err := s.repo.Apply(ctx, id, func(f *domain.FilterList) error {
		if err := fn(f); err != nil {
			return err
		}
		if !f.Imported() {
			f.Touch(s.now())
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}
	return f, nil
}

// notFound maps a missing store entry to domain.ErrNotFound.
func notFound(err error, id int) error {
	if store.IsUnknownEntry(err) {
		return fmt.Errorf("%w: filter list %d", domain.ErrNotFound, id)
	}
	return err
}
