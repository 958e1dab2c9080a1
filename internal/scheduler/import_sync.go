package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/index"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

// ErrCycleInFlight is returned by Sync when the previous cycle has not
// finished yet.
var ErrCycleInFlight = errors.New("sync cycle already in flight")

// ImportStore is the persistence used by the syncer.
type ImportStore interface {
	Imported() ([]*domain.FilterList, error)
	Merge(ctx context.Context, id int, patch json.RawMessage) (*domain.FilterList, error)
}

// OriginClient fetches lists from the peers publishing them.
type OriginClient interface {
	FetchVersion(ctx context.Context, origin string) (domain.VersionDescriptor, error)
	FetchList(ctx context.Context, origin string) (json.RawMessage, error)
}

// Report summarizes one sync cycle.
type Report struct {
	Checked   int           `json:"checked"`
	Refreshed int           `json:"refreshed"`
	Current   int           `json:"current"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

type outcome int

const (
	outcomeCurrent outcome = iota
	outcomeRefreshed
	outcomeFailed
)

// ImportSyncer periodically refreshes imported filter lists from their
// origin.
type ImportSyncer struct {
	store         ImportStore
	origins       OriginClient
	index         *index.SyncIndex
	logger        logger.Logger
	interval      time.Duration
	concurrency   int
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	running       atomic.Bool
	now           func() time.Time
}

// NewImportSyncer creates a syncer. concurrency bounds the lists synced
// at once; zero means no bound.
func NewImportSyncer(
	store ImportStore,
	origins OriginClient,
	idx *index.SyncIndex,
	log logger.Logger,
	interval time.Duration,
	concurrency int,
	manualTrigger chan struct{},
) *ImportSyncer {
	return &ImportSyncer{
		store:         store,
		origins:       origins,
		index:         idx,
		logger:        log,
		interval:      interval,
		concurrency:   concurrency,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		now:           time.Now,
	}
}

// Start runs a first cycle in the background, then one per interval and
// one per manual trigger.
func (s *ImportSyncer) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid sync interval %v", s.interval)
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		s.runCycle(ctx, "startup")
		for {
			select {
			case <-ticker.C:
				s.runCycle(ctx, "schedule")
			case <-s.manualTrigger:
				s.logger.Info("manual sync triggered")
				s.runCycle(ctx, "manual")
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the periodic loop. A cycle in progress runs to completion.
func (s *ImportSyncer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Running reports whether a cycle is in progress.
func (s *ImportSyncer) Running() bool {
	return s.running.Load()
}

func (s *ImportSyncer) runCycle(ctx context.Context, reason string) {
	if _, err := s.Sync(ctx); err != nil {
		if errors.Is(err, ErrCycleInFlight) {
			s.logger.Warn("sync cycle skipped, previous one still running",
				logger.String("reason", reason))
			return
		}
		s.logger.Error("sync cycle failed",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// Sync checks every imported list against its origin and re-imports the
// stale ones. Lists are processed concurrently; a failing list never
// stops the others and is retried on the next cycle.
func (s *ImportSyncer) Sync(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrCycleInFlight
	}
	defer s.running.Store(false)

	start := s.now()
	lists, err := s.store.Imported()
	if err != nil {
		return Report{}, fmt.Errorf("failed to load imported lists: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	ids := make([]int, 0, len(lists))
	for _, f := range lists {
		f := f
		ids = append(ids, f.ID)
		g.Go(func() error {
			res := s.syncOne(ctx, f)

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			switch res {
			case outcomeRefreshed:
				report.Refreshed++
			case outcomeFailed:
				report.Failed++
			default:
				report.Current++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.index.Retain(ids)
	s.index.SetLastCycle(s.now())
	report.Duration = s.now().Sub(start)

	s.logger.Info("sync cycle done",
		logger.Int("checked", report.Checked),
		logger.Int("refreshed", report.Refreshed),
		logger.Int("current", report.Current),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration))
	return report, nil
}

func (s *ImportSyncer) syncOne(ctx context.Context, f *domain.FilterList) outcome {
	log := s.logger.With(logger.Int("filter_id", f.ID), logger.String("origin", f.Origin))

	remote, err := s.origins.FetchVersion(ctx, f.Origin)
	if err != nil {
		return s.fail(log, f, "version check failed", err)
	}

	if !domain.NeedsRefresh(f.LastUpdatedAt, remote.LastUpdatedAt) {
		s.index.MarkChecked(f.ID, f.Origin, s.now())
		log.Debug("imported list is current")
		return outcomeCurrent
	}

	if remote.LastUpdatedAt != nil {
		log = log.With(logger.Int64("remote_updated_at", *remote.LastUpdatedAt))
	}
	s.index.MarkRefreshing(f.ID, f.Origin, s.now())

	body, err := s.origins.FetchList(ctx, f.Origin)
	if err != nil {
		return s.fail(log, f, "list fetch failed", err)
	}

	patch, err := importPatch(body, f.Origin, remote.LastUpdatedAt)
	if err != nil {
		return s.fail(log, f, "malformed list payload", err)
	}

	updated, err := s.store.Merge(ctx, f.ID, patch)
	if err != nil {
		return s.fail(log, f, "list update failed", err)
	}

	s.index.MarkRefreshed(f.ID, s.now())
	log.Info("imported list refreshed", logger.Int("cids", len(updated.CIDs)))
	return outcomeRefreshed
}

func (s *ImportSyncer) fail(log logger.Logger, f *domain.FilterList, msg string, err error) outcome {
	s.index.MarkFailed(f.ID, f.Origin, s.now(), err)
	log.Warn(msg, logger.Error(err))
	return outcomeFailed
}

// importPatch prepares a fetched body for merging over the local copy.
// The local id, share id and origin always win. When the body carries no
// stamp the version descriptor's stamp is used so an unchanged origin is
// not re-imported next cycle.
func importPatch(body json.RawMessage, origin string, remoteStamp *int64) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	delete(fields, "id")
	delete(fields, "_cryptId")
	originRaw, err := json.Marshal(origin)
	if err != nil {
		return nil, err
	}
	fields["origin"] = originRaw

	if _, ok := fields["_lastUpdatedAt"]; !ok && remoteStamp != nil {
		stampRaw, err := json.Marshal(*remoteStamp)
		if err != nil {
			return nil, err
		}
		fields["_lastUpdatedAt"] = stampRaw
	}

	return json.Marshal(fields)
}
