// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/penaltyhub/internal/adapters/mq/queue"
	workerpool "github.com/okian/penaltyhub/internal/adapters/mq/worker"
	"github.com/okian/penaltyhub/internal/adapters/repository"
	"github.com/okian/penaltyhub/internal/domain/dedupe"
	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/logger"
	"github.com/okian/penaltyhub/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service runs match sessions, the rule catalogue, the ledger and bets on top
// of a Store. Participant updates are applied asynchronously by a worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	catalogue         []model.Rule
	ownerID           string
	defaultAllocation model.Allocation
	now               func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRuleCatalogue seeds the global rules when the store has none.
func WithRuleCatalogue(rules []model.Rule) Option {
	return func(s *Service) {
		s.catalogue = append([]model.Rule(nil), rules...)
	}
}

// WithOwnerID sets the owner stamped on new rules, matches, bets and
// transactions.
func WithOwnerID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.ownerID = id
		}
	}
}

// WithDefaultAllocation sets the fine allocation for matches created
// without one.
func WithDefaultAllocation(a model.Allocation) Option {
	return func(s *Service) {
		if a == model.AllocationSplit || a == model.AllocationFund {
			s.defaultAllocation = a
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10000,
		dedupeSize:        50000,
		ownerID:           "penaltyhub",
		defaultAllocation: model.AllocationSplit,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting penaltyhub service...")

	if s.store == nil {
		s.store = repository.NewMemStore(repository.WithClock(s.now))
		s.logger.Info(ctx, "using in-memory store")
	}
	if err := s.seedRules(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)

	// workers outlive the start context so Stop can drain the queue
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, updateApplier{s})
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "penaltyhub service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

func (s *Service) seedRules(ctx context.Context) error {
	existing, err := s.store.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(s.catalogue) == 0 {
		metrics.UpdateRulesTotal(len(existing))
		return nil
	}
	for _, r := range s.catalogue {
		if r.OwnerID == "" {
			r.OwnerID = s.ownerID
		}
		if err := s.store.CreateRule(ctx, r); err != nil {
			return err
		}
	}
	metrics.UpdateRulesTotal(len(s.catalogue))
	s.logger.Info(ctx, "seeded rule catalogue", logger.Int("rules", len(s.catalogue)))
	return nil
}

// Stop drains queued updates and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping penaltyhub service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "penaltyhub service stopped")
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		if ms, err := s.store.ListMatches(ctx); err == nil {
			stats["totalMatches"] = len(ms)
		}
		if rs, err := s.store.ListRules(ctx); err == nil {
			stats["totalRules"] = len(rs)
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateDedupeSize(s.deduper.Size())
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
