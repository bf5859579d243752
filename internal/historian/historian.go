// internal/historian/historian.go is an asynchronous historian service that pops action records from a
// queue and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// records kept for retry while the sink is failing, in batches
	maxRetainedBatches = 100
	popRetryDelay      = time.Second
	shutdownFlushLimit = 5 * time.Second
)

// Source yields queued action records.
type Source interface {
	Pop(ctx context.Context, max int, timeout time.Duration) ([]cache.GameActionRecord, error)
}

// Sink persists action records and game status.
type Sink interface {
	InsertGameActions(ctx context.Context, recs []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error)
}

// Service captures game actions and marks games abandoned when a certain inactivity threshold is reached.
type Service struct {
	source Source
	sink   Sink
	cfg    config.Historian
	logger *logrus.Entry
	now    func() time.Time

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []cache.GameActionRecord
}

// NewService constructs a Service reading from source and writing to sink.
func NewService(source Source, sink Sink, cfg config.Historian, logger *logrus.Logger) *Service {
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger.WithField("component", "historian"),
		now:    time.Now,
		batch:  make([]cache.GameActionRecord, 0, cfg.BatchSize),
	}
}

// Run starts the read loop and the inactivity loop and blocks until ctx is cancelled.
// Whatever is still batched is flushed before it returns.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian service started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.inactivityLoop(gctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushLimit)
	defer cancel()
	if ferr := s.Flush(flushCtx); ferr != nil {
		s.logger.WithError(ferr).Error("final flush failed")
	}
	s.logger.Info("historian shutting down")
	return err
}

// readLoop pops records, batches them and flushes on size or on the flush interval.
func (s *Service) readLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Warn("periodic flush failed")
			}

		default:
			recs, err := s.source.Pop(ctx, s.cfg.BatchSize, s.cfg.PopTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.WithError(err).Error("pop failed")
				select {
				case <-ctx.Done():
				case <-time.After(popRetryDelay):
				}
				continue
			}
			if len(recs) > 0 {
				s.ingest(ctx, recs)
			}
		}
	}
}

// ingest records activity for each game and appends to the batch, flushing once it is full.
func (s *Service) ingest(ctx context.Context, recs []cache.GameActionRecord) {
	now := s.now()
	for _, rec := range recs {
		if rec.ActionType == game.ActionGameEnd {
			s.lastActivity.Delete(rec.GameID)
		} else {
			s.lastActivity.Store(rec.GameID, now)
		}
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, recs...)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.logger.WithError(err).Warn("batch flush failed")
		}
	}
}

// Flush writes the current batch to the sink in one call. On failure the records are put back
// in front of anything batched since, and the oldest are dropped past the retention limit.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	pending := s.batch
	s.batch = make([]cache.GameActionRecord, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertGameActions(ctx, pending); err != nil {
		s.requeue(pending)
		return err
	}
	s.logger.Debugf("flushed %d actions to DB", len(pending))
	return nil
}

func (s *Service) requeue(failed []cache.GameActionRecord) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	merged := append(failed, s.batch...)
	limit := s.cfg.BatchSize * maxRetainedBatches
	if over := len(merged) - limit; over > 0 {
		s.logger.Warnf("dropping %d oldest action records", over)
		merged = merged[over:]
	}
	s.batch = merged
}

// Pending returns the number of batched records not yet written.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// inactivityLoop periodically marks games that have gone quiet as abandoned.
func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.InactivityCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepInactive(ctx)
		}
	}
}

// sweepInactive flushes, then marks every game idle past the threshold as abandoned.
// It returns the number of games whose status changed.
func (s *Service) sweepInactive(ctx context.Context) int {
	if err := s.Flush(ctx); err != nil {
		s.logger.WithError(err).Warn("flush before inactivity sweep failed")
	}

	now := s.now()
	marked := 0
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.InactivityTimeout {
			return true
		}
		changed, err := s.sink.MarkGameAbandoned(ctx, gameID)
		if err != nil {
			s.logger.WithError(err).WithField("game_id", gameID).Error("failed to mark game abandoned")
			return true
		}
		s.lastActivity.Delete(gameID)
		if changed {
			marked++
			s.logger.WithField("game_id", gameID).Info("marked game abandoned due to inactivity")
		}
		return true
	})
	return marked
}

// Tracking reports whether gameID is being watched for inactivity.
func (s *Service) Tracking(gameID uuid.UUID) bool {
	_, ok := s.lastActivity.Load(gameID)
	return ok
}
