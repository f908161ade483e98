// internal/historian/historian.go pops action records from a Redis queue and persists them to Postgres.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store persists action batches and marks stale games.
type Store interface {
	InsertActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tunes batching and inactivity detection.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // duration until a game is marked "abandoned"
}

// Service captures game actions in batches and marks games abandoned when
// no action arrives within the inactivity threshold.
type Service struct {
	rdb    *redis.Client
	store  Store
	logger *logrus.Logger

	queue      string
	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu   sync.Mutex
	batch     []cache.GameActionRecord
	lastFlush time.Time
}

// New constructs a Service. Zero options fall back to the historian defaults.
func New(rdb *redis.Client, store Store, logger *logrus.Logger, opts Options) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	return &Service{
		rdb:        rdb,
		store:      store,
		logger:     logger,
		queue:      opts.Queue,
		batchSize:  opts.BatchSize,
		flushDelay: opts.FlushDelay,
		inactivity: opts.Inactivity,
		batch:      make([]cache.GameActionRecord, 0, opts.BatchSize),
		lastFlush:  time.Now(),
	}
}

// Run reads the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	go s.inactivityLoop(ctx)

	s.logger.WithField("queue", s.queue).Info("eights-historian service started.")
	defer func() {
		// ctx is already done; the final flush gets its own deadline.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.flush(flushCtx)
		s.logger.Info("eights-historian shutting down.")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := s.pollOnce(ctx, s.flushDelay); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.WithError(err).Error("BLPop")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if time.Since(s.lastFlushed()) >= s.flushDelay {
			s.flush(ctx)
		}
	}
}

// pollOnce waits up to timeout for one record. It reports whether a record was queued.
func (s *Service) pollOnce(ctx context.Context, timeout time.Duration) (bool, error) {
	res, err := s.rdb.BLPop(ctx, timeout, s.queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return false, nil
	}

	record, err := cache.DecodeGameAction(res[1])
	if err != nil {
		s.logger.WithError(err).Warn("invalid action record")
		return false, nil
	}
	s.track(record, time.Now())
	s.appendToBatch(ctx, record)
	return true, nil
}

// track updates the activity clock for the record's game.
func (s *Service) track(record cache.GameActionRecord, now time.Time) {
	if record.GameID == uuid.Nil {
		return
	}
	switch record.ActionType {
	case "game_win", "operator_end", "restart", "game_abort":
		s.lastActivity.Delete(record.GameID)
	default:
		s.lastActivity.Store(record.GameID, now)
	}
}

// appendToBatch adds a record and flushes once the batch is full.
func (s *Service) appendToBatch(ctx context.Context, record cache.GameActionRecord) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	s.batch = append(s.batch, record)
	if len(s.batch) >= s.batchSize {
		s.flushLocked(ctx)
	}
}

// flush writes the pending batch in one transaction.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.flushLocked(ctx)
}

// flushLocked assumes batchMu is held.
func (s *Service) flushLocked(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	batchCopy := make([]cache.GameActionRecord, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]

	if err := s.store.InsertActions(ctx, batchCopy); err != nil {
		s.logger.WithError(err).WithField("count", len(batchCopy)).Error("flush to DB failed")
		return
	}
	s.logger.Debugf("Flushed %d actions to DB.", len(batchCopy))
}

func (s *Service) lastFlushed() time.Time {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return s.lastFlush
}

// inactivityLoop checks for stale games once a minute, or more often for short thresholds.
func (s *Service) inactivityLoop(ctx context.Context) {
	interval := time.Minute
	if s.inactivity < interval {
		interval = s.inactivity
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.checkInactivity(ctx, now)
		}
	}
}

// checkInactivity marks every game idle past the threshold as abandoned.
func (s *Service) checkInactivity(ctx context.Context, now time.Time) int {
	marked := 0
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.inactivity {
			return true
		}
		if err := s.store.MarkAbandoned(ctx, gameID); err != nil {
			s.logger.WithError(err).WithField("game_id", gameID).Error("failed to mark game abandoned")
			return true
		}
		s.lastActivity.Delete(gameID)
		marked++
		s.logger.WithField("game_id", gameID).Info("Marked game as 'abandoned' due to inactivity.")
		return true
	})
	return marked
}
