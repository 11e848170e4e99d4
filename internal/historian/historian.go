// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/sirupsen/logrus"
)

// Queue carries finished rounds from the coordinator to the historian.
type Queue interface {
	Push(ctx context.Context, res models.RoundResult) error
	// Pop waits up to timeout; ok is false if nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (res models.RoundResult, ok bool, err error)
}

// Sink persists batches of results.
type Sink interface {
	RecordRounds(ctx context.Context, results []models.RoundResult) error
}

// Options tune batching.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each blocking wait on the queue so shutdown is noticed.
	PopTimeout time.Duration
}

// Service records finished rounds off the transaction path: Record enqueues a
// summary, and Run drains the queue into the sink in batches.
type Service struct {
	queue  Queue
	sink   Sink
	logger logrus.FieldLogger
	opts   Options
	now    func() time.Time

	pending sync.WaitGroup

	batchMu sync.Mutex
	batch   []models.RoundResult
}

// New builds a historian. Zero options take defaults.
func New(queue Queue, sink Sink, logger logrus.FieldLogger, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	return &Service{
		queue:  queue,
		sink:   sink,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		batch:  make([]models.RoundResult, 0, opts.BatchSize),
	}
}

// Record enqueues a summary of a finished room without blocking the caller.
func (s *Service) Record(room *models.Room) {
	if room == nil || room.Status != models.StatusFinished {
		return
	}
	res := models.NewRoundResult(room, s.now())
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.queue.Push(ctx, res); err != nil {
			s.logger.WithError(err).WithField("room", res.RoomID).Error("failed to enqueue round result")
		}
	}()
}

// Run drains the queue until ctx is cancelled, flushing a batch when it is
// full or every FlushDelay. Whatever is buffered at shutdown is flushed.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian started")
	defer s.logger.Info("historian stopped")

	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			s.pending.Wait()
			s.drain()
			s.flush(context.Background())
			return nil
		case <-ticker.C:
			s.flush(ctx)
		default:
			res, ok, err := s.queue.Pop(ctx, s.opts.PopTimeout)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					continue
				}
				// Log once per outage and back off until the queue answers again.
				if !failing {
					s.logger.WithError(err).Warn("historian pop failed, backing off")
					failing = true
				}
				s.wait(ctx, s.opts.PopTimeout)
				continue
			}
			if failing {
				s.logger.Info("historian queue recovered")
				failing = false
			}
			if ok {
				s.append(ctx, res)
			}
		}
	}
}

// wait sleeps for d or until ctx is cancelled.
func (s *Service) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// drain moves anything still queued into the batch without waiting.
func (s *Service) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		res, ok, err := s.queue.Pop(ctx, 10*time.Millisecond)
		if err != nil || !ok {
			return
		}
		s.batchMu.Lock()
		s.batch = append(s.batch, res)
		s.batchMu.Unlock()
	}
}

func (s *Service) append(ctx context.Context, res models.RoundResult) {
	s.batchMu.Lock()
	s.batch = append(s.batch, res)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()
	if full {
		s.flush(ctx)
	}
}

// flush writes the current batch. A failed batch is kept for the next flush.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}

	if err := s.sink.RecordRounds(ctx, s.batch); err != nil {
		s.logger.WithError(err).WithField("rounds", len(s.batch)).Error("failed to persist round results")
		return
	}
	s.logger.WithField("rounds", len(s.batch)).Debug("persisted round results")
	s.batch = make([]models.RoundResult, 0, s.opts.BatchSize)
}
