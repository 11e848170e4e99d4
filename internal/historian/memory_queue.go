// internal/historian/memory_queue.go
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
)

// MemoryQueue is an in-process Queue for single-instance deployments.
type MemoryQueue struct {
	ch chan models.RoundResult
}

// NewMemoryQueue returns a queue holding up to size results.
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan models.RoundResult, size)}
}

func (q *MemoryQueue) Push(ctx context.Context, res models.RoundResult) error {
	select {
	case q.ch <- res:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (models.RoundResult, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-q.ch:
		return res, true, nil
	case <-timer.C:
		return models.RoundResult{}, false, nil
	case <-ctx.Done():
		return models.RoundResult{}, false, ctx.Err()
	}
}
