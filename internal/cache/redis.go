// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client and verifies the server answers within five seconds.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoundQueue is a Redis list of finished round summaries waiting to be
// persisted by the historian.
type RoundQueue struct {
	rdb  redis.UniversalClient
	name string
}

// NewRoundQueue returns a queue stored under the given list key.
func NewRoundQueue(rdb redis.UniversalClient, name string) *RoundQueue {
	return &RoundQueue{rdb: rdb, name: name}
}

// Push serializes the result to JSON and appends it to the queue.
func (q *RoundQueue) Push(ctx context.Context, res models.RoundResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundResult: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop waits up to timeout for the next result. ok is false when the wait timed out.
func (q *RoundQueue) Pop(ctx context.Context, timeout time.Duration) (res models.RoundResult, ok bool, err error) {
	vals, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// vals[0] is the list name and vals[1] the payload.
	if len(vals) < 2 {
		return res, false, nil
	}
	if err := json.Unmarshal([]byte(vals[1]), &res); err != nil {
		return res, false, fmt.Errorf("invalid round record: %w", err)
	}
	return res, true, nil
}

// Len reports how many results are waiting.
func (q *RoundQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
