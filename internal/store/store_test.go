// internal/store/store_test.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends runs each contract test against every RoomStore implementation.
func backends(t *testing.T) map[string]func(t *testing.T) RoomStore {
	return map[string]func(t *testing.T) RoomStore{
		"memory": func(t *testing.T) RoomStore {
			s := NewMemoryStore()
			t.Cleanup(func() { s.Close() })
			return s
		},
		"redis": func(t *testing.T) RoomStore {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			logger := logrus.New()
			logger.SetLevel(logrus.WarnLevel)
			s := NewRedisStore(rdb, "test", logger)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func newTestRoom(id, code string) *models.Room {
	return models.NewRoom(id, code, models.Player{ID: "host-" + id, Name: "Host", JoinedAt: time.Unix(1700000000, 0).UTC()})
}

// updateUntilCommitted retries ErrConflict the way the coordinator does.
func updateUntilCommitted(ctx context.Context, s RoomStore, id string, fn UpdateFunc) (*models.Room, error) {
	for {
		room, err := s.Update(ctx, id, fn)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return room, err
	}
}

func TestCreateReadLookup(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			room := newTestRoom("r1", "ABCDEF")
			require.NoError(t, s.Create(ctx, room))

			got, err := s.Read(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, room.Code, got.Code)
			assert.Equal(t, room.Players[0].ID, got.Players[0].ID)

			id, err := s.LookupCode(ctx, "ABCDEF")
			require.NoError(t, err)
			assert.Equal(t, "r1", id)

			err = s.Create(ctx, newTestRoom("r2", "ABCDEF"))
			assert.ErrorIs(t, err, ErrCodeTaken)
			err = s.Create(ctx, newTestRoom("r1", "GHJKLM"))
			assert.ErrorIs(t, err, ErrExists)

			// A failed create must not leave its code reserved.
			_, err = s.LookupCode(ctx, "GHJKLM")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.Read(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.LookupCode(ctx, "ZZZZZZ")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisCreateWritesCodeAndRoomTogether(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	s := NewRedisStore(rdb, "test", logger)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	// A room document left behind without its code keeps the code free.
	require.NoError(t, mr.Set("test:room:r1", mustJSON(t, newTestRoom("r1", "ABCDEF"))))
	assert.ErrorIs(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")), ErrExists)
	assert.False(t, mr.Exists("test:code:ABCDEF"))

	require.NoError(t, s.Create(ctx, newTestRoom("r2", "GHJKLM")))
	id, err := mr.Get("test:code:GHJKLM")
	require.NoError(t, err)
	assert.Equal(t, "r2", id)
	assert.True(t, mr.Exists("test:room:r2"))

	assert.ErrorIs(t, s.Create(ctx, newTestRoom("r3", "GHJKLM")), ErrCodeTaken)
	assert.False(t, mr.Exists("test:room:r3"))
}

func TestUpdateSemantics(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))

			next, err := s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
				r.DrawIntervalMs = 5000
				return r, nil
			})
			require.NoError(t, err)
			assert.Equal(t, 5000, next.DrawIntervalMs)

			boom := errors.New("boom")
			_, err = s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
				r.DrawIntervalMs = 9000
				return nil, boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := s.Read(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, 5000, got.DrawIntervalMs, "aborted update must not be written")

			deleted, err := s.Update(ctx, "r1", func(*models.Room) (*models.Room, error) { return nil, nil })
			require.NoError(t, err)
			assert.Nil(t, deleted)

			_, err = s.Read(ctx, "r1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.LookupCode(ctx, "ABCDEF")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) { return r, nil })
			assert.ErrorIs(t, err, ErrNotFound)

			// The code is free again.
			require.NoError(t, s.Create(ctx, newTestRoom("r2", "ABCDEF")))
			require.NoError(t, s.Delete(ctx, "r2"))
			assert.ErrorIs(t, s.Delete(ctx, "r2"), ErrNotFound)
		})
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))

			const writers = 20
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := updateUntilCommitted(ctx, s, "r1", func(r *models.Room) (*models.Room, error) {
						r.Players[0].Score++
						return r, nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Read(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, writers, got.Players[0].Score)
		})
	}
}

func TestSubscribeDeliversCommitsInOrder(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))

			var mu sync.Mutex
			var seen []int
			deleted := make(chan struct{})
			unsubscribe, err := s.Subscribe(ctx, "r1", func(r *models.Room) {
				if r == nil {
					close(deleted)
					return
				}
				mu.Lock()
				seen = append(seen, r.DrawIntervalMs)
				mu.Unlock()
			})
			require.NoError(t, err)
			defer unsubscribe()

			want := []int{models.DefaultDrawIntervalMs}
			for i := 1; i <= 10; i++ {
				interval := 1000 + i*100
				want = append(want, interval)
				_, err := s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
					r.DrawIntervalMs = interval
					return r, nil
				})
				require.NoError(t, err)
			}
			require.NoError(t, s.Delete(ctx, "r1"))

			select {
			case <-deleted:
			case <-time.After(3 * time.Second):
				t.Fatal("deletion was never delivered")
			}
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, want, seen)
		})
	}
}

func TestSubscribeMissingRoom(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			_, err := s.Subscribe(context.Background(), "nope", func(*models.Room) {})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))

	calls := make(chan int, 10)
	unsubscribe, err := s.Subscribe(ctx, "r1", func(r *models.Room) { calls <- r.DrawIntervalMs })
	require.NoError(t, err)
	select {
	case v := <-calls:
		assert.Equal(t, models.DefaultDrawIntervalMs, v, "current value arrives first")
	case <-time.After(time.Second):
		t.Fatal("initial value was never delivered")
	}
	unsubscribe()

	_, err = s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
		r.DrawIntervalMs = 4000
		return r, nil
	})
	require.NoError(t, err)

	select {
	case v := <-calls:
		t.Fatalf("unexpected delivery %d after unsubscribe", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreClose(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))
	require.NoError(t, s.Close())
	_, err := s.Read(ctx, "r1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Create(ctx, newTestRoom("r2", "GHJKLM")), ErrClosed)
}

func TestRedisSubscribeSkipsCommitsBeforeSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	s := NewRedisStore(rdb, "test", logger)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newTestRoom("r1", "ABCDEF")))

	for _, interval := range []int{4000, 5000} {
		_, err := s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
			r.DrawIntervalMs = interval
			return r, nil
		})
		require.NoError(t, err)
	}
	seq, err := rdb.Get(ctx, "test:room:r1:seq").Int64()
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	// A message for an already covered commit must not reach the subscriber.
	calls := make(chan int, 10)
	unsubscribe, err := s.Subscribe(ctx, "r1", func(r *models.Room) { calls <- r.DrawIntervalMs })
	require.NoError(t, err)
	defer unsubscribe()
	stale := newTestRoom("r1", "ABCDEF")
	stale.DrawIntervalMs = 4000
	require.NoError(t, rdb.Publish(ctx, "test:room:r1:feed", mustJSON(t, feedMessage{Seq: 1, Room: stale})).Err())
	_, err = s.Update(ctx, "r1", func(r *models.Room) (*models.Room, error) {
		r.DrawIntervalMs = 6000
		return r, nil
	})
	require.NoError(t, err)

	var got []int
	for len(got) < 2 {
		select {
		case v := <-calls:
			got = append(got, v)
		case <-time.After(3 * time.Second):
			t.Fatalf("only received %v", got)
		}
	}
	assert.Equal(t, []int{5000, 6000}, got)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
