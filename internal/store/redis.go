// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultTxRetries bounds how many times an optimistic transaction is retried
// after losing a WATCH race before ErrConflict is returned.
const DefaultTxRetries = 32

// RedisStore persists rooms as JSON documents in Redis. Updates run as
// WATCH/MULTI optimistic transactions on the room key, and every commit
// publishes the new document on the room's channel inside the same MULTI,
// so subscribers observe commits in order.
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	txRetries int
	logger    logrus.FieldLogger
}

// NewRedisStore wraps an already connected client. Keys are namespaced by prefix.
func NewRedisStore(rdb *redis.Client, prefix string, logger logrus.FieldLogger) *RedisStore {
	if prefix == "" {
		prefix = "loteria"
	}
	return &RedisStore{
		rdb:       rdb,
		prefix:    prefix,
		txRetries: DefaultTxRetries,
		logger:    logger,
	}
}

func (s *RedisStore) roomKey(roomID string) string { return s.prefix + ":room:" + roomID }
func (s *RedisStore) codeKey(code string) string   { return s.prefix + ":code:" + code }
func (s *RedisStore) feedKey(roomID string) string { return s.prefix + ":room:" + roomID + ":feed" }
func (s *RedisStore) seqKey(roomID string) string  { return s.prefix + ":room:" + roomID + ":seq" }

// feedMessage is published on every commit. Seq counts commits of the room so
// a subscriber can skip messages already covered by its initial snapshot.
type feedMessage struct {
	Seq  int64        `json:"seq"`
	Room *models.Room `json:"room"`
}

// createScript reserves the code and writes the room in one step, so a crash
// can never leave a code pointing at no room.
// KEYS: code, room. ARGV: room id, room document.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 1
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 0
`)

func (s *RedisStore) Create(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}

	res, err := createScript.Run(ctx, s.rdb, []string{s.codeKey(room.Code), s.roomKey(room.ID)}, room.ID, data).Int()
	if err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	switch res {
	case 1:
		return fmt.Errorf("code %s: %w", room.Code, ErrCodeTaken)
	case 2:
		return fmt.Errorf("room %s: %w", room.ID, ErrExists)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, roomID string) (*models.Room, error) {
	data, err := s.rdb.Get(ctx, s.roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read room %s: %w", roomID, err)
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *RedisStore) LookupCode(ctx context.Context, code string) (string, error) {
	id, err := s.rdb.Get(ctx, s.codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("code %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("lookup code %s: %w", code, err)
	}
	return id, nil
}

func (s *RedisStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error) {
	key := s.roomKey(roomID)
	var committed *models.Room

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var current models.Room
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("decode room %s: %w", roomID, err)
		}
		code := current.Code

		// The sequence key only changes in transactions that also write the
		// watched room key, so watching the room is enough.
		seq, err := tx.Get(ctx, s.seqKey(roomID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		seq++

		next, err := fn(&current)
		if err != nil {
			return err
		}

		var doc, msg []byte
		if next != nil {
			if doc, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode room %s: %w", roomID, err)
			}
		}
		if msg, err = json.Marshal(feedMessage{Seq: seq, Room: next}); err != nil {
			return fmt.Errorf("encode feed message %s: %w", roomID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key, s.codeKey(code), s.seqKey(roomID))
			} else {
				pipe.Set(ctx, key, doc, 0)
				pipe.Set(ctx, s.seqKey(roomID), seq, 0)
			}
			pipe.Publish(ctx, s.feedKey(roomID), msg)
			return nil
		})
		if err == nil {
			committed = next
		}
		return err
	}

	for attempt := 0; attempt < s.txRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{"room": roomID, "attempt": attempt + 1}).Debug("RedisStore: transaction lost a race, retrying")
	}
	return nil, fmt.Errorf("room %s: %w", roomID, ErrConflict)
}

func (s *RedisStore) Subscribe(ctx context.Context, roomID string, onChange func(*models.Room)) (func(), error) {
	ps := s.rdb.Subscribe(ctx, s.feedKey(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}

	// Subscribe before taking the snapshot so no commit can slip between the two.
	var (
		roomCmd *redis.StringCmd
		seqCmd  *redis.StringCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		roomCmd = pipe.Get(ctx, s.roomKey(roomID))
		seqCmd = pipe.Get(ctx, s.seqKey(roomID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		ps.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	data, err := roomCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		ps.Close()
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	if err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	var snapshot models.Room
	if err := json.Unmarshal(data, &snapshot); err != nil {
		ps.Close()
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	snapshotSeq, err := seqCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		ps.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}

	sub := newSubscriber(onChange)
	sub.push(&snapshot)
	go func() {
		for m := range ps.Channel() {
			var msg feedMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				s.logger.WithError(err).WithField("room", roomID).Warn("RedisStore: dropping undecodable feed message")
				continue
			}
			if msg.Seq <= snapshotSeq {
				continue
			}
			sub.push(msg.Room)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				s.logger.WithError(err).WithField("room", roomID).Debug("RedisStore: closing feed")
			}
			sub.stop()
		})
	}
	stopOnCancel := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stopOnCancel()
		unsubscribe()
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	_, err := s.Update(ctx, roomID, func(*models.Room) (*models.Room, error) { return nil, nil })
	return err
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
