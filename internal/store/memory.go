// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jason-s-yu/loteria/internal/models"
)

// MemoryStore keeps rooms in process memory. Each room has its own lock, so
// updates are serialized per room while different rooms proceed concurrently.
type MemoryStore struct {
	mu     sync.Mutex // protects rooms, codes and closed
	rooms  map[string]*roomEntry
	codes  map[string]string // code -> room id
	closed bool
}

type roomEntry struct {
	mu      sync.Mutex
	room    *models.Room // nil once deleted
	subs    map[int]*subscriber
	nextSub int
}

// NewMemoryStore returns an empty in-memory RoomStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*roomEntry),
		codes: make(map[string]string),
	}
}

func (s *MemoryStore) entry(roomID string) (*roomEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return e, nil
}

func (s *MemoryStore) Create(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("room %s: %w", room.ID, ErrExists)
	}
	if _, taken := s.codes[room.Code]; taken {
		return fmt.Errorf("code %s: %w", room.Code, ErrCodeTaken)
	}
	s.rooms[room.ID] = &roomEntry{room: room.Clone(), subs: make(map[int]*subscriber)}
	s.codes[room.Code] = room.ID
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, roomID string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return e.room.Clone(), nil
}

func (s *MemoryStore) LookupCode(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	id, ok := s.codes[code]
	if !ok {
		return "", fmt.Errorf("code %s: %w", code, ErrNotFound)
	}
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}

	next, err := fn(e.room.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		s.removeLocked(roomID, e)
		return nil, nil
	}

	e.room = next.Clone()
	for _, sub := range e.subs {
		sub.push(e.room.Clone())
	}
	return next, nil
}

// removeLocked drops a room whose entry lock the caller holds.
func (s *MemoryStore) removeLocked(roomID string, e *roomEntry) {
	code := e.room.Code
	e.room = nil
	for id, sub := range e.subs {
		sub.push(nil)
		delete(e.subs, id)
	}

	s.mu.Lock()
	delete(s.rooms, roomID)
	if s.codes[code] == roomID {
		delete(s.codes, code)
	}
	s.mu.Unlock()
}

func (s *MemoryStore) Subscribe(ctx context.Context, roomID string, onChange func(*models.Room)) (func(), error) {
	e, err := s.entry(roomID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.room == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	sub := newSubscriber(onChange)
	sub.push(e.room.Clone())
	id := e.nextSub
	e.nextSub++
	e.subs[id] = sub
	e.mu.Unlock()

	unsubscribe := func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
		sub.stop()
	}
	stopOnCancel := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stopOnCancel()
		unsubscribe()
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, roomID string) error {
	_, err := s.Update(ctx, roomID, func(*models.Room) (*models.Room, error) { return nil, nil })
	return err
}

// Close drops every room. Subscribers see their rooms deleted.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := make(map[string]*roomEntry, len(s.rooms))
	for id, e := range s.rooms {
		entries[id] = e
	}
	s.mu.Unlock()

	for id, e := range entries {
		e.mu.Lock()
		if e.room != nil {
			s.removeLocked(id, e)
		}
		e.mu.Unlock()
	}
	return nil
}
