// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/jason-s-yu/loteria/internal/models"
)

var (
	// ErrNotFound is returned when a room id or code does not resolve.
	ErrNotFound = errors.New("room not found in store")
	// ErrCodeTaken is returned by Create when another live room holds the code.
	ErrCodeTaken = errors.New("room code already in use")
	// ErrExists is returned by Create when the room id is already stored.
	ErrExists = errors.New("room already exists")
	// ErrConflict is returned when an optimistic transaction kept losing races.
	ErrConflict = errors.New("room update conflict")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// UpdateFunc computes the next room from the current one. The room passed in
// is a private copy. Returning an error aborts the update without writing;
// returning a nil room deletes the document.
type UpdateFunc func(room *models.Room) (*models.Room, error)

// RoomStore is a keyed document store with per-key serializable updates and
// an ordered change feed.
type RoomStore interface {
	// Create stores a new room and reserves its code.
	Create(ctx context.Context, room *models.Room) error
	// Read returns a copy of the current room.
	Read(ctx context.Context, roomID string) (*models.Room, error)
	// LookupCode resolves a room code to its room id.
	LookupCode(ctx context.Context, code string) (string, error)
	// Update applies fn as if no other update of the same room interleaved,
	// and returns the committed value (nil when fn deleted the room).
	Update(ctx context.Context, roomID string, fn UpdateFunc) (*models.Room, error)
	// Subscribe delivers the room's current value, then every later committed
	// value in commit order, and nil once the room is deleted. The returned
	// func unsubscribes.
	Subscribe(ctx context.Context, roomID string, onChange func(*models.Room)) (func(), error)
	// Delete removes the room and releases its code.
	Delete(ctx context.Context, roomID string) error
	// Close releases the store's resources.
	Close() error
}
