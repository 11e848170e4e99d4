// internal/room/errors.go
package room

import (
	"context"
	"errors"

	"github.com/jason-s-yu/loteria/internal/game"
	"github.com/jason-s-yu/loteria/internal/store"
)

// Expected, recoverable outcomes of room intents. Callers match them with errors.Is.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomNotJoinable  = errors.New("room is not accepting players")
	ErrRoomFull         = errors.New("room is full")
	ErrNotReady         = errors.New("not every player is ready")
	ErrNotHost          = errors.New("only the host can do that")
	ErrPlayerNotFound   = errors.New("player not found in room")
	ErrInvalidClaim     = game.ErrInvalidClaim
	ErrRoundNotActive   = errors.New("no round in progress")
	ErrInvalidName      = errors.New("player name is required")
	ErrStoreUnavailable = errors.New("room store unavailable")

	// errNoChange aborts a transaction that would not change the room.
	errNoChange = errors.New("no change")
	// errInvariant marks a transition that would leave the room inconsistent.
	errInvariant = errors.New("room invariant violated")
)

// Kind is the stable, transport-neutral name of an error.
type Kind string

const (
	KindRoomNotFound     Kind = "RoomNotFound"
	KindRoomNotJoinable  Kind = "RoomNotJoinable"
	KindRoomFull         Kind = "RoomFull"
	KindNotReady         Kind = "NotReady"
	KindNotHost          Kind = "NotHost"
	KindPlayerNotFound   Kind = "NotFound"
	KindInvalidClaim     Kind = "InvalidClaim"
	KindRoundNotActive   Kind = "RoundNotActive"
	KindInvalidName      Kind = "InvalidName"
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindCanceled         Kind = "Canceled"
	KindInternal         Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrRoomNotFound, KindRoomNotFound},
	{ErrRoomNotJoinable, KindRoomNotJoinable},
	{ErrRoomFull, KindRoomFull},
	{ErrNotReady, KindNotReady},
	{ErrNotHost, KindNotHost},
	{ErrPlayerNotFound, KindPlayerNotFound},
	{ErrInvalidClaim, KindInvalidClaim},
	{ErrRoundNotActive, KindRoundNotActive},
	{ErrInvalidName, KindInvalidName},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// KindOf classifies err. Unknown errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

var messages = map[Kind]string{
	KindRoomNotFound:     "That game could not be found.",
	KindRoomNotJoinable:  "That game has already started.",
	KindRoomFull:         "Room is full (max 8 players).",
	KindNotReady:         "Need at least 2 players and everyone ready.",
	KindNotHost:          "Only the host can do that.",
	KindPlayerNotFound:   "You are not in this room.",
	KindInvalidClaim:     "A claim needs at least 4 cards.",
	KindRoundNotActive:   "There is no round in progress.",
	KindInvalidName:      "Please enter a name.",
	KindStoreUnavailable: "The game server is busy, try again.",
	KindCanceled:         "Request cancelled.",
	KindInternal:         "Something went wrong.",
}

// Message is the short human-readable text for a kind.
func Message(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindInternal]
}

// permanent reports whether retrying err could not change the outcome.
func permanent(err error) bool {
	if err == nil {
		return true
	}
	for _, e := range []error{errNoChange, errInvariant, store.ErrNotFound, store.ErrCodeTaken, store.ErrExists, store.ErrClosed} {
		if errors.Is(err, e) {
			return true
		}
	}
	k := KindOf(err)
	return k != KindInternal && k != KindStoreUnavailable
}

// ErrorFor maps a kind back to its sentinel error, so callers on the far side
// of a transport can still match with errors.Is. Unknown kinds yield nil.
func ErrorFor(k Kind) error {
	for _, e := range kinds {
		if e.kind == k {
			return e.err
		}
	}
	return nil
}
