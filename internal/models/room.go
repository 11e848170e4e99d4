// internal/models/room.go
package models

import (
	"fmt"
	"time"
)

// RoomStatus is the lifecycle phase of a room. Rooms only ever move
// waiting -> playing -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

const (
	MinPlayers = 2
	MaxPlayers = 8

	// DeckSize is the number of cards in a full loteria deck.
	DeckSize = 54

	MinDrawIntervalMs     = 1000
	MaxDrawIntervalMs     = 10000
	DefaultDrawIntervalMs = 3000
)

// End reasons for a finished room. They are derived from the room fields and never persisted.
const (
	EndReasonClaim         = "claim"
	EndReasonLastStanding  = "last_standing"
	EndReasonDeckExhausted = "deck_exhausted"
)

// Room is the single shared document replicated to every participant.
// Deck, DeckIndex and CurrentCard are only meaningful while the room is playing;
// Winner, WinningPattern and FalseClaimedBy only once a round has produced them.
type Room struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	HostID         string     `json:"hostId"`
	Status         RoomStatus `json:"status"`
	Players        []Player   `json:"players"`
	Deck           []Card     `json:"deck,omitempty"`
	DeckIndex      int        `json:"deckIndex"`
	CurrentCard    *Card      `json:"currentCard"`
	DrawIntervalMs int        `json:"drawIntervalMs"`
	Winner         *string    `json:"winner"`
	WinningPattern []int      `json:"winningPattern,omitempty"`
	FalseClaimedBy *string    `json:"falseClaimedBy"`
	Disqualified   []string   `json:"disqualified,omitempty"`
}

// NewRoom builds a waiting room whose only player is the host.
func NewRoom(id, code string, host Player) *Room {
	host.IsHost = true
	host.IsReady = true
	if host.JoinedAt.IsZero() {
		host.JoinedAt = time.Now().UTC()
	}
	return &Room{
		ID:             id,
		Code:           code,
		HostID:         host.ID,
		Status:         StatusWaiting,
		Players:        []Player{host},
		DeckIndex:      -1,
		DrawIntervalMs: DefaultDrawIntervalMs,
	}
}

// Clone returns a deep copy so transactions never mutate a value another goroutine holds.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.Players != nil {
		c.Players = append([]Player(nil), r.Players...)
	}
	if r.Deck != nil {
		c.Deck = append([]Card(nil), r.Deck...)
	}
	if r.CurrentCard != nil {
		card := *r.CurrentCard
		c.CurrentCard = &card
	}
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	if r.WinningPattern != nil {
		c.WinningPattern = append([]int(nil), r.WinningPattern...)
	}
	if r.FalseClaimedBy != nil {
		f := *r.FalseClaimedBy
		c.FalseClaimedBy = &f
	}
	if r.Disqualified != nil {
		c.Disqualified = append([]string(nil), r.Disqualified...)
	}
	return &c
}

// FindPlayer returns the index of the player with the given id, or -1.
func (r *Room) FindPlayer(playerID string) int {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// IsDisqualified reports whether the player lost claim eligibility this round.
func (r *Room) IsDisqualified(playerID string) bool {
	for _, id := range r.Disqualified {
		if id == playerID {
			return true
		}
	}
	return false
}

// Eligible returns the players still allowed to claim this round, in join order.
func (r *Room) Eligible() []Player {
	var out []Player
	for _, p := range r.Players {
		if !r.IsDisqualified(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// CalledCards is the prefix of the deck announced so far, inclusive of the current card.
func (r *Room) CalledCards() []Card {
	if len(r.Deck) == 0 || r.DeckIndex < 0 {
		return nil
	}
	end := r.DeckIndex + 1
	if end > len(r.Deck) {
		end = len(r.Deck)
	}
	return r.Deck[:end]
}

// AllReady reports whether every seated player has marked themselves ready.
func (r *Room) AllReady() bool {
	for _, p := range r.Players {
		if !p.IsReady {
			return false
		}
	}
	return len(r.Players) > 0
}

// EndReason describes how a finished room ended; it is empty for rooms still in progress.
func (r *Room) EndReason() string {
	if r.Status != StatusFinished {
		return ""
	}
	switch {
	case r.WinningPattern != nil:
		return EndReasonClaim
	case r.Winner != nil:
		return EndReasonLastStanding
	default:
		return EndReasonDeckExhausted
	}
}

// Validate checks the room invariants that must hold after every committed transition.
func (r *Room) Validate() error {
	if n := len(r.Players); n < 1 || n > MaxPlayers {
		return fmt.Errorf("room %s: %d players out of range", r.ID, n)
	}
	hosts := 0
	seen := make(map[string]struct{}, len(r.Players))
	for _, p := range r.Players {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("room %s: duplicate player %s", r.ID, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.IsHost {
			hosts++
			if p.ID != r.HostID {
				return fmt.Errorf("room %s: host flag on %s, host is %s", r.ID, p.ID, r.HostID)
			}
		}
	}
	if hosts != 1 || !r.Players[0].IsHost {
		return fmt.Errorf("room %s: host must be seated first exactly once", r.ID)
	}
	if r.DrawIntervalMs < MinDrawIntervalMs || r.DrawIntervalMs > MaxDrawIntervalMs {
		return fmt.Errorf("room %s: draw interval %dms out of range", r.ID, r.DrawIntervalMs)
	}

	switch r.Status {
	case StatusWaiting:
		if len(r.Deck) != 0 || r.CurrentCard != nil {
			return fmt.Errorf("room %s: waiting room holds a deck", r.ID)
		}
	case StatusPlaying:
		if len(r.Deck) != DeckSize {
			return fmt.Errorf("room %s: deck has %d cards", r.ID, len(r.Deck))
		}
		ids := make(map[int]struct{}, len(r.Deck))
		for _, c := range r.Deck {
			if _, dup := ids[c.ID]; dup {
				return fmt.Errorf("room %s: card %d dealt twice", r.ID, c.ID)
			}
			ids[c.ID] = struct{}{}
		}
		if r.DeckIndex < 0 || r.DeckIndex >= len(r.Deck) {
			return fmt.Errorf("room %s: deck index %d out of range", r.ID, r.DeckIndex)
		}
		if r.CurrentCard == nil || *r.CurrentCard != r.Deck[r.DeckIndex] {
			return fmt.Errorf("room %s: current card does not match deck index", r.ID)
		}
	case StatusFinished:
		if r.CurrentCard != nil {
			return fmt.Errorf("room %s: finished room still shows a card", r.ID)
		}
		if r.WinningPattern != nil && r.Winner == nil {
			return fmt.Errorf("room %s: winning pattern without a winner", r.ID)
		}
	default:
		return fmt.Errorf("room %s: unknown status %q", r.ID, r.Status)
	}
	return nil
}
