// internal/models/player.go
package models

import "time"

// MaxNameLength is the longest display name a player may carry, in runes.
const MaxNameLength = 20

// Player is a single seat in a room. Players are owned by the Room they belong to.
type Player struct {
	ID       string    `json:"id"` // server issued, stable for the seat
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	IsReady  bool      `json:"isReady"`
	Score    int       `json:"score"`
	GamesWon int       `json:"gamesWon"`
	JoinedAt time.Time `json:"joinedAt"`
}
