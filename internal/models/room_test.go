// internal/models/room_test.go
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		deck[i] = Card{ID: i + 1, Name: "card", ArtworkRef: "art"}
	}
	return deck
}

func playingRoom() *Room {
	joined := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRoom("room-1", "ABCDEF", Player{ID: "host", Name: "Ana", JoinedAt: joined})
	r.Players = append(r.Players,
		Player{ID: "p2", Name: "Beto", IsReady: true, Score: 2, GamesWon: 2, JoinedAt: joined.Add(time.Second)},
		Player{ID: "p3", Name: "Cris", IsReady: true, JoinedAt: joined.Add(2 * time.Second)},
	)
	r.Status = StatusPlaying
	r.Deck = testDeck()
	r.DeckIndex = 4
	card := r.Deck[4]
	r.CurrentCard = &card
	name := "Cris"
	r.FalseClaimedBy = &name
	r.Disqualified = []string{"p3"}
	return r
}

func TestRoomJSONRoundTrip(t *testing.T) {
	rooms := map[string]*Room{
		"waiting": NewRoom("room-0", "ZZZZZZ", Player{ID: "h", Name: "Host", JoinedAt: time.Unix(1700000000, 0).UTC()}),
		"playing": playingRoom(),
	}
	finished := playingRoom()
	finished.Status = StatusFinished
	finished.CurrentCard = nil
	winner := "Beto"
	finished.Winner = &winner
	finished.WinningPattern = []int{3, 1, 4, 2}
	rooms["finished"] = finished

	for name, room := range rooms {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(room)
			require.NoError(t, err)

			var decoded Room
			require.NoError(t, json.Unmarshal(data, &decoded))
			if diff := cmp.Diff(room, &decoded); diff != "" {
				t.Fatalf("room changed across round trip (-want +got):\n%s", diff)
			}
			require.NoError(t, decoded.Validate())
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := playingRoom()
	c := r.Clone()
	c.Players[0].Score = 99
	c.Deck[0].Name = "changed"
	c.CurrentCard.ID = 0
	c.Disqualified[0] = "someone"

	assert.Equal(t, 0, r.Players[0].Score)
	assert.Equal(t, "card", r.Deck[0].Name)
	assert.Equal(t, 5, r.CurrentCard.ID)
	assert.Equal(t, "p3", r.Disqualified[0])
}

func TestValidateCatchesBrokenInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Room)
	}{
		{"too many players", func(r *Room) {
			for i := 0; i < MaxPlayers; i++ {
				r.Players = append(r.Players, Player{ID: string(rune('a' + i))})
			}
		}},
		{"second host", func(r *Room) { r.Players[1].IsHost = true }},
		{"host not first", func(r *Room) { r.Players[0], r.Players[1] = r.Players[1], r.Players[0] }},
		{"short deck", func(r *Room) { r.Deck = r.Deck[:10] }},
		{"stale current card", func(r *Room) { r.CurrentCard = &r.Deck[0] }},
		{"index past deck", func(r *Room) { r.DeckIndex = DeckSize }},
		{"waiting with deck", func(r *Room) { r.Status = StatusWaiting }},
		{"finished with card", func(r *Room) { r.Status = StatusFinished }},
		{"interval too fast", func(r *Room) { r.DrawIntervalMs = 10 }},
		{"duplicate player", func(r *Room) { r.Players[2].ID = "p2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := playingRoom()
			require.NoError(t, r.Validate())
			tt.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestCalledCardsAndEndReason(t *testing.T) {
	r := playingRoom()
	called := r.CalledCards()
	require.Len(t, called, 5)
	assert.Equal(t, 1, called[0].ID)
	assert.Equal(t, 5, called[4].ID)
	assert.Empty(t, r.EndReason())

	r.Status = StatusFinished
	r.CurrentCard = nil
	assert.Equal(t, EndReasonDeckExhausted, r.EndReason())

	w := "Beto"
	r.Winner = &w
	assert.Equal(t, EndReasonLastStanding, r.EndReason())

	r.WinningPattern = []int{1, 2, 3, 4}
	assert.Equal(t, EndReasonClaim, r.EndReason())

	assert.Len(t, r.Eligible(), 2)
	assert.True(t, r.IsDisqualified("p3"))
	assert.True(t, r.AllReady())
}

func TestNewRoundResult(t *testing.T) {
	r := NewRoom("r1", "ABCDEF", Player{ID: "h", Name: "Host"})
	r.Players = append(r.Players, Player{ID: "p1", Name: "Bob", IsReady: true})
	r.Status = StatusFinished
	r.DeckIndex = 6
	for i := 0; i < DeckSize; i++ {
		r.Deck = append(r.Deck, Card{ID: i + 1})
	}
	winner := "Bob"
	r.Winner = &winner
	r.WinningPattern = []int{1, 2, 3, 4}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CST", -6*3600))
	res := NewRoundResult(r, at)
	assert.Equal(t, []string{"Host", "Bob"}, res.Players)
	assert.Equal(t, 7, res.CardsCalled)
	assert.Equal(t, EndReasonClaim, res.EndReason)
	assert.Equal(t, time.UTC, res.FinishedAt.Location())

	res.WinningPattern[0] = 99
	*res.Winner = "Mallory"
	assert.Equal(t, 1, r.WinningPattern[0], "result does not alias the room")
	assert.Equal(t, "Bob", *r.Winner)
}
