// internal/game/claim_test.go
package game

import (
	"encoding/json"
	"testing"

	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPlayingRoom builds a playing room whose deck opens with the given ids
// and whose deck index sits on the last of them.
func setupPlayingRoom(t *testing.T, numPlayers int, opening ...int) *models.Room {
	t.Helper()
	room := models.NewRoom("room", "ABCDEF", models.Player{ID: "p0", Name: "Player0"})
	for i := 1; i < numPlayers; i++ {
		room.Players = append(room.Players, models.Player{
			ID:      "p" + string(rune('0'+i)),
			Name:    "Player" + string(rune('0'+i)),
			IsReady: true,
		})
	}

	first := make(map[int]bool, len(opening))
	deck := make([]models.Card, 0, models.DeckSize)
	for _, id := range opening {
		c, ok := CardByID(id)
		require.True(t, ok)
		deck = append(deck, c)
		first[id] = true
	}
	for _, c := range Catalog() {
		if !first[c.ID] {
			deck = append(deck, c)
		}
	}

	room.Status = models.StatusPlaying
	room.Deck = deck
	room.DeckIndex = len(opening) - 1
	current := deck[room.DeckIndex]
	room.CurrentCard = &current
	require.NoError(t, room.Validate())
	return room
}

func TestAdjudicateLegalClaim(t *testing.T) {
	room := setupPlayingRoom(t, 3, 3, 7, 12, 19)

	out, err := Adjudicate(room, "p1", NewClaim([]int{3, 7, 12, 19}, nil))
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.True(t, out.EndedRound)
	assert.Equal(t, ReasonAccepted, out.Reason)

	assert.Equal(t, models.StatusFinished, room.Status)
	require.NotNil(t, room.Winner)
	assert.Equal(t, "Player1", *room.Winner)
	assert.Equal(t, []int{3, 7, 12, 19}, room.WinningPattern)
	assert.Nil(t, room.FalseClaimedBy)
	assert.Nil(t, room.CurrentCard)
	assert.Equal(t, 1, room.Players[1].Score)
	assert.Equal(t, 1, room.Players[1].GamesWon)
	assert.NoError(t, room.Validate())
}

func TestAdjudicateUncalledCardDisqualifies(t *testing.T) {
	room := setupPlayingRoom(t, 3, 3, 7, 12, 19)

	out, err := Adjudicate(room, "p1", NewClaim([]int{3, 7, 12, 20}, nil))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, ReasonUncalledCard, out.Reason)
	assert.False(t, out.EndedRound)

	assert.Equal(t, models.StatusPlaying, room.Status)
	assert.Equal(t, []string{"p1"}, room.Disqualified)
	require.NotNil(t, room.FalseClaimedBy)
	assert.Equal(t, "Player1", *room.FalseClaimedBy)
	assert.Nil(t, room.Winner)
	assert.Equal(t, 0, room.Players[1].Score)

	// A disqualified player cannot claim again, even legally.
	out, err = Adjudicate(room, "p1", NewClaim([]int{3, 7, 12, 19}, nil))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.False(t, out.Changed)
	assert.Equal(t, ReasonDisqualified, out.Reason)
	assert.Equal(t, models.StatusPlaying, room.Status)
}

func TestAdjudicateLastPlayerStanding(t *testing.T) {
	room := setupPlayingRoom(t, 2, 3, 7, 12, 19)

	out, err := Adjudicate(room, "p0", NewClaim([]int{3, 7, 12, 20}, nil))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.True(t, out.EndedRound)

	assert.Equal(t, models.StatusFinished, room.Status)
	require.NotNil(t, room.Winner)
	assert.Equal(t, "Player1", *room.Winner)
	assert.Nil(t, room.WinningPattern)
	assert.Nil(t, room.CurrentCard)
	assert.Equal(t, 0, room.Players[1].Score, "last player standing is not scored")
	assert.Equal(t, models.EndReasonLastStanding, room.EndReason())
	assert.NoError(t, room.Validate())
}

func TestAdjudicateRejectionsLeaveRoomUntouched(t *testing.T) {
	tests := []struct {
		name   string
		player string
		prep   func(r *models.Room)
		reason ClaimReason
	}{
		{"waiting room", "p1", func(r *models.Room) { r.Status = models.StatusWaiting }, ReasonNotPlaying},
		{"finished room", "p1", func(r *models.Room) { r.Status = models.StatusFinished }, ReasonNotPlaying},
		{"stranger", "nobody", func(r *models.Room) {}, ReasonNotSeated},
		{"disqualified", "p2", func(r *models.Room) { r.Disqualified = []string{"p2"} }, ReasonDisqualified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := setupPlayingRoom(t, 3, 3, 7, 12, 19)
			tt.prep(room)
			before := room.Clone()

			out, err := Adjudicate(room, tt.player, NewClaim([]int{3, 7, 12, 19}, nil))
			require.NoError(t, err)
			assert.False(t, out.Accepted)
			assert.False(t, out.Changed)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Equal(t, before, room)
		})
	}
}

func TestAdjudicateMalformedClaims(t *testing.T) {
	tests := []struct {
		name  string
		claim Claim
	}{
		{"empty", Claim{}},
		{"three ids", NewClaim([]int{3, 7, 12}, nil)},
		{"duplicates collapse", NewClaim([]int{3, 3, 7, 7}, nil)},
		{"junk values", Claim{CardIDs: []any{"x", 1.5, true, nil, 3}}},
		{"bad board", NewClaim([]int{3, 7, 12, 19}, []int{1, 2, 3})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := setupPlayingRoom(t, 3, 3, 7, 12, 19)
			before := room.Clone()
			_, err := Adjudicate(room, "p1", tt.claim)
			assert.ErrorIs(t, err, ErrInvalidClaim)
			assert.Equal(t, before, room)
		})
	}
}

func TestAdjudicateWithBoard(t *testing.T) {
	// 3, 7, 12, 19 sit in the first column of this board.
	board := []int{3, 1, 2, 4, 7, 5, 6, 8, 12, 9, 10, 11, 19, 13, 14, 15}

	room := setupPlayingRoom(t, 3, 3, 7, 12, 19, 1)
	out, err := Adjudicate(room, "p2", NewClaim([]int{19, 12, 7, 3}, board))
	require.NoError(t, err)
	assert.True(t, out.Accepted)

	// All five called, but 3,7,12,1 is not a line of the board.
	room = setupPlayingRoom(t, 3, 3, 7, 12, 19, 1)
	out, err = Adjudicate(room, "p2", NewClaim([]int{3, 7, 12, 1}, board))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, ReasonNotALine, out.Reason)
	assert.True(t, room.IsDisqualified("p2"))
}

func TestAdjudicateAcceptsLongerClaimsOfCalledCards(t *testing.T) {
	room := setupPlayingRoom(t, 2, 3, 7, 12, 19, 25)
	out, err := Adjudicate(room, "p1", NewClaim([]int{3, 7, 12, 19, 25}, nil))
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, []int{3, 7, 12, 19, 25}, room.WinningPattern)
}

func TestNormalizeCardIDs(t *testing.T) {
	var decoded []any
	require.NoError(t, json.Unmarshal([]byte(`[3, "7", 7, 12.0, 12.5, "x", null, true, " 19 ", 3]`), &decoded))
	assert.Equal(t, []int{3, 7, 12, 19}, NormalizeCardIDs(decoded))
	assert.Empty(t, NormalizeCardIDs(nil))
	assert.Equal(t, []int{5}, NormalizeCardIDs([]any{json.Number("5"), json.Number("5.0")}))
}
