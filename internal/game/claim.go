// internal/game/claim.go
package game

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/jason-s-yu/loteria/internal/models"
)

// MinClaimSize is the smallest claim that could ever be a winning line.
const MinClaimSize = 4

// ErrInvalidClaim is returned for structurally malformed claims. It never disqualifies.
var ErrInvalidClaim = errors.New("invalid claim")

// ClaimReason explains an adjudication outcome.
type ClaimReason string

const (
	ReasonAccepted     ClaimReason = "accepted"
	ReasonNotPlaying   ClaimReason = "round_not_active"
	ReasonNotSeated    ClaimReason = "not_seated"
	ReasonDisqualified ClaimReason = "disqualified"
	ReasonUncalledCard ClaimReason = "uncalled_card"
	ReasonNotALine     ClaimReason = "not_a_line"
)

// Claim is a player's assertion of a completed line. CardIDs holds whatever
// the client sent; it is coerced by NormalizeCardIDs before use. Board is
// optional: when present the claim must also be a line of that board.
type Claim struct {
	CardIDs []any `json:"cardIds"`
	Board   []int `json:"board,omitempty"`
}

// NewClaim builds a claim from already typed card ids.
func NewClaim(ids []int, board []int) Claim {
	raw := make([]any, len(ids))
	for i, id := range ids {
		raw[i] = id
	}
	return Claim{CardIDs: raw, Board: board}
}

// ClaimOutcome is the verdict on a claim plus what it did to the room.
type ClaimOutcome struct {
	Accepted   bool
	Reason     ClaimReason
	CardIDs    []int
	EndedRound bool
	// Changed is false when the claim was rejected without touching the room.
	Changed bool
}

// NormalizeCardIDs coerces raw ids to integers, drops anything that is not an
// integer and removes duplicates, keeping first-seen order.
func NormalizeCardIDs(raw []any) []int {
	seen := make(map[int]bool, len(raw))
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		id, ok := toInt(v)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return toInt(f)
		}
		return int(i), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return toInt(f)
	}
	return 0, false
}

// Adjudicate decides a claim against the room's call history and applies its
// side effects to room. A legal claim ends the round with the claimant as
// winner. An illegal claim disqualifies the claimant, and ends the round if
// exactly one eligible player remains. The claim's shape is only checked when
// a board accompanies it.
func Adjudicate(room *models.Room, playerID string, claim Claim) (ClaimOutcome, error) {
	if room.Status != models.StatusPlaying {
		return ClaimOutcome{Reason: ReasonNotPlaying}, nil
	}
	idx := room.FindPlayer(playerID)
	if idx < 0 {
		return ClaimOutcome{Reason: ReasonNotSeated}, nil
	}
	if room.IsDisqualified(playerID) {
		return ClaimOutcome{Reason: ReasonDisqualified}, nil
	}

	ids := NormalizeCardIDs(claim.CardIDs)
	if len(ids) < MinClaimSize {
		return ClaimOutcome{CardIDs: ids}, ErrInvalidClaim
	}
	if claim.Board != nil && !ValidBoard(claim.Board) {
		return ClaimOutcome{CardIDs: ids}, ErrInvalidClaim
	}

	called := make(map[int]bool, room.DeckIndex+1)
	for _, c := range room.CalledCards() {
		called[c.ID] = true
	}

	reason := ReasonAccepted
	for _, id := range ids {
		if !called[id] {
			reason = ReasonUncalledCard
			break
		}
	}
	if reason == ReasonAccepted && claim.Board != nil && !IsLine(claim.Board, ids) {
		reason = ReasonNotALine
	}

	player := &room.Players[idx]
	if reason != ReasonAccepted {
		room.Disqualified = append(room.Disqualified, playerID)
		name := player.Name
		room.FalseClaimedBy = &name

		out := ClaimOutcome{Reason: reason, CardIDs: ids, Changed: true}
		if remaining := room.Eligible(); len(remaining) == 1 {
			winner := remaining[0].Name
			room.Status = models.StatusFinished
			room.CurrentCard = nil
			room.Winner = &winner
			room.WinningPattern = nil
			out.EndedRound = true
		}
		return out, nil
	}

	player.Score++
	player.GamesWon++
	winner := player.Name
	room.Status = models.StatusFinished
	room.CurrentCard = nil
	room.Winner = &winner
	room.WinningPattern = append([]int(nil), ids...)
	room.FalseClaimedBy = nil
	return ClaimOutcome{Accepted: true, Reason: ReasonAccepted, CardIDs: ids, EndedRound: true, Changed: true}, nil
}
