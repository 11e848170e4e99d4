// internal/models/round.go
package models

import "time"

// RoundResult summarizes a finished round for the history log.
type RoundResult struct {
	RoomID         string    `json:"roomId"`
	Code           string    `json:"code"`
	HostID         string    `json:"hostId"`
	Players        []string  `json:"players"`
	Winner         *string   `json:"winner"`
	WinningPattern []int     `json:"winningPattern,omitempty"`
	FalseClaimedBy *string   `json:"falseClaimedBy"`
	Disqualified   []string  `json:"disqualified,omitempty"`
	CardsCalled    int       `json:"cardsCalled"`
	EndReason      string    `json:"endReason"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// NewRoundResult captures a finished room. Player names are recorded in seat order.
func NewRoundResult(r *Room, finishedAt time.Time) RoundResult {
	c := r.Clone()
	names := make([]string, len(c.Players))
	for i, p := range c.Players {
		names[i] = p.Name
	}
	return RoundResult{
		RoomID:         c.ID,
		Code:           c.Code,
		HostID:         c.HostID,
		Players:        names,
		Winner:         c.Winner,
		WinningPattern: c.WinningPattern,
		FalseClaimedBy: c.FalseClaimedBy,
		Disqualified:   c.Disqualified,
		CardsCalled:    len(c.CalledCards()),
		EndReason:      c.EndReason(),
		FinishedAt:     finishedAt.UTC(),
	}
}
