// internal/database/rounds.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/loteria/internal/models"
)

// Rounds persists finished round summaries.
type Rounds struct {
	pool *pgxpool.Pool
}

// NewRounds wraps an open pool.
func NewRounds(pool *pgxpool.Pool) *Rounds {
	return &Rounds{pool: pool}
}

// RecordRounds writes a batch of results in one transaction. A room finishes
// at most once, so re-delivered results are ignored.
func (r *Rounds) RecordRounds(ctx context.Context, results []models.RoundResult) error {
	if len(results) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO round_results
				(room_id, code, host_id, players, winner, winning_pattern,
				 false_claimed_by, disqualified, cards_called, end_reason, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (room_id) DO NOTHING
		`
		batch := &pgx.Batch{}
		for _, res := range results {
			batch.Queue(q,
				res.RoomID, res.Code, res.HostID, res.Players, res.Winner, res.WinningPattern,
				res.FalseClaimedBy, res.Disqualified, res.CardsCalled, res.EndReason, res.FinishedAt,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("tx insert round results: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (r *Rounds) Recent(ctx context.Context, limit int) ([]models.RoundResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT room_id, code, host_id, players, winner, winning_pattern,
		       false_claimed_by, disqualified, cards_called, end_reason, finished_at
		FROM round_results
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query round results: %w", err)
	}
	defer rows.Close()

	var out []models.RoundResult
	for rows.Next() {
		var res models.RoundResult
		if err := rows.Scan(
			&res.RoomID, &res.Code, &res.HostID, &res.Players, &res.Winner, &res.WinningPattern,
			&res.FalseClaimedBy, &res.Disqualified, &res.CardsCalled, &res.EndReason, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan round result: %w", err)
		}
		res.FinishedAt = res.FinishedAt.UTC()
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate round results: %w", err)
	}
	return out, nil
}
