// internal/database/rounds.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RoundResult is one player's final standing for one round.
type RoundResult struct {
	PlayerID   string
	PlayerName string
	Rank       int
	Points     int
	TotalScore int
}

// RecordRoundResults persists the final ranks and point awards for one round.
// Called asynchronously at round end; failures are logged by the caller and
// never affect the room.
func RecordRoundResults(ctx context.Context, roomCode string, roundNumber int, results []RoundResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO round_results (room_code, round_number, player_id, player_name, rank, points, total_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (room_code, round_number, player_id)
			DO UPDATE SET rank=$5, points=$6, total_score=$7
		`
		for _, res := range results {
			if _, err := tx.Exec(ctx, q, roomCode, roundNumber, res.PlayerID, res.PlayerName, res.Rank, res.Points, res.TotalScore); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert round results: %w", err)
	}
	return nil
}
