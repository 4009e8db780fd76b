// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bunkergame/bunker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordGameResults persists the final outcome of a game: the game row is marked
// completed and a game_results row is written per seated player, flagging the
// players who held a bunker slot when the game ended.
func RecordGameResults(ctx context.Context, gameID string, players []*models.Player, survivors []uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, status, end_time)
			VALUES ($1, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, gameID); e != nil {
			return e
		}

		for _, pl := range players {
			survived := false
			for _, s := range survivors {
				if s == pl.ID {
					survived = true
					break
				}
			}
			q := `
				INSERT INTO game_results (game_id, player_id, survived, was_eliminated)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET survived=$3, was_eliminated=$4
			`
			if _, e2 := tx.Exec(ctx, q, gameID, pl.ID, survived, pl.IsEliminated); e2 != nil {
				return e2
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert game or results: %w", err)
	}
	return nil
}

// StoreFinalGameStateInDB updates the games.final_game_state column with JSON containing
// each player's revealed characteristics plus the surviving player IDs.
func StoreFinalGameStateInDB(ctx context.Context, gameID string, finalSnapshot map[string]interface{}) error {
	jsonData, err := json.Marshal(finalSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}
	query := `
		UPDATE games
		SET final_game_state = $1
		WHERE id = $2
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, query, jsonData, gameID)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing final game state in DB: %w", err)
	}
	return nil
}

// StoreInitialGameStateInDB sets the games.initial_game_state column with any JSON data
// we want for reconstructing the start of the game (scenario, dealt characteristics, seat order).
func StoreInitialGameStateInDB(ctx context.Context, gameID string, initSnapshot map[string]interface{}) error {
	js, err := json.Marshal(initSnapshot)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO games (id, status, initial_game_state, start_time)
		VALUES ($1, 'in_progress', $2, NOW())
		ON CONFLICT (id)
		DO UPDATE SET initial_game_state = EXCLUDED.initial_game_state, status='in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, gameID, js)
		return e
	})
}
