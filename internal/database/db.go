// internal/database/db.go
package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/eights/internal/cache"
)

//go:embed schema.sql
var schema string

// Game status values stored in games.status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusEnded      = "ended" // stopped by the operator, a restart or an internal reset
	StatusAbandoned  = "abandoned"
)

// DB wraps the pgx pool used by the historian.
type DB struct{ *pgxpool.Pool }

// Connect opens a pool and pings it within five seconds.
func Connect(ctx context.Context, url string) (*DB, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &DB{pool}, nil
}

// Migrate creates the history tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// InsertActions persists a batch in one transaction. Replayed records are ignored.
func (db *DB) InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return beginTxFunc(ctx, db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
}

// MarkAbandoned flags a game that went quiet while still in progress.
func (db *DB) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE games
		SET status = $2, end_time = NOW()
		WHERE id = $1 AND status = $3
	`, gameID, StatusAbandoned, StatusInProgress)
	return err
}

// insertGameActionTx upserts the game row, inserts the action and closes the game
// when the action ends it.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	if rec.GameID == uuid.Nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET start_time = LEAST(games.start_time, EXCLUDED.start_time)
	`, rec.GameID, StatusInProgress, time.UnixMilli(rec.Timestamp))
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor interface{}
	if rec.ActorID != uuid.Nil {
		actor = rec.ActorID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO game_actions (
			game_id, action_index, actor_id, actor_name, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`, rec.GameID, rec.ActionIndex, actor, rec.ActorName, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	if err != nil {
		return err
	}

	status, winner := finalStatus(rec)
	if status == "" {
		return nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE games
		SET status = $2, winner_name = NULLIF($3, ''), end_time = $4
		WHERE id = $1 AND status = $5
	`, rec.GameID, status, winner, time.UnixMilli(rec.Timestamp), StatusInProgress)
	return err
}

// finalStatus maps terminal action types to the game status they produce.
func finalStatus(rec cache.GameActionRecord) (status, winner string) {
	switch rec.ActionType {
	case "game_win":
		return StatusCompleted, rec.ActorName
	case "operator_end", "restart", "game_abort":
		return StatusEnded, ""
	default:
		return "", ""
	}
}

// beginTxFunc runs f inside a transaction, committing on success and rolling back otherwise.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
