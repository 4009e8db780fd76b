// cmd/historian/main.go is an asynchronous worker that drains the game action
// queue from Redis and persists the action log to PostgreSQL. It also sweeps
// for games that stopped producing actions and marks them abandoned.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bunkergame/bunker/internal/cache"
	"github.com/bunkergame/bunker/internal/database"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

type historian struct {
	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration // how long without actions before a game counts as abandoned

	lastActivity sync.Map // game join code -> time.Time of its latest action

	batchMu sync.Mutex
	batch   []cache.GameActionRecord

	ctx      context.Context
	cancelFn context.CancelFunc
}

func newHistorian() *historian {
	ctx, cancel := context.WithCancel(context.Background())
	return &historian{
		batchSize:  envInt("HISTORIAN_BATCH_SIZE", 20),
		flushDelay: time.Duration(envInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		inactivity: time.Duration(envInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		ctx:        ctx,
		cancelFn:   cancel,
	}
}

func (h *historian) run() {
	if err := database.ConnectDB(); err != nil {
		log.Fatalf("historian: database: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("historian: %v", err)
	}

	go h.consumeLoop()
	go h.flushLoop()
	go h.inactivityLoop()

	log.Println("bunker-historian started.")
	<-h.ctx.Done()
}

// consumeLoop drains the action queue. BLPop blocks for up to 3 seconds, so
// cancellation is observed promptly without a busy loop.
func (h *historian) consumeLoop() {
	for h.ctx.Err() == nil {
		res, err := cache.Rdb.BLPop(h.ctx, 3*time.Second, cache.QueueName()).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && h.ctx.Err() == nil {
				log.Printf("[ERROR] BLPop: %v", err)
			}
			continue
		}

		// res[0] is the queue name and res[1] the payload.
		var record cache.GameActionRecord
		if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
			log.Printf("invalid action record: %v", err)
			continue
		}

		h.lastActivity.Store(record.GameID, time.Now())

		h.batchMu.Lock()
		h.batch = append(h.batch, record)
		full := len(h.batch) >= h.batchSize
		h.batchMu.Unlock()
		if full {
			h.flush()
		}
	}
}

// flushLoop writes out partial batches so a quiet game's tail still lands.
func (h *historian) flushLoop() {
	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.flush()
		}
	}
}

// flush writes the current batch to the database in one transaction.
func (h *historian) flush() {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	pending := h.batch
	h.batch = nil
	h.batchMu.Unlock()

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range pending {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d for game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush: %v", err)
		return
	}
	log.Printf("Flushed %d actions to DB.", len(pending))
}

// inactivityLoop marks games abandoned once they stop producing actions for
// the configured window.
func (h *historian) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			h.lastActivity.Range(func(key, val interface{}) bool {
				gameID := key.(string)
				if last, ok := val.(time.Time); ok && now.Sub(last) > h.inactivity {
					h.markGameAbandoned(gameID)
					h.lastActivity.Delete(gameID)
				}
				return true
			})
		}
	}
}

// markGameAbandoned is conditional on in_progress so it never clobbers a game
// the queue already finalized.
func (h *historian) markGameAbandoned(gameID string) {
	ctx := context.Background()
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := database.DB.Exec(ctx, q, gameID); err != nil {
		log.Printf("failed to mark game %v abandoned: %v", gameID, err)
		return
	}
	log.Printf("Marked game %v as 'abandoned' due to inactivity.", gameID)
}

// insertGameActionTx upserts the game row, appends one action, and finalizes
// the game when the terminal action arrives.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = 'in_progress'
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_user_id, action_type, action_payload
		) VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.GameID, rec.ActionIndex, rec.ActorUserID, rec.ActionType, jsonPayload,
	); err != nil {
		return err
	}

	if rec.ActionType == "game_over" {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	h := newHistorian()
	go h.run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	h.cancelFn()
	h.flush()
	log.Println("Historian shutdown complete.")
}

func envInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
