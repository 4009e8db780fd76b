// internal/handlers/game_server.go
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/bunkergame/bunker/internal/database"
	"github.com/bunkergame/bunker/internal/game"
	"github.com/google/uuid"
)

// GameServer is a high-level struct that holds a reference to a GameStore
// and wires persistence into the games it creates.
type GameServer struct {
	GameStore *game.GameStore
	Logf      func(f string, v ...interface{})

	// PersistResults controls whether finished games are written to Postgres.
	PersistResults bool

	// Tune, when set, adjusts freshly created games (phase durations etc.).
	Tune func(g *game.BunkerGame)
}

func NewGameServer() *GameServer {
	return &GameServer{
		GameStore: game.NewGameStore(),
		Logf:      log.Printf,
	}
}

// CreateGame creates a new in-memory game with a fresh join code and hooks
// its end-of-game callback to result persistence and store cleanup.
func (gs *GameServer) CreateGame() *game.BunkerGame {
	g := gs.GameStore.CreateGame()
	g.OnGameEnd = func(gameID string, survivors []uuid.UUID) {
		gs.finalizeGame(gameID, survivors)
	}
	if gs.Tune != nil {
		gs.Tune(g)
	}
	return g
}

// finalizeGame persists the outcome of a finished game and removes it from the
// in-memory store. Runs on its own goroutine (invoked from the game's end hook).
func (gs *GameServer) finalizeGame(gameID string, survivors []uuid.UUID) {
	g, ok := gs.GameStore.GetGame(gameID)
	if ok && gs.PersistResults && database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		g.Mu.Lock()
		players := g.Players
		snapshot := map[string]interface{}{
			"scenario":  g.Scenario,
			"rounds":    g.CurrentRound,
			"survivors": survivors,
		}
		g.Mu.Unlock()

		if err := database.RecordGameResults(ctx, gameID, players, survivors); err != nil {
			gs.Logf("failed to record results for game %s: %v", gameID, err)
		}
		if err := database.StoreFinalGameStateInDB(ctx, gameID, snapshot); err != nil {
			gs.Logf("failed to store final state for game %s: %v", gameID, err)
		}
	}

	// Leave a short window for clients to read the final broadcast, then drop
	// the game so the join code can be reused.
	time.AfterFunc(5*time.Minute, func() {
		gs.GameStore.DeleteGame(gameID)
	})
}
