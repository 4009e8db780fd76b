// internal/handlers/game_ws_test.go
package handlers

import (
	"io"
	"testing"
	"time"

	"github.com/bunkergame/bunker/internal/game"
	"github.com/bunkergame/bunker/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// The engine fires events while holding the game lock, so the websocket
// broadcast closures must never re-acquire it. A join is the first thing
// that broadcasts once the closures are registered; if either closure
// locks, the join never returns and the game is wedged.
func TestJoinBroadcastsWithoutBlocking(t *testing.T) {
	logger := quietLogger()
	g := game.NewBunkerGame()
	g.BroadcastFn = createBroadcastFunc(g, logger)
	g.BroadcastToPlayerFn = createBroadcastToPlayerFunc(g, logger)

	done := make(chan bool, 1)
	go func() {
		p := &models.Player{ID: uuid.New(), Username: "guest", Connected: true}
		done <- g.AddPlayer(p)
	}()

	select {
	case joined := <-done:
		require.True(t, joined)
	case <-time.After(2 * time.Second):
		t.Fatal("AddPlayer did not return; a broadcast closure blocked inside the game lock")
	}
}

// Same contract for actions dispatched the way the read loop does it: the
// loop holds the lock across HandlePlayerAction, and every event fired from
// there flows through the closures.
func TestActionEventsDeliverUnderReadLoopLock(t *testing.T) {
	logger := quietLogger()
	g := game.NewBunkerGame()
	g.BroadcastFn = createBroadcastFunc(g, logger)
	g.BroadcastToPlayerFn = createBroadcastToPlayerFunc(g, logger)

	players := make([]*models.Player, 6)
	for i := range players {
		players[i] = &models.Player{ID: uuid.New(), Username: "guest", Connected: true}
		require.True(t, g.AddPlayer(players[i]))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Mu.Lock()
		g.HandlePlayerAction(players[0].ID, models.GameAction{ActionType: "action_start_game"})
		g.Mu.Unlock()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandlePlayerAction did not return; a broadcast closure blocked inside the game lock")
	}

	g.Mu.Lock()
	phase := g.Phase
	g.Mu.Unlock()
	require.Equal(t, game.PhaseIntroduction, phase)
}
