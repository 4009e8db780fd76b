// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bunkergame/bunker/internal/auth"
	"github.com/bunkergame/bunker/internal/database"
	"github.com/bunkergame/bunker/internal/game"
	"github.com/bunkergame/bunker/internal/models"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GameMessage represents the structure for incoming WebSocket messages during the game phase.
type GameMessage struct {
	Type string `json:"type"`

	// Payload carries the action-specific fields: "key" for reveals,
	// "targetId" for votes and action targets, "slot" for card activations.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific game instance.
// It authenticates the user, seats them (or reclaims their seat), registers the
// connection, and then starts the read loop to handle incoming game messages.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract the join code from the URL path: /game/ws/{code}
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing game code in path (/game/ws/{code})", http.StatusBadRequest)
			return
		}
		code := pathParts[0]

		g, ok := gs.GameStore.GetGame(code)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		g.Mu.Lock()
		over := g.Phase == game.PhaseGameOver
		g.Mu.Unlock()
		if over {
			http.Error(w, "Game has already ended", http.StatusGone)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", g.ID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client for game %s connected with invalid subprotocol: %s", g.ID, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
			return
		}
		logger.Infof("WebSocket connection established for game %s from %s", g.ID, r.RemoteAddr)

		// Authenticate user, potentially creating an ephemeral guest user.
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("User authentication failed for game %s: %v", g.ID, err)
			c.Close(InvalidAuthTokenError, "Authentication failed.")
			return
		}
		logger.Infof("User %s authenticated for game %s", userID, g.ID)

		// Register broadcast functions if they haven't been set up yet for this
		// game instance. The engine calls them with the game lock held, so
		// they only snapshot state and write asynchronously.
		g.Mu.Lock()
		if g.BroadcastFn == nil {
			g.BroadcastFn = createBroadcastFunc(g, logger)
		}
		if g.BroadcastToPlayerFn == nil {
			g.BroadcastToPlayerFn = createBroadcastToPlayerFunc(g, logger)
		}
		isSeated := false
		for _, p := range g.Players {
			if p.ID == userID {
				isSeated = true
				break
			}
		}
		g.Mu.Unlock()

		if isSeated {
			// Reclaim the existing seat; sends a fresh private sync state.
			g.HandleReconnect(userID, c)
		} else {
			p := &models.Player{
				ID:        userID,
				Username:  lookupUsername(r.Context(), userID),
				Connected: true,
				Conn:      c,
			}
			if !g.AddPlayer(p) {
				logger.Warnf("User %s could not join game %s (full or in progress).", userID, g.ID)
				c.Close(websocket.StatusPolicyViolation, "Game is full or already in progress.")
				return
			}
		}

		// Hand the client a rejoin token so it can reclaim this seat later,
		// even from a fresh session.
		if token, err := auth.CreateRejoinToken(g.ID, userID.String()); err == nil {
			sendWsMessage(c, map[string]string{"type": "rejoin_token", "token": token})
		} else {
			logger.Warnf("Failed to create rejoin token for user %s in game %s: %v", userID, g.ID, err)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readGameMessages(ctx, c, g, userID, logger)

		// Cleanup after readGameMessages returns (due to error, closure, or context cancellation).
		logger.Infof("Player %s WebSocket read loop exited for game %s.", userID, g.ID)
		g.HandleDisconnect(userID)
		logger.Infof("Player %s cleanup complete for game %s.", userID, g.ID)
		// The deferred c.Close handles the actual WebSocket closure.
	}
}

// lookupUsername fetches the display name for a user, falling back to "Guest"
// when the database is unavailable or the row is missing.
func lookupUsername(ctx context.Context, userID uuid.UUID) string {
	if database.DB == nil {
		return "Guest"
	}
	u, err := database.GetUserByID(ctx, userID)
	if err != nil || u.Username == "" {
		return "Guest"
	}
	return u.Username
}

// createBroadcastFunc returns a function suitable for BunkerGame.BroadcastFn.
// The engine invokes it with the game lock already held, so it must not touch
// g.Mu itself: it snapshots the connected sockets from the locked state, then
// marshals and writes on a separate goroutine so socket I/O never runs under
// the lock.
func createBroadcastFunc(g *game.BunkerGame, logger *logrus.Logger) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		var conns []*websocket.Conn
		for _, p := range g.Players {
			if p.Connected && p.Conn != nil {
				conns = append(conns, p.Conn)
			}
		}
		if len(conns) == 0 {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal broadcast event (%s) for game %s: %v", ev.Type, g.ID, err)
			return
		}

		go func(conns []*websocket.Conn, data []byte, gameID string) {
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second) // Write timeout.
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Warnf("Failed to write broadcast message in game %s: %v", gameID, err)
				}
			}
		}(conns, msgBytes, g.ID)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// BunkerGame.BroadcastToPlayerFn. Like the broadcast closure it runs with the
// game lock already held and must not re-acquire g.Mu.
func createBroadcastToPlayerFunc(g *game.BunkerGame, logger *logrus.Logger) func(targetPlayerID uuid.UUID, ev game.GameEvent) {
	return func(targetPlayerID uuid.UUID, ev game.GameEvent) {
		var targetConn *websocket.Conn
		for _, pl := range g.Players {
			if pl.ID == targetPlayerID {
				if pl.Connected && pl.Conn != nil {
					targetConn = pl.Conn
				}
				break
			}
		}
		if targetConn == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal private event (%s) for player %s in game %s: %v", ev.Type, targetPlayerID, g.ID, err)
			return
		}
		go func(conn *websocket.Conn, data []byte, playerID uuid.UUID, gameID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write private message to player %s in game %s: %v", playerID, gameID, err)
			}
		}(targetConn, msgBytes, targetPlayerID, g.ID)
	}
}

// readGameMessages continuously reads messages from a client's WebSocket connection,
// unmarshals them, and routes them to the game's action handler. It operates within
// the connection's context and exits upon error or cancellation.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.BunkerGame, userID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			// Handle read errors (connection closed, context cancelled, etc.)
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %s in game %s.", userID, g.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for user %s in game %s.", userID, g.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for user %s in game %s: %v (Status: %d)", userID, g.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from user %s in game %s. Ignoring.", msgType, userID, g.ID)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from user %s in game %s: %v. Data: %s", userID, g.ID, err, string(data))
			sendWsError(c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received action '%s' from user %s in game %s.", msg.Type, userID, g.ID)

		if msg.Type == "ping" {
			sendWsMessage(c, map[string]string{"type": "pong"})
			continue
		}

		if !strings.HasPrefix(msg.Type, "action_") {
			logger.Warnf("Unknown message type '%s' from user %s in game %s.", msg.Type, userID, g.ID)
			sendWsError(c, fmt.Sprintf("Unknown message type: %s", msg.Type))
			continue
		}

		// Acquire game lock before accessing or modifying game state.
		g.Mu.Lock()
		if g.Phase == game.PhaseGameOver {
			logger.Warnf("Game %s is over. Ignoring action '%s' from user %s.", g.ID, msg.Type, userID)
			g.Mu.Unlock()
			continue
		}
		g.HandlePlayerAction(userID, models.GameAction{
			ActionType: msg.Type,
			Payload:    msg.Payload,
		})
		g.Mu.Unlock()

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing message for user %s in game %s.", userID, g.ID)
			return
		default:
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
// Includes logging for errors and uses a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	// Use a dedicated context with timeout for the write operation.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Write(writeCtx, websocket.MessageText, msgBytes)
	if err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !strings.Contains(err.Error(), "context deadline exceeded") {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		} else if strings.Contains(err.Error(), "context deadline exceeded") {
			log.Printf("Timeout writing WebSocket message: %v", err)
		}
		// Let the read loop handle connection closure detection.
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(c *websocket.Conn, errorMsg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
