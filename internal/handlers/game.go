// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bunkergame/bunker/internal/auth"
	"github.com/bunkergame/bunker/internal/game"
	"github.com/google/uuid"
)

// ServeHTTP routes the REST endpoints for game lifecycle. The live connection
// itself goes through /game/ws/{code}; see game_ws.go.
func (gs *GameServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/game/create" && r.Method == http.MethodPost:
		gs.handleCreateGame(w, r)
	case r.URL.Path == "/game/list" && r.Method == http.MethodGet:
		gs.handleListGames(w, r)
	case strings.HasPrefix(r.URL.Path, "/game/rejoin") && r.Method == http.MethodPost:
		gs.handleRejoin(w, r)
	default:
		http.Error(w, "unsupported route, use /game/ws/{code} for websockets", http.StatusNotFound)
	}
}

// handleCreateGame creates a new game and returns its join code. The creator
// still has to open the WebSocket to take the host seat.
func (gs *GameServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if _, err := EnsureEphemeralUser(w, r); err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	g := gs.CreateGame()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": g.ID,
	})
}

// handleListGames returns the games that are still open for joining.
func (gs *GameServer) handleListGames(w http.ResponseWriter, r *http.Request) {
	type gameSummary struct {
		GameID      string `json:"game_id"`
		PlayerCount int    `json:"player_count"`
		MaxPlayers  int    `json:"max_players"`
	}

	var out []gameSummary
	for _, g := range gs.GameStore.ListGames() {
		g.Mu.Lock()
		if g.Phase == game.PhaseLobby {
			out = append(out, gameSummary{
				GameID:      g.ID,
				PlayerCount: len(g.Players),
				MaxPlayers:  game.MaxPlayers,
			})
		}
		g.Mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type rejoinRequest struct {
	Token string `json:"token"`
}

// handleRejoin lets a client that lost its session reclaim a seat. The rejoin
// token pins (game, seat); the seat is rebound to the caller's current user ID
// and the client then reopens the WebSocket as usual.
func (gs *GameServer) handleRejoin(w http.ResponseWriter, r *http.Request) {
	var req rejoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "invalid rejoin payload", http.StatusBadRequest)
		return
	}

	gameID, seatIDStr, err := auth.AuthenticateRejoinToken(req.Token)
	if err != nil {
		http.Error(w, "invalid rejoin token", http.StatusForbidden)
		return
	}
	seatID, err := uuid.Parse(seatIDStr)
	if err != nil {
		http.Error(w, "invalid seat id in token", http.StatusForbidden)
		return
	}

	g, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	rebound := seatID == userID || g.RebindPlayer(seatID, userID)
	if !rebound {
		http.Error(w, "seat no longer available", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"game_id": g.ID,
	})
}
