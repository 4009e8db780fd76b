package game

import (
	"strings"
	"sync"
)

// GameStore holds the live games in memory, keyed by join code.
type GameStore struct {
	mu    sync.Mutex
	games map[string]*BunkerGame
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*BunkerGame),
	}
}

// CreateGame builds a fresh game and registers it, re-rolling the join code
// on the unlikely collision.
func (s *GameStore) CreateGame() *BunkerGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		g := NewBunkerGame()
		if _, exists := s.games[g.ID]; exists {
			continue
		}
		s.games[g.ID] = g
		return g
	}
}

func (s *GameStore) AddGame(g *BunkerGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

func (s *GameStore) GetGame(code string) (*BunkerGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[strings.ToUpper(code)]
	return g, exists
}

func (s *GameStore) DeleteGame(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, code)
}

// ListGames returns a snapshot of the live games, typically for debugging.
func (s *GameStore) ListGames() []*BunkerGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*BunkerGame, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	return out
}
