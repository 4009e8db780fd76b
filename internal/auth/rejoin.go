// internal/auth/rejoin.go
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CreateRejoinToken creates a signed token binding a player seat to a game.
// A client that loses its connection presents this token to reclaim its seat,
// even from a fresh session with a new player ID.
func CreateRejoinToken(gameID, playerID string) (string, error) {
	return signClaims(jwt.MapClaims{
		"sub":  playerID,
		"game": gameID,
		"typ":  "rejoin",
	})
}

// AuthenticateRejoinToken verifies a rejoin token and returns the (gameID, playerID)
// pair it was issued for.
func AuthenticateRejoinToken(tokenString string) (string, string, error) {
	claims, err := verifyToken(tokenString)
	if err != nil {
		return "", "", err
	}
	if typ, _ := claims["typ"].(string); typ != "rejoin" {
		return "", "", fmt.Errorf("not a rejoin token")
	}
	gameID, ok := claims["game"].(string)
	if !ok {
		return "", "", fmt.Errorf("missing game in jwt")
	}
	playerID, ok := claims["sub"].(string)
	if !ok {
		return "", "", fmt.Errorf("missing sub in jwt")
	}
	return gameID, playerID, nil
}
