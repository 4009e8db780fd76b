// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Close codes for upgrade failures that happen after the HTTP response is
// already hijacked, where a status code can no longer be sent.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // client did not request the "game" subprotocol
	InvalidAuthTokenError websocket.StatusCode = 3001 // session could not be established
)
