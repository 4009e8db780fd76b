package handlers

import "net/http"

// sessionToken reads the auth cookie off the request, returning "" when the
// client sent none.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie("auth_token")
	if err != nil {
		return ""
	}
	return c.Value
}
