package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/bunkergame/bunker/internal/auth"
	"github.com/bunkergame/bunker/internal/database"
	"github.com/bunkergame/bunker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// guestSuffixAlphabet matches the join-code alphabet so guest names render
// cleanly next to game codes.
const guestSuffixAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func guestUsername() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = guestSuffixAlphabet[rand.Intn(len(guestSuffixAlphabet))]
	}
	return "Guest-" + string(b)
}

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TOKEN_EXPIRE_TIME_SEC,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to write response: %v", err)
	}
}

// newGuestSession creates an ephemeral user, signs a session token for it and
// sets the auth cookie.
func newGuestSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	guest := models.User{
		Username:    guestUsername(),
		IsEphemeral: true,
	}
	if err := database.CreateUser(r.Context(), &guest); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to sign guest session: %w", err)
	}
	setAuthCookie(w, token)
	return guest.ID, nil
}

// EnsureEphemeralUser resolves the caller's session, minting a fresh guest
// identity when there is no usable auth cookie. Joining a game never requires
// registration.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	token := sessionToken(r)
	if token == "" {
		return newGuestSession(w, r)
	}

	userIDStr, err := auth.AuthenticateJWT(token)
	if err != nil {
		// Expired or garbage token; silently roll a new guest.
		return newGuestSession(w, r)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id in token: %w", err)
	}
	return userID, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// ClaimEphemeralHandler upgrades the caller's guest account to a registered
// one, keeping its id so past game results stay attached.
func ClaimEphemeralHandler(w http.ResponseWriter, r *http.Request) {
	userIDStr, err := auth.AuthenticateJWT(sessionToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user id in token", http.StatusForbidden)
		return
	}

	u, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if !u.IsEphemeral {
		http.Error(w, "account is already registered", http.StatusBadRequest)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid claim payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	u.Email = req.Email
	u.Password = req.Password
	if req.Username != "" {
		u.Username = req.Username
	}
	u.IsEphemeral = false

	if err := database.UpdateUserCredentials(r.Context(), u); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "failed to claim account", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": u.ID.String(), "username": u.Username})
}

func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// LoginHandler authenticates by email and password, returning the session
// token in the body and as the auth cookie.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		logrus.Infof("failed login for %q: %v", req.Email, err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	setAuthCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
