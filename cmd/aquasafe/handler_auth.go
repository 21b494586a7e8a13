package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aquasafe/aquasafe/pkg/database"
	"github.com/aquasafe/aquasafe/pkg/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the data of a successful login or refresh
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (rm *RouteManager) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate credentials
	user, err := rm.store.ValidateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		rm.respondRepoError(w, r, err)
		return
	}

	rm.issueToken(w, user, "Login successful")
}

func (rm *RouteManager) handleMe(w http.ResponseWriter, r *http.Request) {
	claimed := GetUserFromContext(r.Context())
	if claimed == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := rm.store.GetUserByID(r.Context(), claimed.ID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "User no longer exists")
			return
		}
		rm.respondRepoError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, "", user)
}

func (rm *RouteManager) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rm.issueToken(w, user, "Token refreshed")
}

func (rm *RouteManager) issueToken(w http.ResponseWriter, user *models.User, message string) {
	token, expiresAt, err := rm.auth.GenerateJWT(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondOK(w, http.StatusOK, message, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
