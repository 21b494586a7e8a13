package api

import (
	"context"
	"net/http"
	"time"

	"github.com/aquasafe/aquasafe/pkg/models"
)

// LoginRequest holds credentials for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Login exchanges credentials for a token and uses it for later requests
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var tr TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: username, Password: password}, &tr); err != nil {
		return nil, err
	}
	c.token = tr.Token
	return &tr, nil
}

// Refresh trades the current token for a fresh one
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	var tr TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, &tr); err != nil {
		return nil, err
	}
	c.token = tr.Token
	return &tr, nil
}

// Me returns the user the token belongs to
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
