package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/token"
)

type User struct {
	ID    Text   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	// FromToken is set when the profile endpoint was unavailable and the
	// fields were read from the stored token instead.
	FromToken bool `json:"-"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges email and password for a token, stores it and returns the
// freshest profile available. The credentials-changed signal is broadcast by
// the guard on save.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp AuthResponse
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, false, &resp)
	if err != nil {
		return User{}, err
	}

	if _, err := c.creds.Save(ctx, resp.Token); err != nil {
		return User{}, fmt.Errorf("api: login token: %w", err)
	}

	u, err := c.Me(ctx)
	if err != nil {
		c.logger.Warn("profile after login", zap.Error(err))
		return resp.User, nil
	}
	return u, nil
}

// Register creates an account. The returned token is not stored.
func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResponse, error) {
	var resp AuthResponse
	err := c.postJSON(ctx, "/api/auth/register", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
		"name":     strings.TrimSpace(name),
	}, false, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.creds.Clear(ctx)
}

// Me fetches the current profile. A 401 or 403 purges the stored credential;
// any other failure falls back to the claims of the stored token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.get(ctx, "/api/auth/me", &u)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, token.ErrNoCredential) {
		return User{}, err
	}
	if IsAuth(err) {
		if rerr := c.creds.Reject(ctx, err.Error()); rerr != nil {
			c.logger.Warn("purge rejected credential", zap.Error(rerr))
		}
		return User{}, err
	}

	c.logger.Info("profile unavailable, using token claims", zap.Error(err))
	cred, ok := c.creds.Current(ctx)
	if !ok {
		return User{}, err
	}
	return userFromClaims(cred.Claims), nil
}

func userFromClaims(claims token.Claims) User {
	role := claims.Role
	if role == "" {
		role = "user"
	}
	return User{
		ID:        Text(claims.UserID()),
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      role,
		FromToken: true,
	}
}

// MarshalJSON keeps FromToken visible to bridge clients.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		FromToken bool `json:"from_token,omitempty"`
	}{plain: plain(u), FromToken: u.FromToken})
}
