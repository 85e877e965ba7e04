// Package token validates and holds the bearer credential the session presents
// at handshake. The client never has the signing key, so tokens are decoded
// without signature verification and only their expiry is enforced.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpired      = errors.New("token expired")
	ErrNoCredential = errors.New("no credential")
)

// Roles that receive participant join/leave notices.
var privilegedRoles = map[string]bool{
	"admin":     true,
	"initiator": true,
	"owner":     true,
}

type Claims struct {
	jwt.RegisteredClaims
	// the backend sends the user id as "id", sometimes as a number
	RawUserID any    `json:"id,omitempty"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

func (c Claims) UserID() string {
	if id := cast.ToString(c.RawUserID); id != "" {
		return id
	}
	return c.Subject
}

func (c Claims) Privileged() bool { return privilegedRoles[strings.ToLower(c.Role)] }

type Credential struct {
	Token  string
	Claims Claims
}

func (c Credential) Role() string { return c.Claims.Role }

var parser = jwt.NewParser()

// Decode reads the payload of a three-segment base64url token. It does not
// check expiry.
func Decode(raw string) (Claims, error) {
	var claims Claims
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	_, _, err := parser.ParseUnverified(raw, &claims)
	// an unknown alg still leaves the payload decoded
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Validate decodes raw and requires a numeric exp strictly after now.
func Validate(raw string, now time.Time) (Claims, error) {
	claims, err := Decode(raw)
	if err != nil {
		return Claims{}, err
	}
	if claims.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if !claims.ExpiresAt.After(now) {
		return Claims{}, fmt.Errorf("%w: at %s", ErrExpired, claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return claims, nil
}

// Notifier is told whenever the stored credential changes.
type Notifier interface {
	Publish()
}

type Guard struct {
	store    Store
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewGuard(store Store, notifier Notifier, clock clockwork.Clock, logger *zap.Logger) *Guard {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{store: store, notifier: notifier, clock: clock, logger: logger.Named("token")}
}

// Valid never panics; any malformed input is simply not valid.
func (g *Guard) Valid(raw string) bool {
	_, err := Validate(raw, g.clock.Now())
	return err == nil
}

// Current returns the stored credential if it is still valid. An invalid
// stored credential is purged and a change is broadcast.
func (g *Guard) Current(ctx context.Context) (Credential, bool) {
	raw, err := g.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			g.logger.Warn("load credential", zap.Error(err))
		}
		return Credential{}, false
	}

	claims, err := Validate(raw, g.clock.Now())
	if err != nil {
		g.logger.Info("purging stored credential", zap.Error(err))
		if err := g.purge(ctx); err != nil {
			g.logger.Warn("purge credential", zap.Error(err))
		}
		return Credential{}, false
	}
	return Credential{Token: raw, Claims: claims}, true
}

// Save validates raw before storing it.
func (g *Guard) Save(ctx context.Context, raw string) (Credential, error) {
	claims, err := Validate(raw, g.clock.Now())
	if err != nil {
		return Credential{}, err
	}
	if err := g.store.Save(ctx, raw); err != nil {
		return Credential{}, fmt.Errorf("token: save: %w", err)
	}
	g.publish()
	return Credential{Token: raw, Claims: claims}, nil
}

// Reject purges the credential after the server refused it.
func (g *Guard) Reject(ctx context.Context, reason string) error {
	g.logger.Warn("credential rejected", zap.String("reason", reason))
	return g.purge(ctx)
}

// Clear removes the credential on logout.
func (g *Guard) Clear(ctx context.Context) error {
	return g.purge(ctx)
}

func (g *Guard) purge(ctx context.Context) error {
	err := g.store.Remove(ctx)
	g.publish()
	if err != nil {
		return fmt.Errorf("token: remove: %w", err)
	}
	return nil
}

func (g *Guard) publish() {
	if g.notifier != nil {
		g.notifier.Publish()
	}
}
