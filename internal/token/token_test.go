package token

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func mint(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return s
}

func mintExp(t *testing.T, exp time.Time, role string) string {
	return mint(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		RawUserID:        42,
		Role:             role,
		Email:            "bank@example.kg",
	})
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Publish() { c.n++ }

func TestValidate(t *testing.T) {
	raw := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	cases := []struct {
		name  string
		token string
		err   error
	}{
		{name: "future exp", token: mintExp(t, epoch.Add(time.Hour), "bank")},
		{name: "expired", token: mintExp(t, epoch.Add(-time.Minute), "bank"), err: ErrExpired},
		{name: "exp equal to now", token: mintExp(t, epoch, "bank"), err: ErrExpired},
		{name: "no exp", token: mint(t, jwt.MapClaims{"role": "bank"}), err: ErrInvalidToken},
		{name: "string exp", token: mint(t, jwt.MapClaims{"exp": "tomorrow"}), err: ErrInvalidToken},
		{name: "empty", token: "", err: ErrInvalidToken},
		{name: "two segments", token: "abc.def", err: ErrInvalidToken},
		{name: "not base64", token: "!!.@@.##", err: ErrInvalidToken},
		{name: "payload not json", token: raw(`{"alg":"HS256"}`) + "." + raw("hello") + ".sig", err: ErrInvalidToken},
		{name: "garbage", token: "\x00\xff.\x00.\x00", err: ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var claims Claims
			var err error
			require.NotPanics(t, func() { claims, err = Validate(tc.token, epoch) })
			if tc.err == nil {
				require.NoError(t, err)
				assert.Equal(t, "42", claims.UserID())
				return
			}
			assert.True(t, errors.Is(err, tc.err), "want %v, got %v", tc.err, err)
		})
	}
}

func TestDecode_UnknownAlgStillDecodes(t *testing.T) {
	raw := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	tok := raw(`{"alg":"X-CUSTOM","typ":"JWT"}`) + "." + raw(`{"exp":1900000000,"role":"initiator","sub":"u7"}`) + "." + raw("sig")

	claims, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "initiator", claims.Role)
	assert.Equal(t, "u7", claims.UserID())
	assert.True(t, claims.Privileged())
}

func TestClaims_Privileged(t *testing.T) {
	for role, want := range map[string]bool{"admin": true, "Initiator": true, "owner": true, "bank": false, "user": false, "": false} {
		assert.Equal(t, want, Claims{Role: role}.Privileged(), role)
	}
}

func TestGuard_CurrentPurgesInvalidCredential(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(epoch)
	notifier := &countingNotifier{}

	store := NewMemoryStore(mintExp(t, epoch.Add(30*time.Second), "bank"))
	g := NewGuard(store, notifier, clock, zaptest.NewLogger(t))

	cred, ok := g.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "bank", cred.Role())
	assert.Zero(t, notifier.n)

	clock.Advance(time.Minute)

	_, ok = g.Current(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, notifier.n)

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, ErrNoCredential))

	// nothing stored: no purge, no signal
	_, ok = g.Current(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, notifier.n)
}

func TestGuard_SaveRejectAndClear(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(epoch)
	notifier := &countingNotifier{}
	store := NewMemoryStore("")
	g := NewGuard(store, notifier, clock, zaptest.NewLogger(t))

	_, err := g.Save(ctx, mintExp(t, epoch.Add(-time.Second), "bank"))
	require.True(t, errors.Is(err, ErrExpired))
	assert.Zero(t, notifier.n, "expired token must not be stored")

	good := mintExp(t, epoch.Add(time.Hour), "admin")
	cred, err := g.Save(ctx, good)
	require.NoError(t, err)
	assert.True(t, cred.Claims.Privileged())
	assert.Equal(t, 1, notifier.n)
	assert.True(t, g.Valid(good))

	require.NoError(t, g.Reject(ctx, "Ошибка аутентификации"))
	assert.Equal(t, 2, notifier.n)
	_, ok := g.Current(ctx)
	assert.False(t, ok)

	require.NoError(t, g.Clear(ctx))
	assert.Equal(t, 3, notifier.n)
}
