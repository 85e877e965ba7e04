package credstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/deposit-auction-client/internal/token"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "credentials_test.db"))
	require.NoError(t, err)

	s, err := New(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Load(ctx)
	require.True(t, errors.Is(err, token.ErrNoCredential), "empty store: got %v", err)

	require.NoError(t, s.Save(ctx, "first.token.value"))
	require.NoError(t, s.Save(ctx, "second.token.value"))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second.token.value", got)

	var rows int64
	require.NoError(t, s.db.Model(&CredentialModel{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	require.NoError(t, s.Remove(ctx))
	_, err = s.Load(ctx)
	assert.True(t, errors.Is(err, token.ErrNoCredential))

	// removing twice is not an error
	require.NoError(t, s.Remove(ctx))
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := Open(path)
	require.NoError(t, err)
	s, err := New(ctx, db)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "persisted.token.value"))
	require.NoError(t, s.Close())

	db, err = Open(path)
	require.NoError(t, err)
	s, err = New(ctx, db)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted.token.value", got)
}
