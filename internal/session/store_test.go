package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uabidotfun/antigravity-manager/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "state", "abv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestTokenEmptyWhenUnset(t *testing.T) {
	s := newStore(t)

	tok, err := s.Token(context.Background())
	require.NoError(t, err, "an absent credential must not be an error")
	assert.Empty(t, tok)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, SlotAdminAPIKey, "secret-1"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-1", tok)

	// Upsert replaces.
	require.NoError(t, s.Set(ctx, SlotAdminAPIKey, "secret-2"))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-2", tok)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, SlotAdminAPIKey, "secret"))
	require.NoError(t, s.Delete(ctx, SlotAdminAPIKey))

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, SlotAdminAPIKey))
}

func TestEmptySlotRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, "", "v"))
	assert.Error(t, s.Delete(ctx, ""))
}

func TestStatic(t *testing.T) {
	tok, err := Static("from-env").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}
