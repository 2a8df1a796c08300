// Package session holds the opaque credential identifying the current
// administrative session. The dispatcher reads the token fresh on every
// HTTP-mode call and never writes it; only the CLI's auth commands do.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SlotAdminAPIKey is the credential slot the dispatcher reads.
const SlotAdminAPIKey = "abv_admin_api_key"

// Store is a SQLite-backed credential slot store. It implements
// invoke.CredentialSource via Token.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Token returns the admin API key, or "" when the slot is empty. Absence is
// not an error; the dispatch layer simply omits auth headers.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.Get(ctx, SlotAdminAPIKey)
}

// Get reads a credential slot, returning "" when unset.
func (s *Store) Get(ctx context.Context, slot string) (string, error) {
	if slot == "" {
		return "", fmt.Errorf("credential slot is empty")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM credential WHERE slot = ?;", slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential slot %q: %w", slot, err)
	}
	return value, nil
}

// Set writes a credential slot.
func (s *Store) Set(ctx context.Context, slot, value string) error {
	if slot == "" {
		return fmt.Errorf("credential slot is empty")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO credential (slot, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		slot, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write credential slot %q: %w", slot, err)
	}
	return nil
}

// Delete clears a credential slot. Deleting an absent slot is a no-op.
func (s *Store) Delete(ctx context.Context, slot string) error {
	if slot == "" {
		return fmt.Errorf("credential slot is empty")
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM credential WHERE slot = ?;", slot); err != nil {
		return fmt.Errorf("delete credential slot %q: %w", slot, err)
	}
	return nil
}

// Static is a fixed in-memory credential, used when the key arrives via
// environment or flags instead of the state file.
type Static string

func (s Static) Token(ctx context.Context) (string, error) {
	return string(s), nil
}
