package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halim/toolgate/pkg/security"
)

// GetSecret resolves a secret by its composite key. Absent secrets
// return an empty string, which the resolver treats as missing.
func (s *Store) GetSecret(ctx context.Context, key security.SecretKey) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM secrets
		WHERE scope = ? AND user_id = ? AND organization_id = ? AND provider = ? AND tag = ?`,
		key.Scope, key.UserID, key.OrganizationID, key.Provider, key.Tag).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", key, err)
	}
	return value, nil
}

// SetSecret stores or replaces a secret under its composite key.
func (s *Store) SetSecret(ctx context.Context, key security.SecretKey, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (scope, user_id, organization_id, provider, tag, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scope, user_id, organization_id, provider, tag) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key.Scope, key.UserID, key.OrganizationID, key.Provider, key.Tag, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store secret %s: %w", key, err)
	}
	return nil
}

// DeleteSecret removes a stored secret.
func (s *Store) DeleteSecret(ctx context.Context, key security.SecretKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM secrets
		WHERE scope = ? AND user_id = ? AND organization_id = ? AND provider = ? AND tag = ?`,
		key.Scope, key.UserID, key.OrganizationID, key.Provider, key.Tag)
	if err != nil {
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}
