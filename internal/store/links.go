package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halim/toolgate/pkg/engine"
)

// GetOrCreateUserToolLink ensures a link row exists for the caller and
// tool. Existing rows are left untouched.
func (s *Store) GetOrCreateUserToolLink(ctx context.Context, userID, organizationID, toolID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tool_links (user_id, organization_id, tool_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, organization_id, tool_id) DO NOTHING`,
		userID, organizationID, toolID, engine.LinkStatusUnset, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure user tool link: %w", err)
	}
	return nil
}

// UpdateUserToolStatus sets the caller's last known status for a tool.
// Last write wins; the value is cached status, not correctness-bearing.
func (s *Store) UpdateUserToolStatus(ctx context.Context, userID, organizationID, toolID, status string) error {
	switch status {
	case engine.LinkStatusUnset, engine.LinkStatusActive, engine.LinkStatusDeleted:
	default:
		return fmt.Errorf("invalid user tool status %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_tool_links SET status = ?, updated_at = ?
		WHERE user_id = ? AND organization_id = ? AND tool_id = ?`,
		status, time.Now().UTC(), userID, organizationID, toolID)
	if err != nil {
		return fmt.Errorf("failed to update user tool status: %w", err)
	}
	return nil
}

// GetUserToolStatus returns the caller's last known status for a tool,
// or "unset" when no link exists.
func (s *Store) GetUserToolStatus(ctx context.Context, userID, organizationID, toolID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM user_tool_links
		WHERE user_id = ? AND organization_id = ? AND tool_id = ?`,
		userID, organizationID, toolID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.LinkStatusUnset, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user tool status: %w", err)
	}
	return status, nil
}
