package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halim/toolgate/pkg/tool"
)

// GetToolByID returns the tool or nil when it does not exist.
func (s *Store) GetToolByID(ctx context.Context, id string) (*tool.Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, utility_provider, openapi_spec,
		       security_option, secret_name_tag, secret_username_tag, secret_password_tag,
		       is_verified, creator_user_id, creator_organization_id, created_at, updated_at
		FROM tools WHERE id = ?`, id)
	return scanTool(row)
}

// GetToolByName returns the tool with the given name or nil. Names are
// unique per registry sync, not enforced by schema.
func (s *Store) GetToolByName(ctx context.Context, name string) (*tool.Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, utility_provider, openapi_spec,
		       security_option, secret_name_tag, secret_username_tag, secret_password_tag,
		       is_verified, creator_user_id, creator_organization_id, created_at, updated_at
		FROM tools WHERE name = ?`, name)
	return scanTool(row)
}

// PutTool inserts or replaces a tool definition.
func (s *Store) PutTool(ctx context.Context, def *tool.Definition) error {
	if def.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tools (id, name, description, utility_provider, openapi_spec,
			security_option, secret_name_tag, secret_username_tag, secret_password_tag,
			is_verified, creator_user_id, creator_organization_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			utility_provider = excluded.utility_provider,
			openapi_spec = excluded.openapi_spec,
			security_option = excluded.security_option,
			secret_name_tag = excluded.secret_name_tag,
			secret_username_tag = excluded.secret_username_tag,
			secret_password_tag = excluded.secret_password_tag,
			is_verified = excluded.is_verified,
			updated_at = excluded.updated_at`,
		def.ID, def.Name, def.Description, def.UtilityProvider, string(def.OpenAPISpec),
		def.SecurityOption, def.SecuritySecrets.Name, def.SecuritySecrets.Username, def.SecuritySecrets.Password,
		def.IsVerified, def.CreatorUserID, def.CreatorOrganizationID, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store tool %s: %w", def.ID, err)
	}
	return nil
}

// ListTools returns all registered tools ordered by name.
func (s *Store) ListTools(ctx context.Context) ([]*tool.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, utility_provider, openapi_spec,
		       security_option, secret_name_tag, secret_username_tag, secret_password_tag,
		       is_verified, creator_user_id, creator_organization_id, created_at, updated_at
		FROM tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var defs []*tool.Definition
	for rows.Next() {
		def, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// DeleteTool removes a tool definition.
func (s *Store) DeleteTool(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tools WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete tool %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTool(row rowScanner) (*tool.Definition, error) {
	var def tool.Definition
	var spec string
	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.UtilityProvider, &spec,
		&def.SecurityOption, &def.SecuritySecrets.Name, &def.SecuritySecrets.Username, &def.SecuritySecrets.Password,
		&def.IsVerified, &def.CreatorUserID, &def.CreatorOrganizationID, &def.CreatedAt, &def.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tool: %w", err)
	}
	def.OpenAPISpec = []byte(spec)
	return &def, nil
}
