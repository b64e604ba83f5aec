package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halim/toolgate/pkg/engine"
)

// RecordExecution appends one immutable audit row. Rows are never
// updated or deleted by the engine; only the retention job removes
// expired ones.
func (s *Store) RecordExecution(ctx context.Context, record *engine.ExecutionRecord) error {
	input, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("failed to encode execution input: %w", err)
	}

	var output any
	if len(record.Output) > 0 {
		output = string(record.Output)
	}
	var details any
	if len(record.ErrorDetails) > 0 {
		details = string(record.ErrorDetails)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, tool_id, user_id, organization_id, conversation_id,
			input, output, status_code, error, error_details, hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.ToolID, record.UserID, record.OrganizationID, record.ConversationID,
		string(input), output, record.StatusCode, record.Error, details, record.Hint, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record execution %s: %w", record.ID, err)
	}
	return nil
}

// ListExecutions returns the most recent audit rows for a tool, newest
// first.
func (s *Store) ListExecutions(ctx context.Context, toolID string, limit int) ([]*engine.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool_id, user_id, organization_id, conversation_id,
		       input, output, status_code, error, error_details, hint, created_at
		FROM executions WHERE tool_id = ? ORDER BY created_at DESC LIMIT ?`, toolID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var records []*engine.ExecutionRecord
	for rows.Next() {
		var r engine.ExecutionRecord
		var input string
		var output, details sql.NullString
		if err := rows.Scan(&r.ID, &r.ToolID, &r.UserID, &r.OrganizationID, &r.ConversationID,
			&input, &output, &r.StatusCode, &r.Error, &details, &r.Hint, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		if err := json.Unmarshal([]byte(input), &r.Input); err != nil {
			return nil, fmt.Errorf("failed to decode execution input: %w", err)
		}
		if output.Valid {
			r.Output = json.RawMessage(output.String)
		}
		if details.Valid {
			r.ErrorDetails = json.RawMessage(details.String)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// PurgeExecutionsBefore deletes audit rows older than the cutoff and
// returns how many were removed.
func (s *Store) PurgeExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM executions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge executions: %w", err)
	}
	return result.RowsAffected()
}
