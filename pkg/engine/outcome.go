package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/halim/toolgate/pkg/security"
	"github.com/halim/toolgate/pkg/tool"
)

// Status is the terminal state of one invocation.
type Status string

const (
	StatusSucceeded   Status = "succeeded"
	StatusSetupNeeded Status = "setup_needed"
	StatusFailed      Status = "failed"
)

// Outcome is the terminal-state value of one pipeline pass, constructed
// once per branch and never mutated. Exactly one of Result, Setup, or
// Err is populated, matching Status.
type Outcome struct {
	Status     Status                `json:"status"`
	StatusCode int                   `json:"status_code"`
	Result     json.RawMessage       `json:"result,omitempty"`
	Setup      *security.SetupNeeded `json:"setup,omitempty"`
	Err        *Error                `json:"error,omitempty"`
}

func succeeded(statusCode int, result json.RawMessage) *Outcome {
	return &Outcome{Status: StatusSucceeded, StatusCode: statusCode, Result: result}
}

// setupNeeded is a valid terminal outcome, not a failure: its audit
// record carries a 200.
func setupNeeded(setup *security.SetupNeeded) *Outcome {
	return &Outcome{Status: StatusSetupNeeded, StatusCode: 200, Setup: setup}
}

func failed(err *Error) *Outcome {
	return &Outcome{Status: StatusFailed, StatusCode: err.StatusCode, Err: err}
}

// ExecutionRecord is the immutable audit row written once per
// invocation at every terminal state.
type ExecutionRecord struct {
	ID             string          `json:"id"`
	ToolID         string          `json:"tool_id"`
	UserID         string          `json:"user_id"`
	OrganizationID string          `json:"organization_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Input          map[string]any  `json:"input,omitempty"`
	Output         json.RawMessage `json:"output,omitempty"`
	StatusCode     int             `json:"status_code"`
	Error          string          `json:"error,omitempty"`
	ErrorDetails   json.RawMessage `json:"error_details,omitempty"`
	Hint           string          `json:"hint,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Link status values for a user's last known tool state. Non-critical
// cached status; last write wins across concurrent invocations.
const (
	LinkStatusUnset   = "unset"
	LinkStatusActive  = "active"
	LinkStatusDeleted = "deleted"
)

// ToolStore reads registered tool definitions.
type ToolStore interface {
	GetToolByID(ctx context.Context, id string) (*tool.Definition, error)
}

// ExecutionStore persists audit records.
type ExecutionStore interface {
	RecordExecution(ctx context.Context, record *ExecutionRecord) error
}

// LinkStore maintains the per-user tool status record.
type LinkStore interface {
	GetOrCreateUserToolLink(ctx context.Context, userID, organizationID, toolID string) error
	UpdateUserToolStatus(ctx context.Context, userID, organizationID, toolID, status string) error
}
