package gateway

import (
	"encoding/json"
	"time"
)

// ServerOptions configures the gateway HTTP server.
type ServerOptions struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// InvokeRequest is the body of an invocation call.
type InvokeRequest struct {
	UserID         string         `json:"user_id"`
	OrganizationID string         `json:"organization_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Params         map[string]any `json:"params"`
}

// InvokeResponse is the three-way invocation envelope. Status is one of
// "success", "setup_needed" or "error".
type InvokeResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Setup  any             `json:"setup,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody carries error details in the envelope.
type ErrorBody struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
	Hint    string          `json:"hint,omitempty"`
}

// ToolSummary is the list-view projection of a tool definition.
type ToolSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	UtilityProvider string `json:"utility_provider,omitempty"`
	SecurityOption  string `json:"security_option,omitempty"`
	IsVerified      bool   `json:"is_verified"`
}

// ToolDetail is the single-tool projection: the summary plus the
// derived input schema callers must satisfy.
type ToolDetail struct {
	ToolSummary
	InputSchema  map[string]any `json:"input_schema,omitempty"`
	Method       string         `json:"method,omitempty"`
	PathTemplate string         `json:"path_template,omitempty"`
}
