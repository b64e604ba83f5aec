package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/halim/toolgate/pkg/invoke"
	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/security"
	"github.com/halim/toolgate/pkg/validate"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindInvalidSpec marks a tool whose spec violates the
	// single-path/single-method/single-server convention.
	KindInvalidSpec Kind = "invalid_spec"
	// KindMisconfiguredTool marks a security option that references a
	// missing or ref'd scheme, or a scheme without its secret tags.
	KindMisconfiguredTool Kind = "misconfigured_tool"
	// KindUnsupportedScheme marks a scheme type the engine does not
	// implement.
	KindUnsupportedScheme Kind = "unsupported_scheme"
	// KindValidation marks caller input that fails the derived schema.
	KindValidation Kind = "validation_error"
	// KindUpstream marks a non-2xx or transport failure from the
	// invoked API.
	KindUpstream Kind = "upstream_error"
	// KindOrchestration marks an unexpected failure anywhere else in
	// the pipeline.
	KindOrchestration Kind = "orchestration_error"
)

// Error is a classified pipeline failure surfaced to the caller.
type Error struct {
	Kind    Kind            `json:"kind"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
	Hint    string          `json:"hint,omitempty"`

	// StatusCode is the HTTP-equivalent status recorded with the
	// execution.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// classify maps component errors onto the engine taxonomy with an
// HTTP-equivalent status code for the audit record.
func classify(err error) *Error {
	var invalidSpec *openapi.InvalidSpecError
	if errors.As(err, &invalidSpec) {
		return &Error{Kind: KindInvalidSpec, Message: invalidSpec.Error(), StatusCode: 500,
			Hint: "The tool's OpenAPI document must declare exactly one path, one method, and one server."}
	}

	var misconfigured *security.MisconfiguredToolError
	if errors.As(err, &misconfigured) {
		return &Error{Kind: KindMisconfiguredTool, Message: misconfigured.Error(), StatusCode: 500}
	}

	var unsupported *security.UnsupportedSchemeError
	if errors.As(err, &unsupported) {
		return &Error{Kind: KindUnsupportedScheme, Message: unsupported.Error(), StatusCode: 500}
	}

	var validation *validate.Error
	if errors.As(err, &validation) {
		details, _ := json.Marshal(validation.Fields)
		return &Error{Kind: KindValidation, Message: "parameter validation failed", Details: details, StatusCode: 400,
			Hint: "Fix the listed parameters and call the tool again."}
	}

	var upstream *invoke.UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.StatusCode
		if status == 0 {
			// Transport failure with no response.
			status = 502
		}
		return &Error{Kind: KindUpstream, Message: upstream.Message, Details: upstream.Details, StatusCode: status}
	}

	var build *invoke.BuildError
	if errors.As(err, &build) {
		return &Error{Kind: KindOrchestration, Message: build.Error(), StatusCode: 500}
	}

	return &Error{Kind: KindOrchestration, Message: err.Error(), StatusCode: 500}
}
