package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/halim/toolgate/pkg/invoke"
	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/security"
	"github.com/halim/toolgate/pkg/tool"
	"github.com/halim/toolgate/pkg/validate"
)

// Observer receives invocation telemetry.
type Observer interface {
	ObserveInvocation(toolID string, status Status, duration time.Duration)
	ObserveUpstreamStatus(statusCode int)
}

// InvocationRequest is one tool call.
type InvocationRequest struct {
	ToolID         string
	UserID         string
	OrganizationID string
	ConversationID string
	Params         map[string]any
}

// Engine sequences normalization, validation, credential resolution and
// invocation into one stateless pass per call. The only side effect
// beyond the upstream call is the audit record every terminal state
// writes.
type Engine struct {
	tools      ToolStore
	executions ExecutionStore
	links      LinkStore
	resolver   *security.Resolver
	invoker    *invoke.Invoker
	observer   Observer
	logger     zerolog.Logger
}

// Options configures an Engine.
type Options struct {
	Tools      ToolStore
	Executions ExecutionStore
	Links      LinkStore
	Resolver   *security.Resolver
	Invoker    *invoke.Invoker
	Observer   Observer // optional
	Logger     zerolog.Logger
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Tools == nil {
		return nil, fmt.Errorf("tool store is required")
	}
	if opts.Executions == nil {
		return nil, fmt.Errorf("execution store is required")
	}
	if opts.Links == nil {
		return nil, fmt.Errorf("link store is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("credential resolver is required")
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	return &Engine{
		tools:      opts.Tools,
		executions: opts.Executions,
		links:      opts.Links,
		resolver:   opts.Resolver,
		invoker:    opts.Invoker,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}, nil
}

// Execute runs one invocation through the pipeline and returns its
// terminal outcome. Every terminal state writes exactly one execution
// record before returning, so the audit trail is complete even for
// calls that never reach the network.
func (e *Engine) Execute(ctx context.Context, req InvocationRequest) *Outcome {
	start := time.Now()

	outcome, def, validated := e.run(ctx, req)

	e.audit(ctx, req, validated, outcome)
	e.updateLink(ctx, req, def, outcome)

	if e.observer != nil {
		e.observer.ObserveInvocation(req.ToolID, outcome.Status, time.Since(start))
		if outcome.Status == StatusSucceeded || (outcome.Err != nil && outcome.Err.Kind == KindUpstream) {
			e.observer.ObserveUpstreamStatus(outcome.StatusCode)
		}
	}

	return outcome
}

// run executes the pipeline stages and returns the terminal outcome
// along with the loaded definition and validated input for auditing.
func (e *Engine) run(ctx context.Context, req InvocationRequest) (*Outcome, *tool.Definition, map[string]any) {
	def, err := e.tools.GetToolByID(ctx, req.ToolID)
	if err != nil {
		return failed(classify(fmt.Errorf("failed to load tool: %w", err))), nil, nil
	}
	if def == nil {
		return failed(&Error{Kind: KindOrchestration, Message: fmt.Sprintf("tool not found: %s", req.ToolID), StatusCode: 404}), nil, nil
	}

	doc, err := openapi.ParseDocument(def.OpenAPISpec)
	if err != nil {
		return failed(classify(&openapi.InvalidSpecError{Reason: err.Error()})), def, nil
	}

	ep, err := openapi.Normalize(doc)
	if err != nil {
		return failed(classify(err)), def, nil
	}

	in := openapi.DeriveInputSchema(doc, ep)

	validated, err := validate.Params(in.Schema, req.Params)
	if err != nil {
		return failed(classify(err)), def, nil
	}

	resolution, err := e.resolver.Resolve(ctx, def, doc, security.Caller{
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		return failed(classify(err)), def, validated
	}
	if resolution.Setup != nil {
		// Short-circuit before the request builder: no upstream call is
		// attempted when credentials are missing.
		return setupNeeded(resolution.Setup), def, validated
	}

	out, err := invoke.BuildRequest(ep, in, validated, resolution, e.logger)
	if err != nil {
		return failed(classify(err)), def, validated
	}

	result, err := e.invoker.Do(ctx, out)
	if err != nil {
		return failed(classify(err)), def, validated
	}

	return succeeded(result.StatusCode, result.JSONBody()), def, validated
}

// audit writes the single execution record for this invocation. A
// persistence failure here is logged and swallowed; it must never mask
// the outcome already computed.
func (e *Engine) audit(ctx context.Context, req InvocationRequest, validated map[string]any, outcome *Outcome) {
	record := &ExecutionRecord{
		ID:             uuid.NewString(),
		ToolID:         req.ToolID,
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		ConversationID: req.ConversationID,
		Input:          validated,
		StatusCode:     outcome.StatusCode,
		CreatedAt:      time.Now().UTC(),
	}
	if record.Input == nil {
		record.Input = req.Params
	}

	switch outcome.Status {
	case StatusSucceeded:
		record.Output = outcome.Result
	case StatusFailed:
		record.Error = outcome.Err.Message
		record.ErrorDetails = outcome.Err.Details
		record.Hint = outcome.Err.Hint
	}

	if err := e.executions.RecordExecution(ctx, record); err != nil {
		e.logger.Error().
			Str("tool", req.ToolID).
			Str("record", record.ID).
			Err(err).
			Msg("Failed to write execution record")
	}
}

// updateLink refreshes the caller's last-known tool status after the
// outcome is known. Last write wins across concurrent invocations.
func (e *Engine) updateLink(ctx context.Context, req InvocationRequest, def *tool.Definition, outcome *Outcome) {
	if def == nil {
		return
	}
	if err := e.links.GetOrCreateUserToolLink(ctx, req.UserID, req.OrganizationID, req.ToolID); err != nil {
		e.logger.Warn().Str("tool", req.ToolID).Err(err).Msg("Failed to ensure user tool link")
		return
	}

	status := LinkStatusUnset
	if outcome.Status == StatusSucceeded {
		status = LinkStatusActive
	}
	if err := e.links.UpdateUserToolStatus(ctx, req.UserID, req.OrganizationID, req.ToolID, status); err != nil {
		e.logger.Warn().Str("tool", req.ToolID).Err(err).Msg("Failed to update user tool status")
	}
}
