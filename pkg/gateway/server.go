// Package gateway exposes the tool engine over HTTP: tool listing,
// tool detail with the derived input schema, and the invocation
// endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/halim/toolgate/pkg/engine"
	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/tool"
)

// ToolReader is the slice of the tool store the gateway needs.
type ToolReader interface {
	GetToolByID(ctx context.Context, id string) (*tool.Definition, error)
	ListTools(ctx context.Context) ([]*tool.Definition, error)
}

// ExecutionReader exposes the audit trail. Optional; without it the
// executions endpoint is not registered.
type ExecutionReader interface {
	ListExecutions(ctx context.Context, toolID string, limit int) ([]*engine.ExecutionRecord, error)
}

// Server is the gateway HTTP server.
type Server struct {
	options        ServerOptions
	server         *http.Server
	engine         *engine.Engine
	tools          ToolReader
	executions     ExecutionReader
	metricsHandler http.Handler
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new gateway server.
func NewServer(options ServerOptions, eng *engine.Engine, tools ToolReader, executions ExecutionReader, metricsHandler http.Handler, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3030
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 30 * time.Second
	}

	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool reader is required")
	}

	return &Server{
		options:        options,
		engine:         eng,
		tools:          tools,
		executions:     executions,
		metricsHandler: metricsHandler,
		logger:         logger,
		startTime:      time.Now(),
	}, nil
}

// Start starts the gateway server. It blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/tools", s.handleListTools)
	mux.HandleFunc("GET /v1/tools/{id}", s.handleGetTool)
	mux.HandleFunc("POST /v1/tools/{id}/invoke", s.handleInvoke)

	if s.executions != nil {
		mux.HandleFunc("GET /v1/tools/{id}/executions", s.handleListExecutions)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting gateway server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	return nil
}

// Stop gracefully stops the gateway server.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(s.options.ShutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown gateway server: %w", err)
		}
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleListTools returns summaries of every registered tool.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs, err := s.tools.ListTools(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list tools")
		s.writeError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}

	summaries := make([]ToolSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, summarize(def))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tools": summaries})
}

// handleGetTool returns one tool plus the input schema callers must
// satisfy. Schema derivation failures degrade to an empty schema rather
// than failing the read.
func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	def, err := s.tools.GetToolByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load tool")
		s.writeError(w, http.StatusInternalServerError, "failed to load tool")
		return
	}
	if def == nil {
		s.writeError(w, http.StatusNotFound, "tool not found")
		return
	}

	detail := ToolDetail{ToolSummary: summarize(def)}
	if doc, err := openapi.ParseDocument(def.OpenAPISpec); err == nil {
		if ep, err := openapi.Normalize(doc); err == nil {
			detail.Method = ep.Method
			detail.PathTemplate = ep.PathTemplate
			detail.InputSchema = openapi.DeriveInputSchema(doc, ep).Schema
		}
	}

	s.writeJSON(w, http.StatusOK, detail)
}

// handleListExecutions returns the most recent audit records for a
// tool, newest first.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := s.executions.ListExecutions(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list executions")
		s.writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}
	if records == nil {
		records = []*engine.ExecutionRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"executions": records})
}

// handleInvoke runs one tool invocation and maps the terminal outcome
// onto the response envelope.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	s.shutdownMu.RUnlock()

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	start := time.Now()
	toolID := r.PathValue("id")

	var body InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	outcome := s.engine.Execute(r.Context(), engine.InvocationRequest{
		ToolID:         toolID,
		UserID:         body.UserID,
		OrganizationID: body.OrganizationID,
		ConversationID: body.ConversationID,
		Params:         body.Params,
	})

	s.logger.Info().
		Str("tool", toolID).
		Str("status", string(outcome.Status)).
		Int("code", outcome.StatusCode).
		Int64("duration", time.Since(start).Milliseconds()).
		Msg("Tool invocation completed")

	switch outcome.Status {
	case engine.StatusSucceeded:
		s.writeJSON(w, outcome.StatusCode, InvokeResponse{
			Status: "success",
			Data:   outcome.Result,
		})
	case engine.StatusSetupNeeded:
		s.writeJSON(w, outcome.StatusCode, InvokeResponse{
			Status: "setup_needed",
			Setup:  outcome.Setup,
		})
	default:
		s.writeJSON(w, outcome.StatusCode, InvokeResponse{
			Status: "error",
			Error: &ErrorBody{
				Kind:    string(outcome.Err.Kind),
				Message: outcome.Err.Message,
				Details: outcome.Err.Details,
				Hint:    outcome.Err.Hint,
			},
		})
	}
}

func summarize(def *tool.Definition) ToolSummary {
	return ToolSummary{
		ID:              def.ID,
		Name:            def.Name,
		Description:     def.Description,
		UtilityProvider: def.UtilityProvider,
		SecurityOption:  def.SecurityOption,
		IsVerified:      def.IsVerified,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, InvokeResponse{
		Status: "error",
		Error:  &ErrorBody{Kind: "orchestration_error", Message: message},
	})
}
