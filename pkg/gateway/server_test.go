package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halim/toolgate/pkg/engine"
	"github.com/halim/toolgate/pkg/invoke"
	"github.com/halim/toolgate/pkg/security"
	"github.com/halim/toolgate/pkg/tool"
)

type fakeTools struct {
	tools map[string]*tool.Definition
}

func (f *fakeTools) GetToolByID(ctx context.Context, id string) (*tool.Definition, error) {
	return f.tools[id], nil
}

func (f *fakeTools) ListTools(ctx context.Context) ([]*tool.Definition, error) {
	var defs []*tool.Definition
	for _, def := range f.tools {
		defs = append(defs, def)
	}
	return defs, nil
}

type fakeExecs struct{ records []*engine.ExecutionRecord }

func (f *fakeExecs) RecordExecution(ctx context.Context, record *engine.ExecutionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeExecs) ListExecutions(ctx context.Context, toolID string, limit int) ([]*engine.ExecutionRecord, error) {
	var records []*engine.ExecutionRecord
	for _, r := range f.records {
		if r.ToolID == toolID {
			records = append(records, r)
		}
	}
	return records, nil
}

type fakeLinks struct{}

func (fakeLinks) GetOrCreateUserToolLink(ctx context.Context, userID, organizationID, toolID string) error {
	return nil
}

func (fakeLinks) UpdateUserToolStatus(ctx context.Context, userID, organizationID, toolID, status string) error {
	return nil
}

type fakeSecrets struct{ values map[string]string }

func (f *fakeSecrets) GetSecret(ctx context.Context, key security.SecretKey) (string, error) {
	return f.values[key.Tag], nil
}

func newTestServer(t *testing.T, tools *fakeTools) *Server {
	t.Helper()
	execs := &fakeExecs{}
	eng, err := engine.New(engine.Options{
		Tools:      tools,
		Executions: execs,
		Links:      fakeLinks{},
		Resolver:   security.NewResolver(&fakeSecrets{values: map[string]string{}}, nil, zerolog.Nop()),
		Invoker:    invoke.NewInvoker(5*time.Second, zerolog.Nop()),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	s, err := NewServer(ServerOptions{}, eng, tools, execs, nil, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func searchTool(serverURL string) *tool.Definition {
	spec := fmt.Sprintf(`{
		"openapi": "3.0.0",
		"servers": [{"url": %q}],
		"paths": {
			"/search": {
				"get": {
					"parameters": [
						{"name": "q", "in": "query", "required": true, "schema": {"type": "string"}}
					]
				}
			}
		}
	}`, serverURL)
	return &tool.Definition{
		ID:              "t1",
		Name:            "Search",
		Description:     "Searches things",
		UtilityProvider: "searchco",
		OpenAPISpec:     json.RawMessage(spec),
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleListTools(t *testing.T) {
	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": searchTool("https://api.example.com")}}
	s := newTestServer(t, tools)

	rec := httptest.NewRecorder()
	s.handleListTools(rec, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tools []ToolSummary `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tools, 1)
	assert.Equal(t, "t1", body.Tools[0].ID)
	assert.Equal(t, "Search", body.Tools[0].Name)
}

func TestHandleGetToolIncludesInputSchema(t *testing.T) {
	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": searchTool("https://api.example.com")}}
	s := newTestServer(t, tools)

	req := httptest.NewRequest(http.MethodGet, "/v1/tools/t1", nil)
	req.SetPathValue("id", "t1")
	rec := httptest.NewRecorder()
	s.handleGetTool(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var detail ToolDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "GET", detail.Method)
	assert.Equal(t, "/search", detail.PathTemplate)
	props := detail.InputSchema["properties"].(map[string]any)
	assert.Contains(t, props, "q")
}

func TestHandleGetToolNotFound(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/tools/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	s.handleGetTool(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func invokeRequest(t *testing.T, toolID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/tools/"+toolID+"/invoke", strings.NewReader(body))
	req.SetPathValue("id", toolID)
	return req
}

func TestHandleInvokeSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": ["a"]}`))
	}))
	defer upstream.Close()

	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": searchTool(upstream.URL)}}
	s := newTestServer(t, tools)

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"user_id": "u1", "params": {"q": "widgets"}}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp InvokeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.JSONEq(t, `{"results": ["a"]}`, string(resp.Data))
}

func TestHandleInvokeValidationError(t *testing.T) {
	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": searchTool("https://api.example.com")}}
	s := newTestServer(t, tools)

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"user_id": "u1", "params": {}}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp InvokeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Kind)
}

func TestHandleInvokeSetupNeeded(t *testing.T) {
	def := searchTool("https://api.example.com")
	def.OpenAPISpec = json.RawMessage(`{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {"/search": {"get": {}}},
		"components": {"securitySchemes": {"api_key": {"type": "apiKey", "name": "X-API-Key"}}}
	}`)
	def.SecurityOption = "api_key"
	def.SecuritySecrets = tool.Secrets{Name: tool.TagAPIKey}
	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": def}}
	s := newTestServer(t, tools)

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"user_id": "u1"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp InvokeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "setup_needed", resp.Status)
	assert.NotNil(t, resp.Setup)
	assert.Nil(t, resp.Error)
}

func TestHandleListExecutions(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tools := &fakeTools{tools: map[string]*tool.Definition{"t1": searchTool(upstream.URL)}}
	s := newTestServer(t, tools)

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"user_id": "u1", "params": {"q": "x"}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/tools/t1/executions", nil)
	req.SetPathValue("id", "t1")
	rec = httptest.NewRecorder()
	s.handleListExecutions(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Executions []*engine.ExecutionRecord `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Executions, 1)
	assert.Equal(t, "t1", body.Executions[0].ToolID)
	assert.Equal(t, 200, body.Executions[0].StatusCode)
}

func TestHandleInvokeUnknownTool(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "nope", `{"user_id": "u1"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleInvokeRequiresUserID(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"params": {}}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInvokeRejectsBadBody(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInvokeRejectedDuringShutdown(t *testing.T) {
	s := newTestServer(t, &fakeTools{tools: map[string]*tool.Definition{}})
	s.isShuttingDown = true

	rec := httptest.NewRecorder()
	s.handleInvoke(rec, invokeRequest(t, "t1", `{"user_id": "u1"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
