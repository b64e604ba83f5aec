package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

// UpstreamError is a non-2xx response or a transport failure from the
// invoked API. StatusCode is zero for transport failures.
type UpstreamError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Result is a successful (2xx) upstream response. Body is the response
// body unmodified.
type Result struct {
	StatusCode int
	Body       []byte
}

// JSONBody returns the body as a JSON value, wrapping non-JSON payloads
// as a JSON string so callers can always embed the result.
func (r *Result) JSONBody() json.RawMessage {
	if json.Valid(r.Body) && len(bytes.TrimSpace(r.Body)) > 0 {
		return json.RawMessage(r.Body)
	}
	wrapped, err := json.Marshal(string(r.Body))
	if err != nil {
		return json.RawMessage(`""`)
	}
	return json.RawMessage(wrapped)
}

// Invoker performs the outbound HTTP call. One attempt per invocation;
// retry policy, if any, belongs to the caller.
type Invoker struct {
	client *http.Client
	logger zerolog.Logger
}

// NewInvoker creates an invoker with the given upstream timeout.
func NewInvoker(timeout time.Duration, logger zerolog.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Do issues the request and maps the transport outcome. A timeout is a
// transport failure like any other; the pipeline never hangs on it.
func (iv *Invoker) Do(ctx context.Context, out *OutboundRequest) (*Result, error) {
	var body io.Reader
	if len(out.Body) > 0 {
		body = bytes.NewReader(out.Body)
	}

	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL, body)
	if err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("Tool Execution Failed: %v", err)}
	}
	for key, values := range out.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := iv.client.Do(req)
	if err != nil {
		iv.logger.Error().
			Str("method", out.Method).
			Str("url", out.URL).
			Err(err).
			Msg("Upstream call failed")
		return nil, &UpstreamError{Message: fmt.Sprintf("Tool Execution Failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("Tool Execution Failed: %v", err)}
	}

	iv.logger.Debug().
		Str("method", out.Method).
		Str("url", out.URL).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Upstream call completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{StatusCode: resp.StatusCode, Body: respBody}, nil
	}

	return nil, &UpstreamError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("External API Error (%d): %s", resp.StatusCode, upstreamMessage(resp.StatusCode, respBody)),
		Details:    errorDetails(respBody),
	}
}

// upstreamMessage extracts a human-readable message from a structured
// JSON error body, preferring body.error as a string, then
// body.error.message, then the raw status text.
func upstreamMessage(statusCode int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch v := parsed["error"].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := parsed["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", statusCode)
}

func errorDetails(body []byte) json.RawMessage {
	if json.Valid(body) && len(bytes.TrimSpace(body)) > 0 {
		return json.RawMessage(body)
	}
	return nil
}
