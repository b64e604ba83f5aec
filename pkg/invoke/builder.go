package invoke

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/security"
)

// BuildError reports a request that could not be assembled from the
// validated parameters. Missing required path parameters land here only
// when validation failed to catch them upstream.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string {
	return "failed to build request: " + e.Reason
}

// OutboundRequest is a fully assembled upstream HTTP request.
type OutboundRequest struct {
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
	ContentType string
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// BuildRequest assembles the outbound request from the normalized
// endpoint, the validated parameter object, and the resolved credential
// slots.
func BuildRequest(ep *openapi.Endpoint, in *openapi.InputSchema, params map[string]any, res *security.Resolution, logger zerolog.Logger) (*OutboundRequest, error) {
	base := substituteServerURL(ep.Server, params, logger)

	path, err := substitutePath(ep, params)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	header := http.Header{}
	for _, p := range ep.Operation.Parameters {
		if p == nil || p.Ref != "" || p.In == "path" {
			continue
		}
		value, ok := params[p.Name]
		if !ok {
			continue
		}
		switch p.In {
		case "query":
			query.Set(p.Name, paramString(value))
		case "header":
			header.Set(p.Name, paramString(value))
		case "cookie":
			logger.Warn().Str("parameter", p.Name).Msg("Cookie parameters are unsupported, dropping")
		}
	}

	out := &OutboundRequest{
		Method: ep.Method,
		Header: header,
	}

	if in != nil && in.Body != nil {
		body, err := buildBody(in.Body, params)
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.ContentType = in.Body.MediaType
		header.Set("Content-Type", in.Body.MediaType)
	}

	if res != nil && res.Scheme != nil && res.Setup == nil {
		if err := injectCredentials(res, header, query); err != nil {
			return nil, err
		}
	}

	full := strings.TrimRight(base, "/") + path
	if encoded := query.Encode(); encoded != "" {
		full += "?" + encoded
	}
	out.URL = full
	return out, nil
}

// substituteServerURL replaces {variable} placeholders in the server URL
// with same-named validated parameters, falling back to the server
// variable's declared default. Unresolved placeholders are logged and
// left in place.
func substituteServerURL(server openapi.Server, params map[string]any, logger zerolog.Logger) string {
	return placeholderPattern.ReplaceAllStringFunc(server.URL, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := params[name]; ok {
			return paramString(value)
		}
		if v, ok := server.Variables[name]; ok && v.Default != "" {
			return v.Default
		}
		logger.Warn().Str("variable", name).Msg("Server URL variable unresolved")
		return token
	})
}

func substitutePath(ep *openapi.Endpoint, params map[string]any) (string, error) {
	path := ep.PathTemplate
	for _, p := range ep.Operation.Parameters {
		if p == nil || p.Ref != "" || p.In != "path" {
			continue
		}
		value, ok := params[p.Name]
		if !ok {
			if p.Required {
				return "", &BuildError{Reason: fmt.Sprintf("missing required path parameter %q", p.Name)}
			}
			continue
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(paramString(value)))
	}
	return path, nil
}

// buildBody projects the declared body properties out of the validated
// parameters, or passes the entire parameter object through when the
// body schema was not an object.
func buildBody(plan *openapi.BodyPlan, params map[string]any) ([]byte, error) {
	var payload any
	if plan.Passthrough {
		payload = params
	} else {
		body := make(map[string]any, len(plan.Properties))
		for _, name := range plan.Properties {
			if value, ok := params[name]; ok {
				body[name] = value
			}
		}
		payload = body
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &BuildError{Reason: fmt.Sprintf("failed to encode request body: %v", err)}
	}
	return data, nil
}

func injectCredentials(res *security.Resolution, header http.Header, query url.Values) error {
	switch s := res.Scheme.(type) {
	case security.APIKey:
		value := res.Slots[security.SlotKey{Scheme: s.SchemeName, Role: security.RoleKey}]
		switch s.In {
		case "query":
			query.Set(s.KeyName, value)
		default:
			header.Set(s.KeyName, value)
		}
	case security.Bearer:
		value := res.Slots[security.SlotKey{Scheme: s.SchemeName, Role: security.RoleToken}]
		header.Set("Authorization", "Bearer "+value)
	case security.OAuth2:
		value := res.Slots[security.SlotKey{Scheme: s.SchemeName, Role: security.RoleToken}]
		header.Set("Authorization", "Bearer "+value)
	case security.Basic:
		username := res.Slots[security.SlotKey{Scheme: s.SchemeName, Role: security.RoleUsername}]
		password := res.Slots[security.SlotKey{Scheme: s.SchemeName, Role: security.RolePassword}]
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		header.Set("Authorization", "Basic "+credentials)
	default:
		return &BuildError{Reason: fmt.Sprintf("no injection for scheme %q", res.Scheme.Name())}
	}
	return nil
}

// paramString renders a validated parameter value for use in a URL
// path, query string or header.
func paramString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
