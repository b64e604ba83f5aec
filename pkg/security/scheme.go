package security

import (
	"fmt"

	"github.com/halim/toolgate/pkg/openapi"
)

// Role names the credential role a slot fills within a scheme.
type Role string

const (
	RoleKey      Role = "key"
	RoleToken    Role = "token"
	RoleUsername Role = "username"
	RolePassword Role = "password"
)

// SlotKey identifies a credential slot structurally, avoiding the
// stringly-typed scheme-name concatenation a flat key would need.
type SlotKey struct {
	Scheme string
	Role   Role
}

// Scheme is the closed set of supported security scheme variants. Each
// variant carries only the fields its resolution and injection need.
type Scheme interface {
	// Name returns the scheme's key under components.securitySchemes.
	Name() string

	isScheme()
}

// APIKey transmits a single secret in a header or query parameter.
type APIKey struct {
	SchemeName string
	// KeyName is the wire-level header or query key, from the scheme's
	// name field.
	KeyName string
	// In is "header" or "query".
	In string
}

// Bearer transmits a single secret as an Authorization bearer token.
type Bearer struct {
	SchemeName string
}

// Basic transmits username and password via HTTP basic auth. A tool
// that declares no password tag has no password, not a missing one.
type Basic struct {
	SchemeName string
}

// OAuth2 defers to the external OAuth collaborator for an access token.
type OAuth2 struct {
	SchemeName string
	Scopes     []string
}

func (s APIKey) Name() string { return s.SchemeName }
func (s Bearer) Name() string { return s.SchemeName }
func (s Basic) Name() string  { return s.SchemeName }
func (s OAuth2) Name() string { return s.SchemeName }

func (APIKey) isScheme() {}
func (Bearer) isScheme() {}
func (Basic) isScheme()  {}
func (OAuth2) isScheme() {}

// UnsupportedSchemeError reports a scheme type or combination the
// engine does not implement. It is a configuration error, not a
// runtime setup request.
type UnsupportedSchemeError struct {
	Type   string
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	if e.Scheme != "" {
		return fmt.Sprintf("unsupported security scheme type %q with scheme %q", e.Type, e.Scheme)
	}
	return fmt.Sprintf("unsupported security scheme type %q", e.Type)
}

// MisconfiguredToolError reports a tool whose security option does not
// line up with its spec.
type MisconfiguredToolError struct {
	Reason string
}

func (e *MisconfiguredToolError) Error() string {
	return "misconfigured tool: " + e.Reason
}

// ParseScheme converts a raw securitySchemes entry into its typed
// variant.
func ParseScheme(name string, raw *openapi.SecurityScheme) (Scheme, error) {
	switch raw.Type {
	case "apiKey":
		in := raw.In
		if in == "" {
			in = "header"
		}
		return APIKey{SchemeName: name, KeyName: raw.Name, In: in}, nil
	case "http":
		switch raw.Scheme {
		case "bearer":
			return Bearer{SchemeName: name}, nil
		case "basic":
			return Basic{SchemeName: name}, nil
		default:
			return nil, &UnsupportedSchemeError{Type: raw.Type, Scheme: raw.Scheme}
		}
	case "oauth2":
		return OAuth2{SchemeName: name, Scopes: raw.Scopes()}, nil
	default:
		return nil, &UnsupportedSchemeError{Type: raw.Type}
	}
}
