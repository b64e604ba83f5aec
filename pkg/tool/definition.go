package tool

import (
	"encoding/json"
	"time"
)

// Secret type tags drawn from the closed vocabulary stored with a tool.
// A tag identifies what kind of secret a credential slot needs; the
// secret value itself lives in the secret store, never on the tool.
const (
	TagAPIKey   = "api key"
	TagToken    = "token"
	TagUsername = "username"
	TagPassword = "password"
)

// Secrets maps credential roles to secret type tags. Which roles are
// required depends on the tool's security scheme: apiKey and bearer
// need Name, basic needs Username and optionally Password.
type Secrets struct {
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Definition is a registered tool: a single-operation third-party HTTP
// endpoint described by a constrained OpenAPI document.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// UtilityProvider is a lowercase tag identifying the external API
	// family, used as the namespace for secret lookups.
	UtilityProvider string `json:"utility_provider"`

	// OpenAPISpec is the raw OpenAPI 3.x document, constrained to one
	// path, one method, and one server.
	OpenAPISpec json.RawMessage `json:"openapi_specification"`

	// SecurityOption names the chosen scheme under
	// components.securitySchemes, or is empty for unauthenticated tools.
	SecurityOption  string  `json:"security_option,omitempty"`
	SecuritySecrets Secrets `json:"security_secrets,omitempty"`

	IsVerified            bool      `json:"is_verified"`
	CreatorUserID         string    `json:"creator_user_id,omitempty"`
	CreatorOrganizationID string    `json:"creator_organization_id,omitempty"`
	CreatedAt             time.Time `json:"created_at,omitempty"`
	UpdatedAt             time.Time `json:"updated_at,omitempty"`
}

// Authenticated reports whether the tool declares a security scheme.
func (d *Definition) Authenticated() bool {
	return d.SecurityOption != ""
}
