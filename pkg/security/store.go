package security

import (
	"context"
	"strings"
)

// SecretScope partitions secret storage by owner.
const (
	ScopeUser         = "user"
	ScopeOrganization = "organization"
)

// SecretKey is the deterministic composite key a secret is stored
// under.
type SecretKey struct {
	Scope          string
	UserID         string
	OrganizationID string
	Provider       string
	Tag            string
}

// String renders the composite key in its canonical colon-joined form.
func (k SecretKey) String() string {
	return strings.Join([]string{k.Scope, k.OrganizationID, k.UserID, k.Provider, k.Tag}, ":")
}

// SecretStore is the external secret storage backend. GetSecret returns
// an empty string when no secret is stored under the key.
type SecretStore interface {
	GetSecret(ctx context.Context, key SecretKey) (string, error)
}

// AuthStatus is the OAuth collaborator's answer for a caller/provider
// pair: either an access token, or the URL the caller must visit first.
type AuthStatus struct {
	HasAuth     bool
	AccessToken string
	AuthURL     string
}

// OAuthChecker is the external OAuth-token collaborator.
type OAuthChecker interface {
	CheckAuth(ctx context.Context, userID, organizationID, provider string, scopes []string) (AuthStatus, error)
}
