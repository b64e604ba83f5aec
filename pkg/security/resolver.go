package security

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/tool"
)

// SetupNeeded is the non-error terminal outcome meaning the caller must
// supply one or more secrets, or complete an authorization action,
// before the tool can run.
type SetupNeeded struct {
	Provider             string   `json:"provider"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	RequiredSecretInputs []string `json:"required_secret_inputs"`
	AuthURL              string   `json:"auth_url,omitempty"`
}

// Caller identifies who is invoking a tool.
type Caller struct {
	UserID         string
	OrganizationID string
}

// Resolution is the outcome of resolving a tool's security scheme.
// Exactly one of three states holds: no credentials needed (Scheme is
// nil), setup needed (Setup is non-nil), or resolved slot values ready
// for request building.
type Resolution struct {
	Scheme Scheme
	Slots  map[SlotKey]string
	Setup  *SetupNeeded
}

// Resolver maps a tool's declared security scheme to credential slots
// and resolves each slot through the secret store or the OAuth
// collaborator. Each invocation re-resolves from scratch; freshness is
// preferred over latency here.
type Resolver struct {
	secrets SecretStore
	oauth   OAuthChecker
	logger  zerolog.Logger
}

// NewResolver creates a resolver. The OAuth checker may be nil when no
// oauth2 tools are registered.
func NewResolver(secrets SecretStore, oauth OAuthChecker, logger zerolog.Logger) *Resolver {
	return &Resolver{secrets: secrets, oauth: oauth, logger: logger}
}

// slotRequest binds a slot to the secret-type tag that resolves it.
type slotRequest struct {
	key SlotKey
	tag string
}

// Resolve resolves the tool's credentials for the caller. Tools without
// a security option resolve immediately to "no credentials needed".
// Missing secrets yield a SetupNeeded resolution, never an error;
// structural misconfiguration of the scheme itself yields a typed
// error or, when the caller can do nothing about it, a SetupNeeded
// with no required inputs and contact-admin copy.
func (r *Resolver) Resolve(ctx context.Context, def *tool.Definition, doc *openapi.Document, caller Caller) (*Resolution, error) {
	if !def.Authenticated() {
		return &Resolution{}, nil
	}

	raw, ok := doc.SecurityScheme(def.SecurityOption)
	if !ok {
		return nil, &MisconfiguredToolError{Reason: fmt.Sprintf("security option %q not found in spec", def.SecurityOption)}
	}
	if raw.Ref != "" {
		return nil, &MisconfiguredToolError{Reason: fmt.Sprintf("security scheme %q is a $ref", def.SecurityOption)}
	}

	scheme, err := ParseScheme(def.SecurityOption, raw)
	if err != nil {
		return nil, err
	}

	slots := make(map[SlotKey]string)

	if o, ok := scheme.(OAuth2); ok {
		status, err := r.checkOAuth(ctx, def, caller, o)
		if err != nil {
			return nil, err
		}
		if !status.HasAuth {
			return &Resolution{Scheme: scheme, Setup: &SetupNeeded{
				Provider:             def.UtilityProvider,
				Title:                fmt.Sprintf("Authorize %s", def.Name),
				Description:          fmt.Sprintf("Complete authorization with %s before using this tool.", def.UtilityProvider),
				RequiredSecretInputs: []string{},
				AuthURL:              status.AuthURL,
			}}, nil
		}
		slots[SlotKey{Scheme: o.SchemeName, Role: RoleToken}] = status.AccessToken
		return &Resolution{Scheme: scheme, Slots: slots}, nil
	}

	requests, structuralErr := slotRequests(scheme, def.SecuritySecrets)
	if structuralErr != nil {
		// The tool's stored secret-type tags do not cover what the
		// scheme needs. The caller cannot fix this by supplying
		// secrets, so it must not read as a callable action item.
		r.logger.Warn().
			Str("tool", def.ID).
			Str("scheme", def.SecurityOption).
			Err(structuralErr).
			Msg("Security scheme misconfigured, returning empty setup request")
		return &Resolution{Scheme: scheme, Setup: &SetupNeeded{
			Provider:             def.UtilityProvider,
			Title:                fmt.Sprintf("%s is unavailable", def.Name),
			Description:          "This tool's credentials are misconfigured. Contact the tool administrator.",
			RequiredSecretInputs: []string{},
		}}, nil
	}

	var missing []string
	for _, req := range requests {
		value, err := r.lookup(ctx, def, caller, req.tag)
		if err != nil || value == "" {
			if err != nil {
				r.logger.Warn().
					Str("tool", def.ID).
					Str("tag", req.tag).
					Err(err).
					Msg("Secret lookup failed")
			}
			missing = append(missing, req.tag)
			continue
		}
		slots[req.key] = value
	}

	// For basic auth the username is load-bearing: without it a resolved
	// password is useless, so the password tag is re-requested alongside.
	if b, ok := scheme.(Basic); ok {
		username := SlotKey{Scheme: b.SchemeName, Role: RoleUsername}
		if _, ok := slots[username]; !ok && def.SecuritySecrets.Password != "" {
			missing = append(missing, def.SecuritySecrets.Password)
		}
	}

	if len(missing) > 0 {
		return &Resolution{Scheme: scheme, Setup: &SetupNeeded{
			Provider:             def.UtilityProvider,
			Title:                fmt.Sprintf("Set up %s", def.Name),
			Description:          fmt.Sprintf("Provide the missing credentials for %s to use this tool.", def.UtilityProvider),
			RequiredSecretInputs: dedupe(missing),
		}}, nil
	}

	return &Resolution{Scheme: scheme, Slots: slots}, nil
}

// slotRequests derives the credential slots a scheme requires, bound to
// the tool's secret-type tags.
func slotRequests(scheme Scheme, secrets tool.Secrets) ([]slotRequest, error) {
	switch s := scheme.(type) {
	case APIKey:
		if s.KeyName == "" {
			return nil, fmt.Errorf("apiKey scheme %q has no name field", s.SchemeName)
		}
		if secrets.Name == "" {
			return nil, fmt.Errorf("apiKey scheme %q has no secret type tag", s.SchemeName)
		}
		return []slotRequest{{key: SlotKey{Scheme: s.SchemeName, Role: RoleKey}, tag: secrets.Name}}, nil
	case Bearer:
		if secrets.Name == "" {
			return nil, fmt.Errorf("bearer scheme %q has no secret type tag", s.SchemeName)
		}
		return []slotRequest{{key: SlotKey{Scheme: s.SchemeName, Role: RoleToken}, tag: secrets.Name}}, nil
	case Basic:
		if secrets.Username == "" {
			return nil, fmt.Errorf("basic scheme %q has no username secret type tag", s.SchemeName)
		}
		requests := []slotRequest{{key: SlotKey{Scheme: s.SchemeName, Role: RoleUsername}, tag: secrets.Username}}
		// An undeclared password tag means the tool has no password. A
		// declared one must resolve like any other slot.
		if secrets.Password != "" {
			requests = append(requests, slotRequest{key: SlotKey{Scheme: s.SchemeName, Role: RolePassword}, tag: secrets.Password})
		}
		return requests, nil
	default:
		return nil, fmt.Errorf("no slot mapping for scheme %q", scheme.Name())
	}
}

func (r *Resolver) checkOAuth(ctx context.Context, def *tool.Definition, caller Caller, scheme OAuth2) (AuthStatus, error) {
	if r.oauth == nil {
		return AuthStatus{}, &MisconfiguredToolError{Reason: "oauth2 scheme declared but no OAuth collaborator configured"}
	}
	status, err := r.oauth.CheckAuth(ctx, caller.UserID, caller.OrganizationID, def.UtilityProvider, scheme.Scopes)
	if err != nil {
		return AuthStatus{}, fmt.Errorf("oauth status check failed: %w", err)
	}
	return status, nil
}

func (r *Resolver) lookup(ctx context.Context, def *tool.Definition, caller Caller, tag string) (string, error) {
	return r.secrets.GetSecret(ctx, SecretKey{
		Scope:          ScopeUser,
		UserID:         caller.UserID,
		OrganizationID: caller.OrganizationID,
		Provider:       def.UtilityProvider,
		Tag:            tag,
	})
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
