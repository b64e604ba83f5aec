// Package security maps a tool's declared OpenAPI security scheme to
// named credential slots and resolves them through the secret store or
// the OAuth collaborator. Missing credentials surface as a SetupNeeded
// outcome rather than an error.
package security
