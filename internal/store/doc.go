// Package store implements the sqlite persistence collaborators the
// engine consumes: tool definitions, immutable execution records,
// per-user tool links, and the secret store.
package store
