// Package openapi models the constrained OpenAPI 3.x subset used to
// describe tools: a single path with a single operation and a single
// server. It normalizes stored documents into endpoints and derives the
// flat input schema used for validation and documentation.
package openapi
