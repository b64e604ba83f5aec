// Package engine orchestrates tool invocations: it loads a stored tool
// definition, normalizes its OpenAPI document, validates caller
// parameters, resolves credentials, performs the upstream call, and
// records one audit row per terminal state. Each invocation is an
// independent, stateless pass.
package engine
