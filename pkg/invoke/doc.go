// Package invoke assembles the outbound HTTP request for a tool
// invocation from validated parameters and resolved credentials, issues
// the single upstream call, and maps the transport outcome into typed
// results.
package invoke
