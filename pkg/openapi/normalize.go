package openapi

import (
	"fmt"
)

// InvalidSpecError reports a document that violates the
// single-path/single-method/single-server convention.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid tool spec: %s", e.Reason)
}

// Endpoint is the single method/path pair a normalized tool document
// exposes, with parameter and request-body $refs resolved one level
// deep.
type Endpoint struct {
	Method       string
	PathTemplate string
	Server       Server
	Operation    *Operation
}

// Normalize enforces the constrained-document convention: exactly one
// path, exactly one of the eight standard HTTP methods on it, and
// exactly one server with a non-root URL. On success it returns the
// endpoint with local $refs under components.parameters,
// components.requestBodies and components.schemas resolved one level
// deep. Refs that point at missing components are left in place; the
// schema deriver degrades softly on them.
func Normalize(doc *Document) (*Endpoint, error) {
	if doc == nil {
		return nil, &InvalidSpecError{Reason: "document is empty"}
	}
	if len(doc.Paths) != 1 {
		return nil, &InvalidSpecError{Reason: fmt.Sprintf("expected exactly one path, got %d", len(doc.Paths))}
	}

	var pathTemplate string
	var item PathItem
	for path, pi := range doc.Paths {
		pathTemplate = path
		item = pi
	}

	ops := item.Operations()
	if len(ops) != 1 {
		return nil, &InvalidSpecError{Reason: fmt.Sprintf("expected exactly one operation on %s, got %d", pathTemplate, len(ops))}
	}

	var method string
	var op *Operation
	for m, o := range ops {
		method = m
		op = o
	}

	if len(doc.Servers) != 1 {
		return nil, &InvalidSpecError{Reason: fmt.Sprintf("expected exactly one server, got %d", len(doc.Servers))}
	}
	server := doc.Servers[0]
	if server.URL == "" || server.URL == "/" {
		return nil, &InvalidSpecError{Reason: "server URL must not be root"}
	}

	return &Endpoint{
		Method:       method,
		PathTemplate: pathTemplate,
		Server:       server,
		Operation:    resolveOperation(doc, op),
	}, nil
}

// resolveOperation resolves the operation's parameter and request-body
// refs where possible, leaving unresolvable refs untouched.
func resolveOperation(doc *Document, op *Operation) *Operation {
	resolved := *op

	if len(op.Parameters) > 0 {
		resolved.Parameters = make([]*Parameter, 0, len(op.Parameters))
		for _, p := range op.Parameters {
			rp, err := doc.ResolveParameter(p)
			if err != nil {
				rp = p
			}
			resolved.Parameters = append(resolved.Parameters, rp)
		}
	}

	if op.RequestBody != nil {
		rb, err := doc.ResolveRequestBody(op.RequestBody)
		if err != nil {
			rb = op.RequestBody
		}
		resolved.RequestBody = rb
	}

	return &resolved
}
