package openapi

import (
	"fmt"
	"strings"
)

// Component namespace prefixes for local $refs.
const (
	refSchemas         = "#/components/schemas/"
	refParameters      = "#/components/parameters/"
	refRequestBodies   = "#/components/requestBodies/"
	refSecuritySchemes = "#/components/securitySchemes/"
)

// UnresolvedRefError reports a $ref that could not be resolved against
// the document's components.
type UnresolvedRefError struct {
	Ref string
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("unresolved $ref %q", e.Ref)
}

func refName(ref, prefix string) (string, bool) {
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, prefix)
	return name, name != "" && !strings.Contains(name, "/")
}

// ResolveSchema resolves a schema $ref one level deep. Non-ref schemas
// are returned unchanged. Cyclic refs are not supported; tool specs are
// hand-authored and flat.
func (d *Document) ResolveSchema(s *Schema) (*Schema, error) {
	if s == nil || s.Ref == "" {
		return s, nil
	}
	name, ok := refName(s.Ref, refSchemas)
	if !ok || d.Components == nil {
		return nil, &UnresolvedRefError{Ref: s.Ref}
	}
	target, found := d.Components.Schemas[name]
	if !found || target == nil {
		return nil, &UnresolvedRefError{Ref: s.Ref}
	}
	return target, nil
}

// ResolveParameter resolves a parameter $ref one level deep, including
// the parameter's own schema ref.
func (d *Document) ResolveParameter(p *Parameter) (*Parameter, error) {
	if p == nil {
		return nil, nil
	}
	if p.Ref != "" {
		name, ok := refName(p.Ref, refParameters)
		if !ok || d.Components == nil {
			return nil, &UnresolvedRefError{Ref: p.Ref}
		}
		target, found := d.Components.Parameters[name]
		if !found || target == nil {
			return nil, &UnresolvedRefError{Ref: p.Ref}
		}
		p = target
	}
	if p.Schema != nil && p.Schema.Ref != "" {
		schema, err := d.ResolveSchema(p.Schema)
		if err != nil {
			return nil, err
		}
		resolved := *p
		resolved.Schema = schema
		return &resolved, nil
	}
	return p, nil
}

// ResolveRequestBody resolves a request-body $ref one level deep,
// including the media-type schema refs it carries.
func (d *Document) ResolveRequestBody(rb *RequestBody) (*RequestBody, error) {
	if rb == nil {
		return nil, nil
	}
	if rb.Ref != "" {
		name, ok := refName(rb.Ref, refRequestBodies)
		if !ok || d.Components == nil {
			return nil, &UnresolvedRefError{Ref: rb.Ref}
		}
		target, found := d.Components.RequestBodies[name]
		if !found || target == nil {
			return nil, &UnresolvedRefError{Ref: rb.Ref}
		}
		rb = target
	}
	if len(rb.Content) == 0 {
		return rb, nil
	}
	resolved := *rb
	resolved.Content = make(map[string]MediaType, len(rb.Content))
	for media, mt := range rb.Content {
		if mt.Schema != nil && mt.Schema.Ref != "" {
			schema, err := d.ResolveSchema(mt.Schema)
			if err != nil {
				return nil, err
			}
			mt.Schema = schema
		}
		resolved.Content[media] = mt
	}
	return &resolved, nil
}

// SecurityScheme looks up a named scheme under
// components.securitySchemes. It does not follow $refs; a scheme that
// is itself a ref is a tool misconfiguration the caller must reject.
func (d *Document) SecurityScheme(name string) (*SecurityScheme, bool) {
	if d.Components == nil || d.Components.SecuritySchemes == nil {
		return nil, false
	}
	scheme, ok := d.Components.SecuritySchemes[name]
	return scheme, ok && scheme != nil
}
