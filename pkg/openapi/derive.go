package openapi

import (
	"encoding/json"
	"sort"
)

// BodyPlan records how the request body relates to the flat parameter
// namespace, for the request builder.
type BodyPlan struct {
	MediaType string `json:"media_type"`

	// Passthrough is set when the body schema is not an object with
	// properties. At call time the entire validated parameter object is
	// sent as the body verbatim. This mirrors the parameter derivation:
	// it only works when the body schema coincides with the full
	// parameter set, and is kept for compatibility, not generality.
	Passthrough bool `json:"passthrough"`

	// Properties are the declared body property names projected out of
	// the validated parameters when Passthrough is false.
	Properties []string `json:"properties,omitempty"`
}

// InputSchema is the flat object schema derived from an endpoint. It is
// the single structure used both for validating caller input and for
// documenting the tool to humans or LLMs.
type InputSchema struct {
	Schema map[string]any `json:"schema"`
	Body   *BodyPlan      `json:"body,omitempty"`
}

// DeriveInputSchema flattens the endpoint's path/query/header parameters
// and request-body properties into one object schema. Parameter
// required-ness mirrors each source's required flag. It never fails:
// any resolution error yields an empty-properties schema whose
// description explains the degradation, so callers always get a schema
// to show.
func DeriveInputSchema(doc *Document, ep *Endpoint) *InputSchema {
	properties := make(map[string]any)
	var required []string

	for _, p := range ep.Operation.Parameters {
		resolved, err := doc.ResolveParameter(p)
		if err != nil || resolved == nil || resolved.Ref != "" {
			return degradedSchema("parameter could not be resolved")
		}
		switch resolved.In {
		case "path", "query", "header":
		default:
			// Cookie parameters are unsupported; they are dropped at
			// request-build time and excluded from the input schema.
			continue
		}
		prop, err := schemaToMap(resolved.Schema)
		if err != nil {
			return degradedSchema("parameter schema could not be resolved")
		}
		properties[resolved.Name] = prop
		if resolved.Required {
			required = append(required, resolved.Name)
		}
	}

	in := &InputSchema{}

	if rb := ep.Operation.RequestBody; rb != nil {
		body, err := doc.ResolveRequestBody(rb)
		if err != nil || body.Ref != "" {
			return degradedSchema("request body could not be resolved")
		}
		media, mt, ok := firstMediaType(body.Content)
		if ok {
			schema := mt.Schema
			if schema != nil && schema.Ref != "" {
				resolved, err := doc.ResolveSchema(schema)
				if err != nil {
					return degradedSchema("request body schema could not be resolved")
				}
				schema = resolved
			}
			if schema != nil && schema.Type == "object" && len(schema.Properties) > 0 {
				names := make([]string, 0, len(schema.Properties))
				for name, prop := range schema.Properties {
					m, err := schemaToMap(prop)
					if err != nil {
						return degradedSchema("request body schema could not be resolved")
					}
					properties[name] = m
					names = append(names, name)
				}
				sort.Strings(names)
				required = append(required, schema.Required...)
				in.Body = &BodyPlan{MediaType: media, Properties: names}
			} else {
				in.Body = &BodyPlan{MediaType: media, Passthrough: true}
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = dedupe(required)
	}
	in.Schema = schema
	return in
}

// Empty reports whether the schema declares no properties.
func (in *InputSchema) Empty() bool {
	props, ok := in.Schema["properties"].(map[string]any)
	return !ok || len(props) == 0
}

func degradedSchema(reason string) *InputSchema {
	return &InputSchema{
		Schema: map[string]any{
			"type":        "object",
			"properties":  map[string]any{},
			"description": "input schema unavailable: " + reason,
		},
	}
}

// firstMediaType picks the media type used for the request body. JSON
// wins when declared; otherwise the lexicographically first entry keeps
// the choice deterministic.
func firstMediaType(content map[string]MediaType) (string, MediaType, bool) {
	if len(content) == 0 {
		return "", MediaType{}, false
	}
	if mt, ok := content["application/json"]; ok {
		return "application/json", mt, true
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], content[keys[0]], true
}

func schemaToMap(s *Schema) (map[string]any, error) {
	if s == nil {
		return map[string]any{}, nil
	}
	if s.Ref != "" {
		return nil, &UnresolvedRefError{Ref: s.Ref}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
