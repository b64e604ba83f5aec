// Package validate checks caller-supplied parameter objects against a
// tool's derived input schema.
package validate

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one violated constraint, with a path relative to the
// flat parameter namespace.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the canonical validation failure: one FieldError per
// violated constraint.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Message))
	}
	return "parameter validation failed: " + strings.Join(parts, "; ")
}

// Params validates params against the derived object schema and returns
// the validated parameter object. An operation with no declared
// properties accepts an empty or absent input object without invoking
// the validator.
func Params(schema map[string]any, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = map[string]any{}
	}
	if emptySchema(schema) && len(params) == 0 {
		return params, nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile input schema: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, fmt.Errorf("failed to validate params: %w", err)
	}
	if result.Valid() {
		return params, nil
	}

	verr := &Error{}
	for _, re := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Path:    errorPath(re),
			Message: re.Description(),
		})
	}
	return nil, verr
}

// errorPath names the offending property. Required violations point at
// the missing property itself rather than the enclosing object.
func errorPath(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok && prop != "" {
			return prop
		}
	}
	field := re.Field()
	if field == "(root)" {
		return ""
	}
	return field
}

func emptySchema(schema map[string]any) bool {
	if schema == nil {
		return true
	}
	props, ok := schema["properties"].(map[string]any)
	return !ok || len(props) == 0
}
