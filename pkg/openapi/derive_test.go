package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, raw string) (*Document, *Endpoint) {
	t.Helper()
	doc := parseDoc(t, raw)
	ep, err := Normalize(doc)
	require.NoError(t, err)
	return doc, ep
}

func TestDeriveFlattensParameters(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items/{id}": {
				"get": {
					"parameters": [
						{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
						{"name": "limit", "in": "query", "schema": {"type": "number"}},
						{"name": "X-Trace", "in": "header", "schema": {"type": "string"}}
					]
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	props := in.Schema["properties"].(map[string]any)
	assert.Len(t, props, 3)
	assert.Contains(t, props, "id")
	assert.Contains(t, props, "limit")
	assert.Contains(t, props, "X-Trace")
	assert.Equal(t, []string{"id"}, in.Schema["required"])
	assert.Nil(t, in.Body)
}

func TestDeriveSkipsCookieParameters(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"get": {
					"parameters": [
						{"name": "session", "in": "cookie", "required": true, "schema": {"type": "string"}},
						{"name": "q", "in": "query", "schema": {"type": "string"}}
					]
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	props := in.Schema["properties"].(map[string]any)
	assert.NotContains(t, props, "session")
	assert.Contains(t, props, "q")
	// The cookie parameter's required flag must not leak either.
	_, hasRequired := in.Schema["required"]
	assert.False(t, hasRequired)
}

func TestDeriveMergesObjectBodyProperties(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"post": {
					"parameters": [
						{"name": "dryRun", "in": "query", "schema": {"type": "boolean"}}
					],
					"requestBody": {
						"content": {
							"application/json": {
								"schema": {
									"type": "object",
									"properties": {
										"name": {"type": "string"},
										"price": {"type": "number"}
									},
									"required": ["name"]
								}
							}
						}
					}
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	props := in.Schema["properties"].(map[string]any)
	assert.Len(t, props, 3)
	assert.Contains(t, props, "dryRun")
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "price")
	assert.Equal(t, []string{"name"}, in.Schema["required"])

	require.NotNil(t, in.Body)
	assert.Equal(t, "application/json", in.Body.MediaType)
	assert.False(t, in.Body.Passthrough)
	assert.Equal(t, []string{"name", "price"}, in.Body.Properties)
}

func TestDeriveNonObjectBodyIsPassthrough(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"post": {
					"requestBody": {
						"content": {
							"application/json": {"schema": {"type": "array", "items": {"type": "string"}}}
						}
					}
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	require.NotNil(t, in.Body)
	assert.True(t, in.Body.Passthrough)
	assert.Empty(t, in.Body.Properties)
	assert.True(t, in.Empty())
}

func TestDeriveResolvesBodySchemaRef(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"post": {
					"requestBody": {
						"content": {
							"application/json": {"schema": {"$ref": "#/components/schemas/Item"}}
						}
					}
				}
			}
		},
		"components": {
			"schemas": {
				"Item": {"type": "object", "properties": {"name": {"type": "string"}}}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	props := in.Schema["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	require.NotNil(t, in.Body)
	assert.Equal(t, []string{"name"}, in.Body.Properties)
}

func TestDeriveDegradesOnUnresolvableParameterRef(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"get": {
					"parameters": [{"$ref": "#/components/parameters/Missing"}]
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	assert.True(t, in.Empty())
	assert.Contains(t, in.Schema["description"], "input schema unavailable")
	assert.Nil(t, in.Body)
}

func TestDeriveDegradesOnUnresolvableBodyRef(t *testing.T) {
	doc, ep := normalize(t, `{
		"servers": [{"url": "https://api.example.com"}],
		"paths": {
			"/items": {
				"post": {
					"requestBody": {"$ref": "#/components/requestBodies/Missing"}
				}
			}
		}
	}`)

	in := DeriveInputSchema(doc, ep)
	assert.True(t, in.Empty())
	assert.Contains(t, in.Schema["description"], "input schema unavailable")
}

func TestFirstMediaTypePrefersJSON(t *testing.T) {
	media, _, ok := firstMediaType(map[string]MediaType{
		"text/plain":       {},
		"application/json": {},
		"application/xml":  {},
	})
	require.True(t, ok)
	assert.Equal(t, "application/json", media)
}

func TestFirstMediaTypeFallsBackDeterministically(t *testing.T) {
	media, _, ok := firstMediaType(map[string]MediaType{
		"text/plain":      {},
		"application/xml": {},
	})
	require.True(t, ok)
	assert.Equal(t, "application/xml", media)

	_, _, ok = firstMediaType(nil)
	assert.False(t, ok)
}
