package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halim/toolgate/pkg/tool"
)

func sampleTool(id, name string) *tool.Definition {
	return &tool.Definition{
		ID:              id,
		Name:            name,
		Description:     "test tool",
		UtilityProvider: "testco",
		OpenAPISpec:     json.RawMessage(`{"paths": {"/x": {"get": {}}}, "servers": [{"url": "https://api.example.com"}]}`),
		SecurityOption:  "api_key",
		SecuritySecrets: tool.Secrets{Name: tool.TagAPIKey},
	}
}

func TestPutAndGetTool(t *testing.T) {
	s := openTestStore(t)

	def := sampleTool("t1", "Weather")
	require.NoError(t, s.PutTool(ctx(), def))

	got, err := s.GetToolByID(ctx(), "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Weather", got.Name)
	assert.Equal(t, "testco", got.UtilityProvider)
	assert.Equal(t, "api_key", got.SecurityOption)
	assert.Equal(t, tool.TagAPIKey, got.SecuritySecrets.Name)
	assert.JSONEq(t, string(def.OpenAPISpec), string(got.OpenAPISpec))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetToolByIDMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetToolByID(ctx(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetToolByName(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTool(ctx(), sampleTool("t1", "Weather")))

	got, err := s.GetToolByName(ctx(), "Weather")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ID)

	got, err = s.GetToolByName(ctx(), "Other")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutToolUpserts(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTool(ctx(), sampleTool("t1", "Weather")))

	updated := sampleTool("t1", "Weather v2")
	updated.Description = "updated"
	require.NoError(t, s.PutTool(ctx(), updated))

	got, err := s.GetToolByID(ctx(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Weather v2", got.Name)
	assert.Equal(t, "updated", got.Description)

	defs, err := s.ListTools(ctx())
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestPutToolRequiresID(t *testing.T) {
	s := openTestStore(t)
	require.Error(t, s.PutTool(ctx(), sampleTool("", "Weather")))
}

func TestListToolsOrderedByName(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTool(ctx(), sampleTool("t2", "Zebra")))
	require.NoError(t, s.PutTool(ctx(), sampleTool("t1", "Alpha")))

	defs, err := s.ListTools(ctx())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "Alpha", defs[0].Name)
	assert.Equal(t, "Zebra", defs[1].Name)
}

func TestDeleteTool(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTool(ctx(), sampleTool("t1", "Weather")))
	require.NoError(t, s.DeleteTool(ctx(), "t1"))

	got, err := s.GetToolByID(ctx(), "t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
