package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halim/toolgate/pkg/tool"
)

// fakeWriter is an in-memory tool store.
type fakeWriter struct {
	byID   map[string]*tool.Definition
	byName map[string]*tool.Definition
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		byID:   make(map[string]*tool.Definition),
		byName: make(map[string]*tool.Definition),
	}
}

func (f *fakeWriter) GetToolByName(ctx context.Context, name string) (*tool.Definition, error) {
	return f.byName[name], nil
}

func (f *fakeWriter) PutTool(ctx context.Context, def *tool.Definition) error {
	copied := *def
	f.byID[def.ID] = &copied
	f.byName[def.Name] = &copied
	return nil
}

const validDefinition = `{
	"name": "Weather Lookup",
	"utility_provider": "weatherco",
	"openapi_specification": {
		"openapi": "3.0.0",
		"servers": [{"url": "https://api.weatherco.example"}],
		"paths": {"/current": {"get": {}}}
	}
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSyncLoadsValidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "weather.json", validDefinition)

	store := newFakeWriter()
	r := New(store, dir, nil, zerolog.Nop())
	require.NoError(t, r.Sync(context.Background()))

	def := store.byName["Weather Lookup"]
	require.NotNil(t, def)
	assert.NotEmpty(t, def.ID)
	assert.Equal(t, "weatherco", def.UtilityProvider)
}

func TestSyncSkipsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", validDefinition)
	writeFile(t, dir, "not-json.json", "{{{")
	writeFile(t, dir, "no-name.json", `{"utility_provider": "x", "openapi_specification": {"servers": [{"url": "https://x.example"}], "paths": {"/a": {"get": {}}}}}`)
	writeFile(t, dir, "two-paths.json", `{"name": "Two", "utility_provider": "x", "openapi_specification": {"servers": [{"url": "https://x.example"}], "paths": {"/a": {"get": {}}, "/b": {"get": {}}}}}`)
	writeFile(t, dir, "notes.txt", "ignored")

	store := newFakeWriter()
	r := New(store, dir, nil, zerolog.Nop())
	require.NoError(t, r.Sync(context.Background()))

	assert.Len(t, store.byID, 1)
	assert.Contains(t, store.byName, "Weather Lookup")
}

func TestSyncRejectsUnknownSecurityOption(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad-auth.json", `{
		"name": "Bad Auth",
		"utility_provider": "x",
		"security_option": "missing_scheme",
		"openapi_specification": {"servers": [{"url": "https://x.example"}], "paths": {"/a": {"get": {}}}}
	}`)

	store := newFakeWriter()
	r := New(store, dir, nil, zerolog.Nop())
	require.NoError(t, r.Sync(context.Background()))

	assert.Empty(t, store.byID)
}

func TestSyncReusesIDForExistingName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "weather.json", validDefinition)

	store := newFakeWriter()
	r := New(store, dir, nil, zerolog.Nop())

	require.NoError(t, r.Sync(context.Background()))
	firstID := store.byName["Weather Lookup"].ID

	require.NoError(t, r.Sync(context.Background()))
	assert.Equal(t, firstID, store.byName["Weather Lookup"].ID)
	assert.Len(t, store.byID, 1)
}

type fakeObserver struct{ syncs int }

func (f *fakeObserver) ObserveRegistrySync() { f.syncs++ }

func TestSyncNotifiesObserver(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "weather.json", validDefinition)

	obs := &fakeObserver{}
	r := New(newFakeWriter(), dir, obs, zerolog.Nop())

	require.NoError(t, r.Sync(context.Background()))
	require.NoError(t, r.Sync(context.Background()))
	assert.Equal(t, 2, obs.syncs)
}

func TestSyncMissingDirectoryIsNoop(t *testing.T) {
	store := newFakeWriter()
	r := New(store, filepath.Join(t.TempDir(), "does-not-exist"), nil, zerolog.Nop())
	require.NoError(t, r.Sync(context.Background()))
	assert.Empty(t, store.byID)
}
