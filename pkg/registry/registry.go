// Package registry loads hand-authored tool definition files from a
// directory into the tool store and keeps them in sync as files change.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/halim/toolgate/pkg/openapi"
	"github.com/halim/toolgate/pkg/tool"
)

// ToolWriter is the slice of the tool store the registry needs.
type ToolWriter interface {
	GetToolByName(ctx context.Context, name string) (*tool.Definition, error)
	PutTool(ctx context.Context, def *tool.Definition) error
}

// Observer receives registry telemetry.
type Observer interface {
	ObserveRegistrySync()
}

// Registry syncs *.json tool definition files from a directory into
// the store. Definitions whose specs fail normalization are skipped and
// logged; one bad file never blocks the rest.
type Registry struct {
	store    ToolWriter
	dir      string
	observer Observer
	logger   zerolog.Logger
}

// New creates a registry over the given tools directory. The observer
// may be nil.
func New(store ToolWriter, dir string, observer Observer, logger zerolog.Logger) *Registry {
	return &Registry{store: store, dir: dir, observer: observer, logger: logger}
}

// Sync loads every tool definition file in the directory and upserts it
// into the store. New tools are assigned generated IDs; tools that
// already exist under the same name keep theirs.
func (r *Registry) Sync(ctx context.Context) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug().Str("dir", r.dir).Msg("Tools directory does not exist, nothing to sync")
			return nil
		}
		return fmt.Errorf("failed to read tools directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if err := r.loadFile(ctx, path); err != nil {
			r.logger.Warn().Str("file", entry.Name()).Err(err).Msg("Skipping tool definition")
			continue
		}
		loaded++
	}

	r.logger.Info().Int("tools", loaded).Str("dir", r.dir).Msg("Tool registry synced")
	if r.observer != nil {
		r.observer.ObserveRegistrySync()
	}
	return nil
}

func (r *Registry) loadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var def tool.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse definition: %w", err)
	}
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.UtilityProvider == "" {
		return fmt.Errorf("utility provider is required")
	}

	// Reject specs the engine could never execute before they reach
	// the store.
	doc, err := openapi.ParseDocument(def.OpenAPISpec)
	if err != nil {
		return err
	}
	if _, err := openapi.Normalize(doc); err != nil {
		return err
	}
	if def.SecurityOption != "" {
		if _, ok := doc.SecurityScheme(def.SecurityOption); !ok {
			return fmt.Errorf("security option %q not found in spec", def.SecurityOption)
		}
	}

	if def.ID == "" {
		existing, err := r.store.GetToolByName(ctx, def.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			def.ID = existing.ID
			def.CreatedAt = existing.CreatedAt
		} else {
			id, err := gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate tool id: %w", err)
			}
			def.ID = id
		}
	}

	return r.store.PutTool(ctx, &def)
}
