package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
)

// Configuration loading errors.
var (
	// ErrInvalidConfig indicates a document that parsed but fails validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrImportNotFound indicates an imports entry pointing at a missing file.
	ErrImportNotFound = errors.New("import not found")
	// ErrCircularImport indicates an import chain that revisits a file.
	ErrCircularImport = errors.New("circular import")
)

// Load reads a configuration file, resolves its imports transitively, merges
// the documents, and validates the result.
//
// Imports merge depth-first in declaration order, with later documents
// overriding earlier ones and the importing file overriding all of its
// imports. Mappings merge recursively, sequences concatenate (imported items
// first), and scalars overwrite. Diamond imports are fine; only a chain that
// revisits a file on its own branch is an error.
func Load(path string) (*Config, error) {
	merged, err := resolveDocument(path, nil)
	if err != nil {
		return nil, err
	}

	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var cfg Config

	err = yaml.Unmarshal(raw, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveDocument loads one file and folds its imports in. The stack holds
// the absolute paths of the current import branch for cycle detection.
func resolveDocument(path string, stack []string) (yaml.MapSlice, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImportNotFound, path, err)
	}

	if slices.Contains(stack, abs) {
		return nil, fmt.Errorf("%w: %s", ErrCircularImport, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if len(stack) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrImportNotFound, path)
		}

		return nil, fmt.Errorf("read config: %w", err)
	}

	doc, err := decodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	imports, doc := splitImports(doc)

	var merged yaml.MapSlice

	for _, imp := range imports {
		target := imp
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(abs), target)
		}

		slog.Debug("resolving import", "from", path, "import", imp)

		sub, err := resolveDocument(target, append(stack, abs))
		if err != nil {
			return nil, err
		}

		merged = deepMerge(merged, sub)
	}

	return deepMerge(merged, doc), nil
}

// decodeOrdered parses YAML with mapping order preserved.
func decodeOrdered(data []byte) (yaml.MapSlice, error) {
	var doc any

	err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap())
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, nil
	}

	ms, ok := doc.(yaml.MapSlice)
	if !ok {
		return nil, errors.New("document root must be a mapping")
	}

	return ms, nil
}

// splitImports pulls the imports list out of a document, so a merged result
// never re-triggers resolution.
func splitImports(doc yaml.MapSlice) ([]string, yaml.MapSlice) {
	var imports []string

	rest := make(yaml.MapSlice, 0, len(doc))

	for _, item := range doc {
		if key, ok := item.Key.(string); ok && key == "imports" {
			if list, ok := item.Value.([]any); ok {
				for _, v := range list {
					if s, ok := v.(string); ok {
						imports = append(imports, s)
					}
				}
			}

			continue
		}

		rest = append(rest, item)
	}

	return imports, rest
}

// deepMerge folds overlay into base. Nested mappings merge recursively,
// sequences concatenate with base items first, and anything else overwrites.
func deepMerge(base, overlay yaml.MapSlice) yaml.MapSlice {
	if len(base) == 0 {
		return overlay
	}

	out := make(yaml.MapSlice, 0, len(base)+len(overlay))
	out = append(out, base...)

	for _, item := range overlay {
		i := slices.IndexFunc(out, func(existing yaml.MapItem) bool {
			return existing.Key == item.Key
		})
		if i < 0 {
			out = append(out, item)

			continue
		}

		switch existing := out[i].Value.(type) {
		case yaml.MapSlice:
			if incoming, ok := item.Value.(yaml.MapSlice); ok {
				out[i].Value = deepMerge(existing, incoming)

				continue
			}
		case []any:
			if incoming, ok := item.Value.([]any); ok {
				out[i].Value = append(slices.Clone(existing), incoming...)

				continue
			}
		}

		out[i].Value = item.Value
	}

	return out
}
