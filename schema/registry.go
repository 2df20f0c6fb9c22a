package schema

import "fmt"

// Registry is an immutable lookup of named schemas. It resolves
// "#/schemas/<name>" references and merges reference overrides.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry creates a Registry over the given named schemas.
func NewRegistry(schemas map[string]*Schema) *Registry {
	if schemas == nil {
		schemas = map[string]*Schema{}
	}

	return &Registry{schemas: schemas}
}

// Resolve returns the schema registered under name. The name may carry the
// "#/schemas/" prefix.
func (r *Registry) Resolve(name string) (*Schema, error) {
	s, ok := r.schemas[RefName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, RefName(name))
	}

	return s, nil
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.schemas)
}

// Deref resolves s.Ref and overlays every field of s except the reference
// itself onto a shallow copy of the referenced schema. Schemas without a
// reference are returned unchanged. The result may itself carry a reference
// when the registered schema is a reference node; callers resolve
// iteratively.
func (r *Registry) Deref(s *Schema) (*Schema, error) {
	if s.Ref == "" {
		return s, nil
	}

	referenced, err := r.Resolve(s.Ref)
	if err != nil {
		return nil, err
	}

	merged := *referenced

	overlay(&merged, s)

	return &merged, nil
}

// overlay copies every set field of src onto dst, excluding the reference.
func overlay(dst, src *Schema) {
	if src.Type != "" {
		dst.Type = src.Type
	}

	if src.Format != "" {
		dst.Format = src.Format
	}

	if src.Generator != "" {
		dst.Generator = src.Generator
	}

	if src.Params != nil {
		dst.Params = src.Params
	}

	if src.Description != "" {
		dst.Description = src.Description
	}

	if src.Properties != nil {
		dst.Properties = src.Properties
	}

	if src.Items != nil {
		dst.Items = src.Items
	}

	if src.MinItems != 0 {
		dst.MinItems = src.MinItems
	}

	if src.MaxItems != nil {
		dst.MaxItems = src.MaxItems
	}

	if src.NullableProbability != 0 {
		dst.NullableProbability = src.NullableProbability
	}

	if src.FromEntity != "" {
		dst.FromEntity = src.FromEntity
	}

	if src.Field != "" {
		dst.Field = src.Field
	}
}
