package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// Sentinel errors returned by schema resolution and generation.
var (
	// ErrSchemaNotFound indicates a $ref that names no registered schema.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrInvalidSchema indicates a schema that cannot be generated from,
	// such as mismatched choice weights or an unknown operator.
	ErrInvalidSchema = errors.New("invalid schema")
)

// RefPrefix is the registry-local reference prefix, as in "#/schemas/user".
const RefPrefix = "#/schemas/"

// Schema is a single node in the schema tree. A node is an object, an array,
// a scalar, a reference to a registered schema, or an entity-backed value.
type Schema struct {
	Type                string         `yaml:"type,omitempty"`
	Ref                 string         `yaml:"$ref,omitempty"`
	Format              string         `yaml:"format,omitempty"`
	Generator           string         `yaml:"generator,omitempty"`
	Params              map[string]any `yaml:"params,omitempty"`
	Description         string         `yaml:"description,omitempty"`
	Properties          Properties     `yaml:"properties,omitempty"`
	Items               *Schema        `yaml:"items,omitempty"`
	MinItems            int            `yaml:"min_items,omitempty"`
	MaxItems            *int           `yaml:"max_items,omitempty"`
	NullableProbability float64        `yaml:"nullable_probability,omitempty"`
	FromEntity          string         `yaml:"from_entity,omitempty"`
	Field               string         `yaml:"field,omitempty"`
}

// UnmarshalYAML decodes a schema node. A plain string is shorthand for a
// reference, so `payload_schema: "#/schemas/order"` and
// `payload_schema: {$ref: "#/schemas/order"}` are equivalent.
func (s *Schema) UnmarshalYAML(data []byte) error {
	var ref string
	if yaml.Unmarshal(data, &ref) == nil {
		s.Ref = ref

		return nil
	}

	type schemaNode Schema

	var node schemaNode

	err := yaml.Unmarshal(data, &node)
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}

	*s = Schema(node)

	return nil
}

// Property is a named child schema of an object node.
type Property struct {
	Name   string
	Schema *Schema
}

// Properties holds an object's child schemas in declaration order. Order
// matters: later properties may reference earlier siblings through the
// generation context.
type Properties []Property

// Get returns the schema for the named property, or nil if absent.
func (p Properties) Get(name string) *Schema {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema
		}
	}

	return nil
}

// UnmarshalYAML decodes a YAML mapping into Properties, preserving the key
// order of the source document.
func (p *Properties) UnmarshalYAML(data []byte) error {
	var ms yaml.MapSlice

	err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap())
	if err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}

	props := make(Properties, 0, len(ms))

	for _, item := range ms {
		name := fmt.Sprint(item.Key)

		raw, err := yaml.Marshal(item.Value)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}

		var s Schema

		err = yaml.Unmarshal(raw, &s)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}

		props = append(props, Property{Name: name, Schema: &s})
	}

	*p = props

	return nil
}

// MarshalYAML encodes Properties back into an ordered YAML mapping.
func (p Properties) MarshalYAML() ([]byte, error) {
	ms := make(yaml.MapSlice, 0, len(p))

	for _, prop := range p {
		ms = append(ms, yaml.MapItem{Key: prop.Name, Value: prop.Schema})
	}

	out, err := yaml.Marshal(ms)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}

	return out, nil
}

// RefName strips the registry prefix from a reference string. Plain names
// without the prefix pass through unchanged.
func RefName(ref string) string {
	return strings.TrimPrefix(ref, RefPrefix)
}
