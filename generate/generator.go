package generate

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"go.jacobcolvin.com/eventsim/entity"
	"go.jacobcolvin.com/eventsim/schema"
)

// ErrEntityUnavailable indicates a from_entity reference that could not be
// resolved to any stored entity.
var ErrEntityUnavailable = errors.New("entity unavailable")

// maxRefDepth caps chained $ref resolution so a self-referencing schema
// fails instead of looping.
const maxRefDepth = 32

// Generator materializes values from schemas. It walks object and array
// nodes recursively, propagating a [Context] downward, and dispatches scalar
// nodes to leaf generators.
//
// All randomness flows through the single rand.Rand and gofakeit.Faker
// handed in at construction, so a seeded run is reproducible. The draw order
// per node is fixed: nullability, then selection or item count, then
// per-item generation.
type Generator struct {
	registry *schema.Registry
	store    *entity.Store
	rand     *rand.Rand
	faker    *gofakeit.Faker
	fakes    map[string]FakeFunc
}

// New creates a Generator over the given registry and store. The rand and
// faker must be seeded from the same source by the caller.
func New(registry *schema.Registry, store *entity.Store, rng *rand.Rand, faker *gofakeit.Faker) *Generator {
	return &Generator{
		registry: registry,
		store:    store,
		rand:     rng,
		faker:    faker,
		fakes:    defaultFakes(),
	}
}

// Generate produces a value for s under ctx.
func (g *Generator) Generate(s *schema.Schema, ctx Context) (any, error) {
	if ctx == nil {
		ctx = Context{}
	}

	for depth := 0; s.Ref != ""; depth++ {
		if depth >= maxRefDepth {
			return nil, fmt.Errorf("%w: reference chain exceeds %d levels", schema.ErrInvalidSchema, maxRefDepth)
		}

		var err error

		s, err = g.registry.Deref(s)
		if err != nil {
			return nil, err
		}
	}

	// Nullability is always the first draw for a node.
	if s.NullableProbability > 0 && g.rand.Float64() < s.NullableProbability {
		return nil, nil
	}

	if s.FromEntity != "" {
		return g.fromEntity(s, ctx)
	}

	switch s.Type {
	case "object":
		return g.generateObject(s, ctx)
	case "array":
		return g.generateArray(s, ctx)
	case "string", "":
		return g.generateString(s, ctx)
	case "number":
		return g.generateNumber(s, ctx)
	case "integer":
		return g.generateInteger(s, ctx)
	case "boolean":
		return g.generateBoolean(s, ctx)
	}

	return nil, fmt.Errorf("%w: unsupported type %q", schema.ErrInvalidSchema, s.Type)
}

// generateObject walks properties in declaration order. Each generated value
// is bound into the child context under the property name, so later siblings
// (conditional_choice, derived) can reference it.
//
// Payload overrides apply to the first object generated under a context
// carrying them; the key is removed from the child context so nested objects
// are unaffected. Override keys with no matching property are ignored.
func (g *Generator) generateObject(s *schema.Schema, ctx Context) (map[string]any, error) {
	child := ctx.Clone()

	overrides, _ := child[KeyPayloadOverrides].(map[string]any)

	delete(child, KeyPayloadOverrides)

	result := make(map[string]any, len(s.Properties))

	for _, prop := range s.Properties {
		value, ok := overrides[prop.Name]
		if !ok {
			var err error

			value, err = g.Generate(prop.Schema, child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", prop.Name, err)
			}
		}

		result[prop.Name] = value
		child[prop.Name] = value
	}

	return result, nil
}

func (g *Generator) generateArray(s *schema.Schema, ctx Context) ([]any, error) {
	minItems := s.MinItems

	maxItems := minItems + 5
	if s.MaxItems != nil {
		maxItems = *s.MaxItems
	}

	if maxItems < minItems {
		return nil, fmt.Errorf("%w: max_items %d < min_items %d", schema.ErrInvalidSchema, maxItems, minItems)
	}

	items := s.Items
	if items == nil {
		items = &schema.Schema{}
	}

	n := minItems + g.rand.Intn(maxItems-minItems+1)

	result := make([]any, 0, n)

	for i := range n {
		child := ctx.Clone()
		child[KeyArrayIndex] = i

		item, err := g.Generate(items, child)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		result = append(result, item)
	}

	return result, nil
}

func (g *Generator) generateString(s *schema.Schema, ctx Context) (any, error) {
	if s.Generator != "" {
		value, err := g.generateLeaf(s, ctx)
		if err != nil {
			return nil, err
		}

		// Leaves may hand back a timestamp; stringify per format.
		if t, ok := value.(time.Time); ok {
			return formatTime(t, s.Format), nil
		}

		return value, nil
	}

	switch s.Format {
	case "iso8601", "date", "time":
		return formatTime(g.contextTime(ctx), s.Format), nil
	}

	return g.faker.Word(), nil
}

func (g *Generator) generateNumber(s *schema.Schema, ctx Context) (any, error) {
	if s.Generator != "" {
		return g.generateLeaf(s, ctx)
	}

	return g.rand.Float64() * 100, nil
}

func (g *Generator) generateInteger(s *schema.Schema, ctx Context) (any, error) {
	if s.Generator != "" {
		return g.generateLeaf(s, ctx)
	}

	return int64(g.rand.Intn(101)), nil
}

func (g *Generator) generateBoolean(s *schema.Schema, ctx Context) (any, error) {
	if s.Generator != "" {
		return g.generateLeaf(s, ctx)
	}

	return g.rand.Intn(2) == 1, nil
}

// fromEntity resolves an entity and navigates the schema's dotted field
// through its data. Resolution order: the entity_<name> context binding,
// then consumed entities (by alias, then by type), then a random stored
// entity of the type.
func (g *Generator) fromEntity(s *schema.Schema, ctx Context) (any, error) {
	if s.Field == "" {
		return nil, fmt.Errorf("%w: from_entity requires a field", schema.ErrInvalidSchema)
	}

	ref, ok := g.resolveEntityRef(s.FromEntity, ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no %q entity", ErrEntityUnavailable, s.FromEntity)
	}

	e := g.store.Resolve(ref)
	if e == nil {
		return nil, fmt.Errorf("%w: stale ref %s", ErrEntityUnavailable, ref)
	}

	return e.DataField(s.Field), nil
}

func (g *Generator) resolveEntityRef(name string, ctx Context) (entity.Ref, bool) {
	switch bound := ctx[EntityKeyPrefix+name].(type) {
	case entity.Ref:
		return bound, true
	case []entity.Ref:
		if len(bound) > 0 {
			return bound[0], true
		}
	}

	if consumed, ok := ctx[KeyConsumedEntities].(map[string][]entity.Ref); ok {
		if refs := consumed[name]; len(refs) > 0 {
			return refs[0], true
		}

		// Fall back to matching by entity type, in a fixed alias order.
		aliases := make([]string, 0, len(consumed))
		for alias := range consumed {
			aliases = append(aliases, alias)
		}

		sort.Strings(aliases)

		for _, alias := range aliases {
			if refs := consumed[alias]; len(refs) > 0 && refs[0].Type == name {
				return refs[0], true
			}
		}
	}

	all := g.store.AllOf(name)
	if len(all) > 0 {
		return all[g.rand.Intn(len(all))].Ref(), true
	}

	return entity.Ref{}, false
}

// contextTime returns the virtual clock, falling back to the wall clock when
// unbound. Deterministic runs always bind simulation_time.
func (g *Generator) contextTime(ctx Context) time.Time {
	if t, ok := ctx.SimulationTime(); ok {
		return t
	}

	return time.Now()
}

func formatTime(t time.Time, format string) string {
	switch format {
	case "date":
		return t.Format("2006-01-02")
	case "time":
		return t.Format("15:04:05")
	}

	return t.Format(time.RFC3339)
}
