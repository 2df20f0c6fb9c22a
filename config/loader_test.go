package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeConfig(t, dir, "base.yaml", `
version: "1.0"
simulation_settings:
  duration: 10m
  random_seed: 42
schemas:
  user:
    type: object
    properties:
      user_id:
        type: string
        generator: uuid_v4
      email:
        type: string
        generator: faker.email
entities:
  user:
    schema_ref: "#/schemas/user"
    primary_key: user_id
event_types:
  user_registered:
    payload_schema:
      $ref: "#/schemas/user"
    produces_entity: user
outputs:
  - type: stdout
`)

	path := writeConfig(t, dir, "main.yaml", `
imports:
  - base.yaml
simulation_settings:
  duration: 30m
  total_events: 500
event_types:
  user_deleted:
    consumes_entities:
      - entity_type: user
        alias: user
outputs:
  - type: file
    file_path: out/events.json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// The importing document overrides scalars and extends mappings.
	assert.Equal(t, "30m", cfg.SimulationSettings.Duration)
	require.NotNil(t, cfg.SimulationSettings.TotalEvents)
	assert.Equal(t, 500, *cfg.SimulationSettings.TotalEvents)
	require.NotNil(t, cfg.SimulationSettings.RandomSeed)
	assert.Equal(t, int64(42), *cfg.SimulationSettings.RandomSeed)

	assert.Len(t, cfg.EventTypes, 2)
	assert.Contains(t, cfg.EventTypes, "user_registered")
	assert.Contains(t, cfg.EventTypes, "user_deleted")

	// Sequences concatenate, imported items first.
	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, "stdout", cfg.Outputs[0].Type)
	assert.Equal(t, "file", cfg.Outputs[1].Type)

	// Imports are consumed during resolution.
	assert.Empty(t, cfg.Imports)

	// Property declaration order survives the merge.
	user := cfg.Schemas["user"]
	require.NotNil(t, user)
	require.Len(t, user.Properties, 2)
	assert.Equal(t, "user_id", user.Properties[0].Name)
	assert.Equal(t, "email", user.Properties[1].Name)
}

func TestLoadDiamondImports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeConfig(t, dir, "shared.yaml", `
schemas:
  user:
    type: object
`)
	writeConfig(t, dir, "left.yaml", `
imports: [shared.yaml]
entities:
  user:
    schema_ref: "#/schemas/user"
`)
	writeConfig(t, dir, "right.yaml", `
imports: [shared.yaml]
event_types:
  ping: {}
`)

	path := writeConfig(t, dir, "main.yaml", `
imports: [left.yaml, right.yaml]
simulation_settings:
  duration: 1m
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Schemas, "user")
	assert.Contains(t, cfg.Entities, "user")
	assert.Contains(t, cfg.EventTypes, "ping")
}

func TestLoadCircularImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeConfig(t, dir, "a.yaml", "imports: [b.yaml]\n")
	path := writeConfig(t, dir, "b.yaml", "imports: [a.yaml]\n")

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrCircularImport)
}

func TestLoadMissingImport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := writeConfig(t, dir, "main.yaml", "imports: [ghost.yaml]\n")

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrImportNotFound)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
	}{
		"malformed duration": {
			content: `
simulation_settings:
  duration: ten minutes
`,
		},
		"negative multiplier": {
			content: `
simulation_settings:
  time_progression:
    time_multiplier: -2
`,
		},
		"bad start time": {
			content: `
simulation_settings:
  time_progression:
    start_time: yesterday
`,
		},
		"unknown output type": {
			content: `
outputs:
  - type: carrier_pigeon
`,
		},
		"dangling schema reference": {
			content: `
entities:
  user:
    schema_ref: "#/schemas/ghost"
`,
		},
		"dangling payload reference": {
			content: `
event_types:
  ping:
    payload_schema:
      $ref: "#/schemas/ghost"
`,
		},
		"consumes unknown entity": {
			content: `
event_types:
  ping:
    consumes_entities:
      - entity_type: ghost
`,
		},
		"min required below one": {
			content: `
schemas:
  user:
    type: object
entities:
  user:
    schema_ref: "#/schemas/user"
event_types:
  ping:
    consumes_entities:
      - entity_type: user
        min_required: 0
`,
		},
		"max items below min items": {
			content: `
schemas:
  bag:
    type: array
    min_items: 5
    max_items: 2
`,
		},
		"nullable probability out of range": {
			content: `
schemas:
  user:
    type: object
    properties:
      email:
        type: string
        nullable_probability: 1.5
`,
		},
		"unknown filter operator": {
			content: `
schemas:
  user:
    type: object
entities:
  user:
    schema_ref: "#/schemas/user"
event_types:
  ping:
    consumes_entities:
      - entity_type: user
        selection_filter:
          - field: state.active
            operator: resembles
`,
		},
		"scenario step references unknown event type": {
			content: `
scenarios:
  onboarding:
    steps:
      - event_type: ghost_event
`,
		},
		"initial count for unknown entity": {
			content: `
simulation_settings:
  initial_entity_counts:
    ghost: 5
`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, t.TempDir(), "main.yaml", tc.content)

			_, err := config.Load(path)
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadPayloadSchemaString(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), "main.yaml", `
schemas:
  order:
    type: object
    properties:
      order_id:
        type: string
        generator: uuid_v4
event_types:
  order_placed:
    payload_schema: "#/schemas/order"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// The plain-string form decodes as a reference.
	def := cfg.EventTypes["order_placed"]
	require.NotNil(t, def.PayloadSchema)
	assert.Equal(t, "#/schemas/order", def.PayloadSchema.Ref)
}

func TestConsumptionDefaults(t *testing.T) {
	t.Parallel()

	c := config.Consumption{Name: "user"}

	assert.Equal(t, "user", c.TypeName())
	assert.Equal(t, "user", c.AliasName())
	assert.Equal(t, 1, c.MinCount())

	pred := config.FilterClause{Field: "state.active"}.Predicate()
	assert.Equal(t, "eq", pred.Operator)
}
