package config

import (
	"time"

	"go.jacobcolvin.com/eventsim/entity"
	"go.jacobcolvin.com/eventsim/schema"
)

// Config is a fully merged simulation configuration. Imports have already
// been resolved by [Load]; the Imports field survives only so a validated
// document can be re-marshaled faithfully.
type Config struct {
	Version            string                         `yaml:"version,omitempty"`
	Imports            []string                       `yaml:"imports,omitempty"`
	SimulationSettings SimulationSettings             `yaml:"simulation_settings"`
	Schemas            map[string]*schema.Schema      `yaml:"schemas,omitempty"`
	Entities           map[string]EntityDefinition    `yaml:"entities,omitempty"`
	EventTypes         map[string]EventTypeDefinition `yaml:"event_types,omitempty"`
	Scenarios          map[string]ScenarioDefinition  `yaml:"scenarios,omitempty"`
	Outputs            []OutputConfig                 `yaml:"outputs,omitempty"`
}

// SimulationSettings bound a run. Duration and TotalEvents are independent
// termination conditions; whichever is reached first ends the run.
type SimulationSettings struct {
	Duration            string          `yaml:"duration,omitempty"`
	TotalEvents         *int            `yaml:"total_events,omitempty"`
	InitialEntityCounts map[string]int  `yaml:"initial_entity_counts,omitempty"`
	RandomSeed          *int64          `yaml:"random_seed,omitempty"`
	TimeProgression     TimeProgression `yaml:"time_progression,omitempty"`
}

// DurationLimit parses the duration bound ("30s", "10m", "2h"). A zero
// duration means unbounded. Call [Config.Validate] first; this assumes a
// well-formed value.
func (s SimulationSettings) DurationLimit() time.Duration {
	if s.Duration == "" {
		return 0
	}

	d, err := time.ParseDuration(s.Duration)
	if err != nil {
		return 0
	}

	return d
}

// TimeProgression controls the virtual clock.
type TimeProgression struct {
	StartTime      string   `yaml:"start_time,omitempty"`
	TimeMultiplier *float64 `yaml:"time_multiplier,omitempty"`
}

// Start resolves the virtual start time. The default and the literal "now"
// both mean the wall clock at startup.
func (p TimeProgression) Start(now time.Time) (time.Time, error) {
	if p.StartTime == "" || p.StartTime == "now" {
		return now, nil
	}

	return time.Parse(time.RFC3339, p.StartTime)
}

// Multiplier returns the virtual-to-wall time ratio, defaulting to 1.
func (p TimeProgression) Multiplier() float64 {
	if p.TimeMultiplier == nil {
		return 1
	}

	return *p.TimeMultiplier
}

// EntityDefinition ties an entity type to the schema generating its data and
// the mutable state attributes attached at creation.
type EntityDefinition struct {
	SchemaRef       string                    `yaml:"schema_ref,omitempty"`
	Schema          string                    `yaml:"schema,omitempty"`
	PrimaryKey      string                    `yaml:"primary_key,omitempty"`
	StateAttributes map[string]StateAttribute `yaml:"state_attributes,omitempty"`
}

// SchemaName returns the referenced schema under either accepted key.
func (d EntityDefinition) SchemaName() string {
	if d.SchemaRef != "" {
		return schema.RefName(d.SchemaRef)
	}

	return schema.RefName(d.Schema)
}

// StateAttribute declares one mutable state field and its initial value.
// FromField seeds the state from a generated data field; otherwise Default
// applies.
type StateAttribute struct {
	Type      string `yaml:"type,omitempty"`
	Default   any    `yaml:"default,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty"`
	FromField string `yaml:"from_field,omitempty"`
}

// EventTypeDefinition describes one event type: its payload schema, the
// entities it consumes, and the entity effects it applies.
type EventTypeDefinition struct {
	Description               string         `yaml:"description,omitempty"`
	PayloadSchema             *schema.Schema `yaml:"payload_schema,omitempty"`
	FrequencyWeight           *float64       `yaml:"frequency_weight,omitempty"`
	ProducesEntity            string         `yaml:"produces_entity,omitempty"`
	ProducesOrUpdatesEntity   string         `yaml:"produces_or_updates_entity,omitempty"`
	UpdateExistingProbability *float64       `yaml:"update_existing_probability,omitempty"`
	ConsumesEntities          []Consumption  `yaml:"consumes_entities,omitempty"`
	UpdatesEntityState        []StateUpdate  `yaml:"updates_entity_state,omitempty"`
}

// Weight returns the relative scheduling weight, defaulting to 1.
func (d EventTypeDefinition) Weight() float64 {
	if d.FrequencyWeight == nil {
		return 1
	}

	return *d.FrequencyWeight
}

// UpdateProbability returns the chance a produces_or_updates event updates an
// existing entity instead of creating one, defaulting to 0.5.
func (d EventTypeDefinition) UpdateProbability() float64 {
	if d.UpdateExistingProbability == nil {
		return 0.5
	}

	return *d.UpdateExistingProbability
}

// Consumption selects existing entities an event depends on. Either
// entity_type or name may carry the type.
type Consumption struct {
	EntityType      string         `yaml:"entity_type,omitempty"`
	Name            string         `yaml:"name,omitempty"`
	Alias           string         `yaml:"alias,omitempty"`
	SelectionFilter []FilterClause `yaml:"selection_filter,omitempty"`
	MinRequired     *int           `yaml:"min_required,omitempty"`
}

// TypeName returns the consumed entity type under either accepted key.
func (c Consumption) TypeName() string {
	if c.EntityType != "" {
		return c.EntityType
	}

	return c.Name
}

// AliasName returns the binding alias, defaulting to the entity type.
func (c Consumption) AliasName() string {
	if c.Alias != "" {
		return c.Alias
	}

	return c.TypeName()
}

// MinCount returns how many matching entities must exist, defaulting to 1.
func (c Consumption) MinCount() int {
	if c.MinRequired == nil {
		return 1
	}

	return *c.MinRequired
}

// Predicates converts the selection filter for the entity store.
func (c Consumption) Predicates() []entity.Predicate {
	if len(c.SelectionFilter) == 0 {
		return nil
	}

	out := make([]entity.Predicate, 0, len(c.SelectionFilter))
	for _, f := range c.SelectionFilter {
		out = append(out, f.Predicate())
	}

	return out
}

// FilterClause is one conjunct of a selection filter.
type FilterClause struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator,omitempty"`
	Value    any    `yaml:"value,omitempty"`
}

// Predicate converts the clause, defaulting the operator to eq.
func (f FilterClause) Predicate() entity.Predicate {
	op := f.Operator
	if op == "" {
		op = "eq"
	}

	return entity.Predicate{Field: f.Field, Operator: op, Value: f.Value}
}

// StateUpdate mutates a consumed or produced entity's state after an event.
// Values in either map may be a literal or a {from_payload_field: path}
// mapping resolved against the generated payload.
type StateUpdate struct {
	EntityAlias         string         `yaml:"entity_alias"`
	SetAttributes       map[string]any `yaml:"set_attributes,omitempty"`
	IncrementAttributes map[string]any `yaml:"increment_attributes,omitempty"`
}

// ScenarioDefinition is an ordered multi-event storyline.
type ScenarioDefinition struct {
	Description             string         `yaml:"description,omitempty"`
	InitiationWeight        float64        `yaml:"initiation_weight,omitempty"`
	RequiresInitialEntities []Consumption  `yaml:"requires_initial_entities,omitempty"`
	Steps                   []ScenarioStep `yaml:"steps,omitempty"`
}

// ScenarioStep emits one event within a scenario. EntityAlias names the
// binding for an entity the step's event produces, so later steps can target
// it.
type ScenarioStep struct {
	EventType        string         `yaml:"event_type"`
	EntityAlias      string         `yaml:"entity_alias,omitempty"`
	PayloadOverrides map[string]any `yaml:"payload_overrides,omitempty"`
}

// OutputConfig configures one sink.
type OutputConfig struct {
	Type         string            `yaml:"type"`
	Enabled      *bool             `yaml:"enabled,omitempty"`
	Format       string            `yaml:"format,omitempty"`
	FilePath     string            `yaml:"file_path,omitempty"`
	FileRotation string            `yaml:"file_rotation,omitempty"`
	KafkaBrokers string            `yaml:"kafka_brokers,omitempty"`
	DefaultTopic string            `yaml:"default_topic,omitempty"`
	TopicMapping map[string]string `yaml:"topic_mapping,omitempty"`

	SASLMechanism string `yaml:"sasl_mechanism,omitempty"`
	SASLUsername  string `yaml:"sasl_plain_username,omitempty"`
	SASLPassword  string `yaml:"sasl_plain_password,omitempty"`
}

// IsEnabled reports whether the sink should be constructed; sinks default on.
func (o OutputConfig) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}
