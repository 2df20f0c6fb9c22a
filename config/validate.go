package config

import (
	"fmt"
	"regexp"
	"time"

	"go.jacobcolvin.com/eventsim/schema"
)

var durationPattern = regexp.MustCompile(`^\d+(\.\d+)?[smh]$`)

// Validate checks the merged configuration for structural errors: malformed
// settings, dangling references, and out-of-range probabilities. All errors
// wrap [ErrInvalidConfig].
//
//nolint:cyclop,funlen // A flat rule list reads better than a rule engine.
func (c *Config) Validate() error {
	s := c.SimulationSettings

	if s.Duration != "" && !durationPattern.MatchString(s.Duration) {
		return fmt.Errorf("%w: duration %q must be a number with an s, m, or h suffix", ErrInvalidConfig, s.Duration)
	}

	if s.TotalEvents != nil && *s.TotalEvents < 0 {
		return fmt.Errorf("%w: total_events must not be negative", ErrInvalidConfig)
	}

	if m := s.TimeProgression.TimeMultiplier; m != nil && *m < 0 {
		return fmt.Errorf("%w: time_multiplier must not be negative", ErrInvalidConfig)
	}

	if st := s.TimeProgression.StartTime; st != "" && st != "now" {
		if _, err := time.Parse(time.RFC3339, st); err != nil {
			return fmt.Errorf("%w: start_time %q is neither \"now\" nor RFC 3339", ErrInvalidConfig, st)
		}
	}

	for name, count := range s.InitialEntityCounts {
		if _, ok := c.Entities[name]; !ok {
			return fmt.Errorf("%w: initial_entity_counts names unknown entity %q", ErrInvalidConfig, name)
		}

		if count < 0 {
			return fmt.Errorf("%w: initial count for %q must not be negative", ErrInvalidConfig, name)
		}
	}

	for name, s := range c.Schemas {
		err := c.validateSchema(s)
		if err != nil {
			return fmt.Errorf("schema %q: %w", name, err)
		}
	}

	for name, def := range c.Entities {
		ref := def.SchemaName()
		if ref == "" {
			return fmt.Errorf("%w: entity %q has no schema", ErrInvalidConfig, name)
		}

		if _, ok := c.Schemas[ref]; !ok {
			return fmt.Errorf("%w: entity %q references unknown schema %q", ErrInvalidConfig, name, ref)
		}
	}

	for name, def := range c.EventTypes {
		err := c.validateEventType(def)
		if err != nil {
			return fmt.Errorf("event type %q: %w", name, err)
		}
	}

	for name, def := range c.Scenarios {
		err := c.validateScenario(def)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", name, err)
		}
	}

	for i, out := range c.Outputs {
		switch out.Type {
		case "stdout", "file", "kafka":
		default:
			return fmt.Errorf("%w: output %d has unknown type %q", ErrInvalidConfig, i, out.Type)
		}
	}

	return nil
}

func (c *Config) validateEventType(def EventTypeDefinition) error {
	if def.PayloadSchema != nil {
		err := c.validateSchema(def.PayloadSchema)
		if err != nil {
			return err
		}
	}

	if def.FrequencyWeight != nil && *def.FrequencyWeight < 0 {
		return fmt.Errorf("%w: frequency_weight must not be negative", ErrInvalidConfig)
	}

	if p := def.UpdateExistingProbability; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("%w: update_existing_probability must be within [0, 1]", ErrInvalidConfig)
	}

	for _, target := range []string{def.ProducesEntity, def.ProducesOrUpdatesEntity} {
		if target == "" {
			continue
		}

		if _, ok := c.Entities[target]; !ok {
			return fmt.Errorf("%w: produces unknown entity %q", ErrInvalidConfig, target)
		}
	}

	err := c.validateConsumptions(def.ConsumesEntities)
	if err != nil {
		return err
	}

	for _, update := range def.UpdatesEntityState {
		if update.EntityAlias == "" {
			return fmt.Errorf("%w: updates_entity_state entry has no entity_alias", ErrInvalidConfig)
		}
	}

	return nil
}

func (c *Config) validateScenario(def ScenarioDefinition) error {
	if def.InitiationWeight < 0 {
		return fmt.Errorf("%w: initiation_weight must not be negative", ErrInvalidConfig)
	}

	err := c.validateConsumptions(def.RequiresInitialEntities)
	if err != nil {
		return err
	}

	for i, step := range def.Steps {
		if _, ok := c.EventTypes[step.EventType]; !ok {
			return fmt.Errorf("%w: step %d references unknown event type %q", ErrInvalidConfig, i, step.EventType)
		}
	}

	return nil
}

func (c *Config) validateConsumptions(consumptions []Consumption) error {
	for _, consumption := range consumptions {
		name := consumption.TypeName()
		if name == "" {
			return fmt.Errorf("%w: consumption entry has no entity type", ErrInvalidConfig)
		}

		if _, ok := c.Entities[name]; !ok {
			return fmt.Errorf("%w: consumes unknown entity %q", ErrInvalidConfig, name)
		}

		if consumption.MinCount() < 1 {
			return fmt.Errorf("%w: min_required for %q must be at least 1", ErrInvalidConfig, name)
		}

		for _, clause := range consumption.SelectionFilter {
			if clause.Field == "" {
				return fmt.Errorf("%w: selection_filter clause for %q has no field", ErrInvalidConfig, name)
			}

			switch clause.Operator {
			case "", "eq", "ne", "gt", "lt", "ge", "le", "contains", "not_contains", "in", "not_in":
			default:
				return fmt.Errorf("%w: unknown filter operator %q", ErrInvalidConfig, clause.Operator)
			}
		}
	}

	return nil
}

// validateSchema walks one schema tree, checking references against the
// config's schema table and bounds on structural fields.
func (c *Config) validateSchema(s *schema.Schema) error {
	if s == nil {
		return nil
	}

	if s.Ref != "" {
		if _, ok := c.Schemas[schema.RefName(s.Ref)]; !ok {
			return fmt.Errorf("%w: unresolved reference %q", ErrInvalidConfig, s.Ref)
		}
	}

	if s.NullableProbability < 0 || s.NullableProbability > 1 {
		return fmt.Errorf("%w: nullable_probability must be within [0, 1]", ErrInvalidConfig)
	}

	if s.MinItems < 0 {
		return fmt.Errorf("%w: min_items must not be negative", ErrInvalidConfig)
	}

	if s.MaxItems != nil && *s.MaxItems < s.MinItems {
		return fmt.Errorf("%w: max_items %d below min_items %d", ErrInvalidConfig, *s.MaxItems, s.MinItems)
	}

	for _, prop := range s.Properties {
		err := c.validateSchema(prop.Schema)
		if err != nil {
			return fmt.Errorf("property %q: %w", prop.Name, err)
		}
	}

	return c.validateSchema(s.Items)
}
