package generate

import (
	"maps"
	"time"
)

// Reserved context keys. Everything else in a [Context] is a sibling
// property bound during object generation.
const (
	// KeySimulationTime holds the virtual clock as a [time.Time].
	KeySimulationTime = "simulation_time"
	// KeyArrayIndex holds the current array item index as an int.
	KeyArrayIndex = "array_index"
	// KeyPayloadOverrides holds a map of property name to fixed value that
	// replaces generation for top-level payload properties.
	KeyPayloadOverrides = "payload_overrides"
	// KeyConsumedEntities holds a map of alias to consumed entity refs.
	KeyConsumedEntities = "consumed_entities"
	// KeyScenarioInstance holds the scenario instance driving this event.
	KeyScenarioInstance = "scenario_instance"
	// KeyEntityAlias holds the scenario alias for a produced entity.
	KeyEntityAlias = "entity_alias"
	// EntityKeyPrefix prefixes per-alias (or per-type) entity ref bindings,
	// as in "entity_user".
	EntityKeyPrefix = "entity_"
)

// Context is the mapping propagated through recursive generation. Descent
// copies it, so a child binding layer never leaks back into its parent;
// siblings see earlier siblings by declaration order.
type Context map[string]any

// Clone returns a shallow copy forming a fresh binding layer.
func (c Context) Clone() Context {
	out := make(Context, len(c)+4)

	maps.Copy(out, c)

	return out
}

// SimulationTime returns the virtual clock, if bound.
func (c Context) SimulationTime() (time.Time, bool) {
	t, ok := c[KeySimulationTime].(time.Time)

	return t, ok
}
