// Package config loads, merges, and validates simulation configuration.
//
// A configuration is a YAML document with simulation settings, a schema
// table, entity and event type definitions, scenarios, and output sinks. An
// imports list composes documents: imports resolve depth-first in declaration
// order, mappings merge recursively, sequences concatenate, and the importing
// document wins scalar conflicts. Mapping order is preserved through the
// merge, so schema property order survives composition.
//
// [Load] is the entry point; it returns a fully merged, validated [*Config].
// Validation failures wrap [ErrInvalidConfig] so callers can distinguish a
// bad document from an unreadable one.
package config
