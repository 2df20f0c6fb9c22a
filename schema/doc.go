// Package schema defines the schema language used to describe generated
// values, and a [Registry] for resolving named schemas.
//
// A [Schema] node is one of:
//
//   - an object with ordered [Properties] (declaration order is significant;
//     later properties may reference earlier siblings during generation)
//   - an array with an items schema and min/max item counts
//   - a scalar (string, integer, number, boolean), optionally annotated with
//     a leaf generator identifier, a format, parameters, and a
//     nullable_probability
//   - a reference ("$ref: #/schemas/<name>") with optional overrides
//   - an entity-backed value (from_entity + field)
//
// Reference merging takes a shallow copy of the referenced schema and
// overlays every set field of the referencing node except the reference
// itself, so a reference can tighten or annotate the schema it points at.
//
// The package defines two sentinel errors for use with [errors.Is]:
// [ErrSchemaNotFound] for unresolvable references and [ErrInvalidSchema] for
// schemas that cannot be generated from.
package schema
