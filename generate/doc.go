// Package generate materializes event payloads and entity data from schemas.
//
// A [Generator] walks a schema tree recursively, threading a [Context] of
// bindings downward. Object properties generate in declaration order and each
// value is bound into the child context under the property name, which is
// what lets conditional_choice and derived expressions reference earlier
// siblings. Scalar nodes dispatch on their generator field: structural
// generators (uuid_v4, random_int, choice, conditional_choice, derived,
// static_hashed, current_timestamp, from_entity) are built in, and anything
// prefixed "faker." goes through the fake-data registry backed by gofakeit.
//
// Every random draw flows through one seeded rand.Rand and one seeded
// gofakeit.Faker, so two runs with the same seed and configuration produce
// identical output.
package generate
