// Package entity implements the in-memory entity state store: a typed,
// queryable registry of entity instances with a data snapshot and a mutable
// state map.
//
// An [Entity] has an immutable-by-convention Data map (the payload that
// produced it) and a disjoint State map of mutable attributes addressed with
// the "state." prefix in predicates. Entities are created, mutated, and
// selected exclusively through a [Store]; every reference held outside the
// store is a [Ref] (type + id) resolved on use, which keeps the object graph
// acyclic.
//
// Selection uses conjunctive [Predicate] filters with the operators eq, ne,
// gt, lt, ge, le, contains, not_contains, in, and not_in. Ordering
// comparisons propagate nil as false; numeric operands are promoted before
// comparison so YAML integers match generated floats.
//
// The store iterates entities in insertion order. That order is an
// implementation detail, but it is fixed for a given sequence of operations,
// which is what keeps seeded runs reproducible.
package entity
