package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrTypeMismatch indicates an increment against a non-numeric current value
// or with a non-numeric delta.
var ErrTypeMismatch = errors.New("type mismatch")

// Store is an in-memory registry of entity instances, indexed by
// (type, id). Entities are selected by conjunctive predicate filters.
//
// Iteration happens in insertion order, which keeps selection deterministic
// under a fixed seed. Callers must not rely on any particular order beyond
// that determinism.
type Store struct {
	entities map[string]map[string]*Entity
	order    map[string][]string
	now      func() time.Time
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithClock sets the clock used to stamp entity creation times. The
// orchestrator supplies its virtual clock so that no wall-clock value leaks
// into a seeded run.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entities: map[string]map[string]*Entity{},
		order:    map[string][]string{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create registers a new entity of the given type, lazily registering the
// type itself. The id is data[primaryKey] when present, otherwise a fresh
// identifier. A prior entity with the same id is overwritten
// (last-writer-wins).
func (s *Store) Create(entityType string, data map[string]any, primaryKey string) *Entity {
	if _, ok := s.entities[entityType]; !ok {
		s.entities[entityType] = map[string]*Entity{}
	}

	id := idFromData(data, primaryKey)

	e := &Entity{
		Type:       entityType,
		ID:         id,
		PrimaryKey: primaryKey,
		Data:       data,
		State:      map[string]any{},
		CreatedAt:  s.now(),
	}

	if _, exists := s.entities[entityType][id]; !exists {
		s.order[entityType] = append(s.order[entityType], id)
	} else {
		slog.Debug("overwriting entity",
			slog.String("type", entityType),
			slog.String("id", id),
		)
	}

	s.entities[entityType][id] = e

	slog.Debug("created entity",
		slog.String("type", entityType),
		slog.String("id", id),
	)

	return e
}

// UpdateData shallow-merges delta into the entity's data map. A missing
// entity is non-fatal and returns nil.
func (s *Store) UpdateData(entityType, id string, delta map[string]any) *Entity {
	e := s.Get(entityType, id)
	if e == nil {
		slog.Warn("entity not found for data update",
			slog.String("type", entityType),
			slog.String("id", id),
		)

		return nil
	}

	for k, v := range delta {
		e.Data[k] = v
	}

	return e
}

// UpdateState applies sets literally, then applies increments as numeric
// addition. A missing entity is non-fatal and returns nil. Both maps are
// applied before returning, so callers never observe a partial update.
func (s *Store) UpdateState(entityType, id string, sets, increments map[string]any) (*Entity, error) {
	e := s.Get(entityType, id)
	if e == nil {
		slog.Warn("entity not found for state update",
			slog.String("type", entityType),
			slog.String("id", id),
		)

		return nil, nil
	}

	for k, v := range sets {
		e.State[k] = v
	}

	for k, v := range increments {
		next, err := addNumeric(e.State[k], v)
		if err != nil {
			return nil, fmt.Errorf("increment %q on %s: %w", k, e.Ref(), err)
		}

		e.State[k] = next
	}

	return e, nil
}

// Get returns the entity with the given type and id, or nil.
func (s *Store) Get(entityType, id string) *Entity {
	return s.entities[entityType][id]
}

// Resolve returns the entity a ref points at, or nil.
func (s *Store) Resolve(ref Ref) *Entity {
	return s.Get(ref.Type, ref.ID)
}

// AllOf returns every entity of the given type in insertion order.
func (s *Store) AllOf(entityType string) []*Entity {
	ids := s.order[entityType]
	result := make([]*Entity, 0, len(ids))

	for _, id := range ids {
		if e := s.entities[entityType][id]; e != nil {
			result = append(result, e)
		}
	}

	return result
}

// Find returns entities of the given type matching every predicate, in
// insertion order. A limit of 0 means unlimited.
func (s *Store) Find(entityType string, filters []Predicate, limit int) ([]*Entity, error) {
	var result []*Entity

	for _, e := range s.AllOf(entityType) {
		ok, err := Matches(e, filters)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		result = append(result, e)

		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}

// Count returns the number of entities of the given type matching every
// predicate. Nil filters count the whole type. A malformed predicate counts
// as zero matches; configuration validation rejects unknown operators before
// they reach a store.
func (s *Store) Count(entityType string, filters []Predicate) int {
	if filters == nil {
		return len(s.entities[entityType])
	}

	matched, err := s.Find(entityType, filters, 0)
	if err != nil {
		slog.Warn("count with malformed filter", slog.String("type", entityType), slog.Any("error", err))

		return 0
	}

	return len(matched)
}

// Delete removes the entity with the given type and id. It reports whether
// an entity was removed.
func (s *Store) Delete(entityType, id string) bool {
	if _, ok := s.entities[entityType][id]; !ok {
		return false
	}

	delete(s.entities[entityType], id)

	ids := s.order[entityType]
	for i, existing := range ids {
		if existing == id {
			s.order[entityType] = append(ids[:i], ids[i+1:]...)

			break
		}
	}

	slog.Debug("deleted entity",
		slog.String("type", entityType),
		slog.String("id", id),
	)

	return true
}

// Types returns the number of registered entity types.
func (s *Store) Types() int {
	return len(s.entities)
}

func idFromData(data map[string]any, primaryKey string) string {
	v, ok := data[primaryKey]
	if !ok || v == nil {
		return uuid.NewString()
	}

	if id, ok := v.(string); ok {
		return id
	}

	return fmt.Sprint(v)
}
