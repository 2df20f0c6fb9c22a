package entity

import (
	"fmt"
	"strings"
	"time"
)

// Entity is a typed record with a stable id, an immutable-by-convention data
// map, and a mutable state map. Entities are owned by the [Store]; everything
// outside the store holds a [Ref] and resolves it on use.
type Entity struct {
	Type       string
	ID         string
	PrimaryKey string
	Data       map[string]any
	State      map[string]any
	CreatedAt  time.Time
}

// Ref is a stable handle to an entity: its type plus id. Refs stay valid
// across data and state mutations.
type Ref struct {
	Type string
	ID   string
}

// Ref returns a handle to e.
func (e *Entity) Ref() Ref {
	return Ref{Type: e.Type, ID: e.ID}
}

// DataField navigates a dotted path through the entity's data map. Missing
// segments yield nil.
func (e *Entity) DataField(path string) any {
	return NestedValue(e.Data, path)
}

// NestedValue walks a dotted path through nested string-keyed maps. Missing
// segments and non-map intermediates yield nil.
func NestedValue(obj map[string]any, path string) any {
	var value any = obj

	for _, part := range strings.Split(path, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil
		}

		value, ok = m[part]
		if !ok {
			return nil
		}
	}

	return value
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}
