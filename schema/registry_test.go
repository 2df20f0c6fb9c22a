package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/schema"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	registry := schema.NewRegistry(map[string]*schema.Schema{
		"user": {Type: "object"},
	})

	tcs := map[string]struct {
		name        string
		expectError bool
	}{
		"bare name": {
			name: "user",
		},
		"prefixed name": {
			name: "#/schemas/user",
		},
		"unknown name": {
			name:        "order",
			expectError: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := registry.Resolve(tc.name)
			if tc.expectError {
				require.ErrorIs(t, err, schema.ErrSchemaNotFound)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "object", s.Type)
		})
	}
}

func TestRegistryDeref(t *testing.T) {
	t.Parallel()

	registry := schema.NewRegistry(map[string]*schema.Schema{
		"price": {
			Type:      "number",
			Generator: "random_float",
			Params:    map[string]any{"min": 1.0, "max": 100.0},
		},
	})

	t.Run("local fields override referenced schema", func(t *testing.T) {
		t.Parallel()

		merged, err := registry.Deref(&schema.Schema{
			Ref:    "#/schemas/price",
			Params: map[string]any{"min": 500.0, "max": 1000.0},
		})
		require.NoError(t, err)

		assert.Equal(t, "number", merged.Type)
		assert.Equal(t, "random_float", merged.Generator)
		assert.InEpsilon(t, 500.0, merged.Params["min"], 1e-9)
	})

	t.Run("referenced schema untouched by overlay", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Deref(&schema.Schema{
			Ref:       "#/schemas/price",
			Generator: "random_int",
		})
		require.NoError(t, err)

		original, err := registry.Resolve("price")
		require.NoError(t, err)
		assert.Equal(t, "random_float", original.Generator)
	})

	t.Run("no reference passes through", func(t *testing.T) {
		t.Parallel()

		s := &schema.Schema{Type: "string"}

		merged, err := registry.Deref(s)
		require.NoError(t, err)
		assert.Same(t, s, merged)
	})

	t.Run("dangling reference", func(t *testing.T) {
		t.Parallel()

		_, err := registry.Deref(&schema.Schema{Ref: "#/schemas/ghost"})
		require.ErrorIs(t, err, schema.ErrSchemaNotFound)
	})
}
