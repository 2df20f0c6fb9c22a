package generate_test

import (
	"math"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/generate"
	"go.jacobcolvin.com/eventsim/schema"
)

func TestRandomInt(t *testing.T) {
	t.Parallel()

	t.Run("respects bounds", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		s := &schema.Schema{
			Type:      "integer",
			Generator: "random_int",
			Params:    map[string]any{"min": 10, "max": 12},
		}

		for range 50 {
			value, err := g.Generate(s, nil)
			require.NoError(t, err)

			n, ok := value.(int64)
			require.True(t, ok)
			assert.GreaterOrEqual(t, n, int64(10))
			assert.LessOrEqual(t, n, int64(12))
		}
	})

	t.Run("inverted bounds fail", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "integer",
			Generator: "random_int",
			Params:    map[string]any{"min": 10, "max": 5},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})
}

func TestRandomFloatPrecision(t *testing.T) {
	t.Parallel()

	g := newGenerator(1, nil, nil)

	s := &schema.Schema{
		Type:      "number",
		Generator: "random_float",
		Params:    map[string]any{"min": 0.0, "max": 100.0, "precision": 1},
	}

	for range 50 {
		value, err := g.Generate(s, nil)
		require.NoError(t, err)

		f, ok := value.(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 100.0)
		assert.InDelta(t, f*10, math.Round(f*10), 1e-9)
	}
}

func TestRandomAlphanumeric(t *testing.T) {
	t.Parallel()

	g := newGenerator(1, nil, nil)

	value, err := g.Generate(&schema.Schema{
		Type:      "string",
		Generator: "random_alphanumeric",
		Params:    map[string]any{"length": 24},
	}, nil)
	require.NoError(t, err)

	str, ok := value.(string)
	require.True(t, ok)
	assert.Len(t, str, 24)
}

func TestUUIDV4(t *testing.T) {
	t.Parallel()

	first := newGenerator(7, nil, nil)
	second := newGenerator(7, nil, nil)

	s := &schema.Schema{Type: "string", Generator: "uuid_v4"}

	a, err := first.Generate(s, nil)
	require.NoError(t, err)

	b, err := second.Generate(s, nil)
	require.NoError(t, err)

	// Seeded runs must agree, and the result must be a well-formed v4 UUID.
	assert.Equal(t, a, b)

	id, err := uuid.Parse(a.(string)) //nolint:forcetypeassert // Test value.
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func TestChoice(t *testing.T) {
	t.Parallel()

	t.Run("weights steer selection", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		s := &schema.Schema{
			Type:      "string",
			Generator: "choice",
			Params: map[string]any{
				"choices": []any{"always", "never"},
				"weights": []any{1.0, 0.0},
			},
		}

		for range 50 {
			value, err := g.Generate(s, nil)
			require.NoError(t, err)
			assert.Equal(t, "always", value)
		}
	})

	t.Run("mismatched weights fail", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "string",
			Generator: "choice",
			Params: map[string]any{
				"choices": []any{"a", "b"},
				"weights": []any{1.0},
			},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})

	t.Run("zero weight total fails", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "string",
			Generator: "choice",
			Params: map[string]any{
				"choices": []any{"a", "b"},
				"weights": []any{0.0, 0.0},
			},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})

	t.Run("no choices fail", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "string",
			Generator: "choice",
			Params:    map[string]any{},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})
}

func TestConditionalChoice(t *testing.T) {
	t.Parallel()

	s := &schema.Schema{
		Type:      "string",
		Generator: "conditional_choice",
		Params: map[string]any{
			"condition_field": "country",
			"cases": []any{
				map[string]any{"condition_value": "PT", "choices": []any{"EUR"}},
				map[string]any{"condition_value_in": []any{"US", "EC"}, "choices": []any{"USD"}},
				map[string]any{"default": true, "choices": []any{"OTHER"}},
			},
		},
	}

	tcs := map[string]struct {
		country  any
		expected string
	}{
		"exact match":  {country: "PT", expected: "EUR"},
		"in match":     {country: "EC", expected: "USD"},
		"default case": {country: "JP", expected: "OTHER"},
		"nil value":    {country: nil, expected: "OTHER"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g := newGenerator(1, nil, nil)

			value, err := g.Generate(s, generate.Context{"country": tc.country})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		})
	}

	t.Run("numeric thresholds", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		numeric := &schema.Schema{
			Type:      "string",
			Generator: "conditional_choice",
			Params: map[string]any{
				"condition_field": "total",
				"cases": []any{
					map[string]any{"condition_value_greater_than": 100, "choices": []any{"high"}},
					map[string]any{"condition_value_less_than": 10, "choices": []any{"low"}},
					map[string]any{"default": true, "choices": []any{"mid"}},
				},
			},
		}

		for total, expected := range map[float64]string{250: "high", 5: "low", 50: "mid"} {
			value, err := g.Generate(numeric, generate.Context{"total": total})
			require.NoError(t, err)
			assert.Equal(t, expected, value)
		}
	})

	t.Run("no cases fail", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "string",
			Generator: "conditional_choice",
			Params:    map[string]any{"condition_field": "x"},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})
}

func TestStaticHashed(t *testing.T) {
	t.Parallel()

	source := map[string]any{
		"type":      "string",
		"generator": "choice",
		"params":    map[string]any{"choices": []any{"secret"}},
	}

	tcs := map[string]struct {
		check     func(*testing.T, string)
		algorithm string
	}{
		"bcrypt style shape": {
			algorithm: "bcrypt-style",
			check: func(t *testing.T, hashed string) {
				t.Helper()
				assert.True(t, strings.HasPrefix(hashed, "$2a$10$"))
				assert.Len(t, hashed, 29)
			},
		},
		"sha256": {
			algorithm: "sha256",
			check: func(t *testing.T, hashed string) {
				t.Helper()
				assert.Equal(t,
					"2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", hashed)
			},
		},
		"md5": {
			algorithm: "md5",
			check: func(t *testing.T, hashed string) {
				t.Helper()
				assert.Equal(t, "5ebe2294ecd0e0f08eab7690d2a6ee69", hashed)
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			g := newGenerator(1, nil, nil)

			value, err := g.Generate(&schema.Schema{
				Type:      "string",
				Generator: "static_hashed",
				Params: map[string]any{
					"algorithm":        tc.algorithm,
					"raw_value_source": source,
				},
			}, nil)
			require.NoError(t, err)

			hashed, ok := value.(string)
			require.True(t, ok)
			tc.check(t, hashed)
		})
	}

	t.Run("unknown algorithm fails", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{
			Type:      "string",
			Generator: "static_hashed",
			Params:    map[string]any{"algorithm": "rot13"},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})
}

func TestDerived(t *testing.T) {
	t.Parallel()

	g := newGenerator(1, nil, nil)

	t.Run("computes from context", func(t *testing.T) {
		t.Parallel()

		value, err := g.Generate(&schema.Schema{
			Type:      "number",
			Generator: "derived",
			Params: map[string]any{
				"expression": "quantity * unit_price",
				"precision":  2,
			},
		}, generate.Context{"quantity": int64(3), "unit_price": 1.999})
		require.NoError(t, err)
		assert.InEpsilon(t, 6.0, value, 1e-9)
	})

	t.Run("unknown name surfaces", func(t *testing.T) {
		t.Parallel()

		_, err := g.Generate(&schema.Schema{
			Type:      "number",
			Generator: "derived",
			Params:    map[string]any{"expression": "missing + 1"},
		}, nil)
		require.ErrorIs(t, err, generate.ErrUnknownName)
	})

	t.Run("missing expression fails", func(t *testing.T) {
		t.Parallel()

		_, err := g.Generate(&schema.Schema{
			Type:      "number",
			Generator: "derived",
			Params:    map[string]any{},
		}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})
}

func TestFakeGenerators(t *testing.T) {
	t.Parallel()

	t.Run("known names produce values", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		for _, name := range []string{
			"faker.name", "faker.email", "faker.city", "faker.company",
			"faker.product_name", "faker.ecommerce.product_name",
		} {
			value, err := g.Generate(&schema.Schema{Type: "string", Generator: name}, nil)
			require.NoError(t, err, name)
			assert.NotEmpty(t, value, name)
		}
	})

	t.Run("unknown name fails", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)

		_, err := g.Generate(&schema.Schema{Type: "string", Generator: "faker.nope"}, nil)
		require.ErrorIs(t, err, schema.ErrInvalidSchema)
	})

	t.Run("registered fakes are dispatchable", func(t *testing.T) {
		t.Parallel()

		g := newGenerator(1, nil, nil)
		g.RegisterFake("constant", func(_ *gofakeit.Faker, _ map[string]any) (any, error) {
			return "fixed", nil
		})

		value, err := g.Generate(&schema.Schema{Type: "string", Generator: "faker.constant"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "fixed", value)
	})
}
