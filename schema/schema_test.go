package schema_test

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/schema"
)

func TestPropertiesOrder(t *testing.T) {
	t.Parallel()

	input := `
type: object
properties:
  id:
    type: string
    generator: uuid_v4
  username:
    type: string
    generator: faker.user_name
  email:
    type: string
    generator: faker.email
  age:
    type: integer
    params:
      min: 18
      max: 90
`

	var s schema.Schema

	err := yaml.Unmarshal([]byte(input), &s)
	require.NoError(t, err)

	names := make([]string, 0, len(s.Properties))
	for _, prop := range s.Properties {
		names = append(names, prop.Name)
	}

	assert.Equal(t, []string{"id", "username", "email", "age"}, names)
	assert.Equal(t, "uuid_v4", s.Properties.Get("id").Generator)
	assert.Nil(t, s.Properties.Get("missing"))
}

func TestPropertiesRoundTrip(t *testing.T) {
	t.Parallel()

	original := schema.Properties{
		{Name: "zulu", Schema: &schema.Schema{Type: "string"}},
		{Name: "alpha", Schema: &schema.Schema{Type: "integer"}},
		{Name: "mike", Schema: &schema.Schema{Type: "boolean"}},
	}

	raw, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded schema.Properties

	err = yaml.Unmarshal(raw, &decoded)
	require.NoError(t, err)

	require.Len(t, decoded, 3)
	assert.Equal(t, "zulu", decoded[0].Name)
	assert.Equal(t, "alpha", decoded[1].Name)
	assert.Equal(t, "mike", decoded[2].Name)
}

func TestSchemaScalarShorthand(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected schema.Schema
	}{
		"plain string is a reference": {
			input:    `"#/schemas/order"`,
			expected: schema.Schema{Ref: "#/schemas/order"},
		},
		"mapping form decodes fields": {
			input:    `{$ref: "#/schemas/order", nullable_probability: 0.5}`,
			expected: schema.Schema{Ref: "#/schemas/order", NullableProbability: 0.5},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var s schema.Schema

			err := yaml.Unmarshal([]byte(tc.input), &s)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestRefName(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input    string
		expected string
	}{
		"prefixed reference": {
			input:    "#/schemas/user",
			expected: "user",
		},
		"bare name": {
			input:    "user",
			expected: "user",
		},
		"empty": {
			input:    "",
			expected: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, schema.RefName(tc.input))
		})
	}
}
