package generate

import (
	"crypto/md5" //nolint:gosec // Shapes synthetic hashes; not security-relevant.
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goccy/go-yaml"

	"go.jacobcolvin.com/eventsim/schema"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// fakerPrefix marks generator identifiers dispatched to the fake-data
// registry, as in "faker.email" or "faker.ecommerce.product_name".
const fakerPrefix = "faker."

// generateLeaf dispatches a scalar node to its leaf generator.
func (g *Generator) generateLeaf(s *schema.Schema, ctx Context) (any, error) {
	switch {
	case s.Generator == "uuid_v4":
		return g.uuidV4()
	case s.Generator == "random_int":
		return g.randomInt(s.Params)
	case s.Generator == "random_float":
		return g.randomFloat(s.Params), nil
	case s.Generator == "random_alphanumeric":
		return g.randomAlphanumeric(intParam(s.Params, "length", 10)), nil
	case s.Generator == "choice":
		return g.choice(s.Params)
	case s.Generator == "conditional_choice":
		return g.conditionalChoice(s.Params, ctx)
	case s.Generator == "current_timestamp":
		return g.currentTimestamp(s, ctx), nil
	case s.Generator == "static_hashed":
		return g.staticHashed(s.Params)
	case s.Generator == "derived":
		return g.derived(s.Params, ctx)
	case s.Generator == "from_entity":
		return g.fromEntity(s, ctx)
	case strings.HasPrefix(s.Generator, fakerPrefix):
		return g.fake(strings.TrimPrefix(s.Generator, fakerPrefix), s.Params)
	}

	return nil, fmt.Errorf("%w: unknown generator %q", schema.ErrInvalidSchema, s.Generator)
}

// uuidV4 draws identifier bytes from the seeded RNG rather than crypto/rand,
// keeping seeded runs reproducible.
func (g *Generator) uuidV4() (string, error) {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	return id.String(), nil
}

func (g *Generator) randomInt(params map[string]any) (int64, error) {
	minVal := intParam(params, "min", 0)

	maxVal := intParam(params, "max", 100)
	if maxVal < minVal {
		return 0, fmt.Errorf("%w: random_int max %d < min %d", schema.ErrInvalidSchema, maxVal, minVal)
	}

	return int64(minVal + g.rand.Intn(maxVal-minVal+1)), nil
}

func (g *Generator) randomFloat(params map[string]any) float64 {
	minVal := floatParam(params, "min", 0)
	maxVal := floatParam(params, "max", 1)
	precision := intParam(params, "precision", 2)

	value := minVal + g.rand.Float64()*(maxVal-minVal)

	return roundTo(value, precision)
}

func (g *Generator) randomAlphanumeric(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[g.rand.Intn(len(alphanumeric))]
	}

	return string(b)
}

func (g *Generator) choice(params map[string]any) (any, error) {
	choices, _ := params["choices"].([]any)
	weights, hasWeights := params["weights"].([]any)

	return g.chooseWeighted(choices, weights, hasWeights)
}

func (g *Generator) chooseWeighted(choices, weights []any, hasWeights bool) (any, error) {
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: choice requires choices", schema.ErrInvalidSchema)
	}

	if !hasWeights {
		return choices[g.rand.Intn(len(choices))], nil
	}

	if len(weights) != len(choices) {
		return nil, fmt.Errorf("%w: %d weights for %d choices", schema.ErrInvalidSchema, len(weights), len(choices))
	}

	var total float64

	ws := make([]float64, len(weights))

	for i, w := range weights {
		f, ok := toFloat(w)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric weight %v", schema.ErrInvalidSchema, w)
		}

		ws[i] = f
		total += f
	}

	if total <= 0 {
		return nil, fmt.Errorf("%w: weights sum to %v", schema.ErrInvalidSchema, total)
	}

	target := g.rand.Float64() * total

	for i, w := range ws {
		target -= w
		if target < 0 {
			return choices[i], nil
		}
	}

	return choices[len(choices)-1], nil
}

// conditionalChoice selects a case by comparing the context value of
// condition_field, then chooses from that case like choice. With no matching
// case it falls back to the case marked default, then to the first case.
func (g *Generator) conditionalChoice(params map[string]any, ctx Context) (any, error) {
	field, _ := params["condition_field"].(string)

	rawCases, _ := params["cases"].([]any)
	if len(rawCases) == 0 {
		return nil, fmt.Errorf("%w: conditional_choice requires cases", schema.ErrInvalidSchema)
	}

	cases := make([]map[string]any, 0, len(rawCases))

	for _, rc := range rawCases {
		c, ok := rc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: conditional_choice case must be a mapping", schema.ErrInvalidSchema)
		}

		cases = append(cases, c)
	}

	value := ctx[field]

	for _, c := range cases {
		if caseMatches(c, value) {
			return g.chooseFromCase(c)
		}
	}

	for _, c := range cases {
		if isDefault, _ := c["default"].(bool); isDefault {
			return g.chooseFromCase(c)
		}
	}

	return g.chooseFromCase(cases[0])
}

func caseMatches(c map[string]any, value any) bool {
	if expected, ok := c["condition_value"]; ok && looseEqual(expected, value) {
		return true
	}

	if threshold, ok := c["condition_value_greater_than"]; ok {
		if cmp, ordered := compareValues(value, threshold); ordered && cmp > 0 {
			return true
		}
	}

	if threshold, ok := c["condition_value_less_than"]; ok {
		if cmp, ordered := compareValues(value, threshold); ordered && cmp < 0 {
			return true
		}
	}

	if list, ok := c["condition_value_in"].([]any); ok {
		for _, v := range list {
			if looseEqual(v, value) {
				return true
			}
		}
	}

	return false
}

func (g *Generator) chooseFromCase(c map[string]any) (any, error) {
	choices, _ := c["choices"].([]any)
	weights, hasWeights := c["weights"].([]any)

	return g.chooseWeighted(choices, weights, hasWeights)
}

func (g *Generator) currentTimestamp(s *schema.Schema, ctx Context) any {
	t := g.contextTime(ctx)

	switch s.Format {
	case "unix":
		return t.Unix()
	case "unix_ms":
		return t.UnixMilli()
	}

	return t.Format(time.RFC3339)
}

// staticHashed generates a raw value (via a nested sub-generator spec or a
// 12-char random string) and hashes it. The bcrypt-style variant only shapes
// its output like a bcrypt digest; real bcrypt salts from crypto/rand, which
// would break determinism under seed.
func (g *Generator) staticHashed(params map[string]any) (string, error) {
	var raw string

	if source, ok := params["raw_value_source"].(map[string]any); ok {
		sub, err := schemaFromParams(source)
		if err != nil {
			return "", err
		}

		value, err := g.Generate(sub, Context{})
		if err != nil {
			return "", err
		}

		raw = fmt.Sprint(value)
	} else {
		raw = g.randomAlphanumeric(12)
	}

	algorithm, _ := params["algorithm"].(string)

	switch algorithm {
	case "", "bcrypt-style", "bcrypt":
		digest := md5.Sum([]byte(raw)) //nolint:gosec // Shape only, see above.

		return "$2a$10$" + hex.EncodeToString(digest[:])[:22], nil
	case "sha256":
		digest := sha256.Sum256([]byte(raw))

		return hex.EncodeToString(digest[:]), nil
	case "md5":
		digest := md5.Sum([]byte(raw)) //nolint:gosec // Synthetic data only.

		return hex.EncodeToString(digest[:]), nil
	}

	return "", fmt.Errorf("%w: unknown hash algorithm %q", schema.ErrInvalidSchema, algorithm)
}

func (g *Generator) derived(params map[string]any, ctx Context) (any, error) {
	expression, _ := params["expression"].(string)
	if expression == "" {
		return nil, fmt.Errorf("%w: derived requires an expression", schema.ErrInvalidSchema)
	}

	result, err := Eval(expression, ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := params["precision"]; ok {
		if f, isFloat := result.(float64); isFloat {
			result = roundTo(f, intParam(params, "precision", 2))
		}
	}

	return result, nil
}

// schemaFromParams decodes an inline mapping (e.g. raw_value_source) into a
// schema node by round-tripping through YAML.
func schemaFromParams(m map[string]any) (*schema.Schema, error) {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrInvalidSchema, err)
	}

	var s schema.Schema

	err = yaml.Unmarshal(raw, &s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrInvalidSchema, err)
	}

	return &s, nil
}

func intParam(params map[string]any, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}

	f, ok := toFloat(v)
	if !ok {
		return fallback
	}

	return int(f)
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	v, ok := params[key]
	if !ok {
		return fallback
	}

	f, ok := toFloat(v)
	if !ok {
		return fallback
	}

	return f
}

func roundTo(value float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))

	return math.Round(value*factor) / factor
}
