package sink_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/sim"
	"go.jacobcolvin.com/eventsim/sink"
)

func testEvent(eventType string) *sim.Event {
	return &sim.Event{
		EventType: eventType,
		Payload:   map[string]any{"value": 1},
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStdoutJSONLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s := sink.NewStdout(&buf, "json")
	require.NoError(t, s.Emit(testEvent("a")))
	require.NoError(t, s.Emit(testEvent("b")))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	for i, expected := range []string{"a", "b"} {
		var decoded sim.Event

		require.NoError(t, json.Unmarshal([]byte(lines[i]), &decoded))
		assert.Equal(t, expected, decoded.EventType)
	}
}

func TestStdoutPretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	s := sink.NewStdout(&buf, "json_pretty")
	require.NoError(t, s.Emit(testEvent("a")))

	assert.Contains(t, buf.String(), "\n  \"event_type\": \"a\"")
}
