package sink_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/eventsim/config"
	"go.jacobcolvin.com/eventsim/sink"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	t.Run("disabled outputs are skipped", func(t *testing.T) {
		t.Parallel()

		sinks, err := sink.FromConfig([]config.OutputConfig{
			{Type: "stdout"},
			{Type: "file", Enabled: boolPtr(false), FilePath: "/nonexistent/events.json"},
		})
		require.NoError(t, err)
		assert.Len(t, sinks, 1)
	})

	t.Run("no outputs defaults to stdout", func(t *testing.T) {
		t.Parallel()

		sinks, err := sink.FromConfig(nil)
		require.NoError(t, err)
		require.Len(t, sinks, 1)
		assert.IsType(t, &sink.Stdout{}, sinks[0])
	})

	t.Run("file output", func(t *testing.T) {
		t.Parallel()

		sinks, err := sink.FromConfig([]config.OutputConfig{
			{Type: "file", FilePath: filepath.Join(t.TempDir(), "events.json")},
		})
		require.NoError(t, err)
		require.Len(t, sinks, 1)

		for _, s := range sinks {
			require.NoError(t, s.Close())
		}
	})
}
