package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"go.jacobcolvin.com/eventsim/sim"
)

// Stdout writes events as JSON lines to a writer, one event per line, or
// indented blocks with the json_pretty format.
type Stdout struct {
	w      io.Writer
	pretty bool
}

// NewStdout creates a writer-backed sink. The format is "json" (default) or
// "json_pretty".
func NewStdout(w io.Writer, format string) *Stdout {
	return &Stdout{w: w, pretty: format == "json_pretty"}
}

// Emit writes one event.
func (s *Stdout) Emit(e *sim.Event) error {
	var (
		data []byte
		err  error
	)

	if s.pretty {
		data, err = json.MarshalIndent(e, "", "  ")
	} else {
		data, err = json.Marshal(e)
	}

	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.w.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (s *Stdout) Close() error { return nil }
