package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.jacobcolvin.com/eventsim/sim"
)

// rotationLimit is how many events a rotated file holds before a new one
// opens.
const rotationLimit = 1000

// File writes events to disk as a JSON array. With rotation enabled
// ("count"), each file holds [rotationLimit] events and carries a timestamped
// suffix; otherwise everything goes to the configured path.
type File struct {
	path     string
	rotation string
	pretty   bool
	now      func() time.Time

	file    *os.File
	written int
	rotated int
}

// NewFile opens a file sink at path. The parent directory is created if
// missing.
func NewFile(path, format, rotation string) (*File, error) {
	if path == "" {
		path = "events.json"
	}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f := &File{
		path:     path,
		rotation: rotation,
		pretty:   format == "json_pretty",
		now:      time.Now,
	}

	err = f.open()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) open() error {
	path := f.path

	if f.rotation != "" {
		ext := filepath.Ext(f.path)
		base := strings.TrimSuffix(f.path, ext)
		path = fmt.Sprintf("%s_%s_%d%s", base, f.now().Format("20060102_150405"), f.rotated, ext)
		f.rotated++
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}

	f.file = file
	f.written = 0

	_, err = file.WriteString("[\n")
	if err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	return nil
}

// Emit appends one event to the current file, rotating first if the limit is
// reached.
func (f *File) Emit(e *sim.Event) error {
	if f.rotation == "count" && f.written >= rotationLimit {
		err := f.closeCurrent()
		if err != nil {
			return err
		}

		err = f.open()
		if err != nil {
			return err
		}
	}

	var (
		data []byte
		err  error
	)

	if f.pretty {
		data, err = json.MarshalIndent(e, "", "  ")
	} else {
		data, err = json.Marshal(e)
	}

	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if f.written > 0 {
		_, err = f.file.WriteString(",\n")
		if err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
	}

	_, err = f.file.Write(data)
	if err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	f.written++

	return nil
}

// Close terminates the JSON array and closes the file.
func (f *File) Close() error {
	return f.closeCurrent()
}

func (f *File) closeCurrent() error {
	if f.file == nil {
		return nil
	}

	_, err := f.file.WriteString("\n]")
	if err != nil {
		f.file.Close()
		f.file = nil

		return fmt.Errorf("finalize output file: %w", err)
	}

	err = f.file.Close()
	f.file = nil

	if err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	return nil
}
