// Package sink delivers simulation events to their destinations.
//
// Three sink types exist: stdout (JSON lines, optionally pretty-printed),
// file (a JSON array with optional count-based rotation), and kafka
// (per-event-type topic routing over segmentio/kafka-go). [FromConfig] turns
// output configuration into the corresponding set of sinks.
package sink
