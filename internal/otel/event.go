// Package otel records data-quality and batch events for popweight.
//
// Events are typed structs written as JSONL by an asynchronous Logger. A
// RingBuffer keeps the most recent events in memory so a run can summarize
// what it recovered from without re-reading the log.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	KindTimestampMissing   EventKind = "timestamp.missing"
	KindTimestampMalformed EventKind = "timestamp.malformed"
	KindValueInvalid       EventKind = "value.invalid"
	KindDocumentScored     EventKind = "document.scored"
	KindDocumentFailed     EventKind = "document.failed"
	KindBatchComplete      EventKind = "batch.complete"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is one JSONL record. Every field except Kind and Time is optional.
type Event struct {
	Time  time.Time      `json:"t"`
	Level Level          `json:"level,omitempty"`
	Kind  EventKind      `json:"kind"`
	RunID string         `json:"run_id,omitempty"` // random hex, same for the whole run
	DocID string         `json:"doc,omitempty"`
	Field string         `json:"field,omitempty"`
	Raw   string         `json:"raw,omitempty"` // offending input, verbatim
	Dur   time.Duration  `json:"-"`
	DurMs float64        `json:"dur_ms,omitempty"`
	Count int            `json:"count,omitempty"`
	Err   string         `json:"err,omitempty"`
	Msg   string         `json:"msg,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
