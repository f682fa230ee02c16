package otel

import (
	"errors"
	"strconv"
	"time"

	"github.com/abelbrown/popweight/internal/decay"
)

// Recorder turns engine callbacks into events. It satisfies
// attribution.Recorder.
type Recorder struct {
	L *Logger
}

func (r Recorder) TimestampSubstituted(docID, raw string, err error) {
	kind := KindTimestampMalformed
	if errors.Is(err, decay.ErrEmptyTimestamp) {
		kind = KindTimestampMissing
	}
	ev := Event{Level: LevelWarn, Kind: kind, DocID: docID, Raw: raw}
	if err != nil {
		ev.Err = err.Error()
	}
	r.L.Emit(ev)
}

func (r Recorder) InvalidValue(docID, field string, value float64) {
	r.L.Emit(Event{
		Level: LevelWarn,
		Kind:  KindValueInvalid,
		DocID: docID,
		Field: field,
		Raw:   strconv.FormatFloat(value, 'g', -1, 64),
	})
}

func (r Recorder) DocumentScored(docID string) {
	if !TraceEnabled() {
		return
	}
	r.L.Emit(Event{Level: LevelDebug, Kind: KindDocumentScored, DocID: docID})
}

func (r Recorder) DocumentFailed(docID string, err error) {
	ev := Event{Level: LevelError, Kind: KindDocumentFailed, DocID: docID}
	if err != nil {
		ev.Err = err.Error()
	}
	r.L.Emit(ev)
}

func (r Recorder) BatchComplete(documents int, elapsed time.Duration) {
	r.L.Emit(Event{Level: LevelInfo, Kind: KindBatchComplete, Count: documents, Dur: elapsed})
}
