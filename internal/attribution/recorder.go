package attribution

import (
	"time"

	"github.com/abelbrown/popweight/internal/logging"
)

// Recorder observes recovered data-quality problems and batch progress.
// Implementations must be safe for concurrent use: Score runs on many
// workers at once.
type Recorder interface {
	// TimestampSubstituted is called when a timestamp was missing or
	// unparsable and the reference instant was used instead.
	TimestampSubstituted(docID, raw string, err error)
	// InvalidValue is called when a non-finite score was replaced by 0.
	InvalidValue(docID, field string, value float64)
	DocumentScored(docID string)
	DocumentFailed(docID string, err error)
	BatchComplete(documents int, elapsed time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) TimestampSubstituted(string, string, error) {}
func (NopRecorder) InvalidValue(string, string, float64) {}
func (NopRecorder) DocumentScored(string) {}
func (NopRecorder) DocumentFailed(string, error) {}
func (NopRecorder) BatchComplete(int, time.Duration) {}

// Recorders fans every call out to rs in order. Nil entries are skipped.
func Recorders(rs ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) TimestampSubstituted(docID, raw string, err error) {
	for _, r := range m {
		r.TimestampSubstituted(docID, raw, err)
	}
}

func (m multiRecorder) InvalidValue(docID, field string, value float64) {
	for _, r := range m {
		r.InvalidValue(docID, field, value)
	}
}

func (m multiRecorder) DocumentScored(docID string) {
	for _, r := range m {
		r.DocumentScored(docID)
	}
}

func (m multiRecorder) DocumentFailed(docID string, err error) {
	for _, r := range m {
		r.DocumentFailed(docID, err)
	}
}

func (m multiRecorder) BatchComplete(documents int, elapsed time.Duration) {
	for _, r := range m {
		r.BatchComplete(documents, elapsed)
	}
}

// LogRecorder writes recovered problems to the global logger.
type LogRecorder struct{}

func (LogRecorder) TimestampSubstituted(docID, raw string, err error) {
	logging.Warn("Timestamp substituted with reference instant", "doc", docID, "raw", raw, "err", err)
}

func (LogRecorder) InvalidValue(docID, field string, value float64) {
	logging.Warn("Non-finite value treated as 0", "doc", docID, "field", field, "value", value)
}

func (LogRecorder) DocumentScored(docID string) {
	logging.Debug("Document scored", "doc", docID)
}

func (LogRecorder) DocumentFailed(docID string, err error) {
	logging.Error("Document scoring failed", "doc", docID, "err", err)
}

func (LogRecorder) BatchComplete(documents int, elapsed time.Duration) {
	logging.Info("Batch scored", "documents", documents, "elapsed", elapsed)
}
