package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled turns on per-document events. Set once from POPWEIGHT_TRACE.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("POPWEIGHT_TRACE") != "")
}

// TraceEnabled reports whether per-document events are emitted.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag in tests.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
