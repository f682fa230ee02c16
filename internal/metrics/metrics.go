// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abelbrown/popweight/internal/decay"
)

// Collector holds the engine's Prometheus metrics. It satisfies
// attribution.Recorder.
type Collector struct {
	documentsScored    prometheus.Counter
	documentsFailed    prometheus.Counter
	timestampsReplaced *prometheus.CounterVec
	invalidValues      prometheus.Counter
	batchDuration      prometheus.Histogram
}

// NewCollector creates the metrics and registers them on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid global state.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		documentsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "popweight_documents_scored_total",
			Help: "Documents scored by the attribution engine",
		}),
		documentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "popweight_failed_documents_total",
			Help: "Documents whose scoring failed and contributed zero",
		}),
		timestampsReplaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popweight_substituted_timestamps_total",
			Help: "Timestamps replaced by the reference instant",
		}, []string{"reason"}),
		invalidValues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "popweight_invalid_values_total",
			Help: "Non-finite sentiment or relevance values treated as 0",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "popweight_batch_duration_seconds",
			Help:    "Wall time of one Aggregate call",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, m := range []prometheus.Collector{
		c.documentsScored,
		c.documentsFailed,
		c.timestampsReplaced,
		c.invalidValues,
		c.batchDuration,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Reason labels for popweight_substituted_timestamps_total.
const (
	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
)

func (c *Collector) TimestampSubstituted(_, _ string, err error) {
	reason := ReasonMalformed
	if errors.Is(err, decay.ErrEmptyTimestamp) {
		reason = ReasonMissing
	}
	c.timestampsReplaced.WithLabelValues(reason).Inc()
}

func (c *Collector) InvalidValue(string, string, float64) {
	c.invalidValues.Inc()
}

func (c *Collector) DocumentScored(string) {
	c.documentsScored.Inc()
}

func (c *Collector) DocumentFailed(string, error) {
	c.documentsFailed.Inc()
}

func (c *Collector) BatchComplete(_ int, elapsed time.Duration) {
	c.batchDuration.Observe(elapsed.Seconds())
}

// Snapshot sums every counter family in g by name. Histograms report their
// sample count. Used for end-of-run summaries.
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
