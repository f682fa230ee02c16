package attribution

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/popweight/internal/model"
)

// Aggregate scores every document on a pool of cfg.Workers goroutines and sums
// the results. Each worker writes only its own slot of the result slice; the
// fold runs afterwards in input order. A failing document contributes zeros
// and never aborts the batch.
//
// The only error is ctx's: once ctx is done no further documents are
// dispatched.
func (e *Engine) Aggregate(ctx context.Context, docs []model.Document) (Totals, []DocumentResult, error) {
	start := time.Now()
	results := make([]DocumentResult, len(docs))

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)

	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			results[i] = e.Score(docs[i])
			return nil // per-document failures live on the result
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Totals{}, nil, err
	}

	totals := NewTotals(e.cfg.Candidates)
	for _, r := range results {
		totals.Add(r)
	}
	e.rec.BatchComplete(len(docs), time.Since(start))
	return totals, results, nil
}

// Normalize rescales v to percentages of the sum of absolute values, so signs
// survive and magnitudes sum to 100. An all-zero (or empty) v maps every key
// to 0.
func Normalize(v Vector) Vector {
	denom := 0.0
	for _, w := range v {
		denom += math.Abs(w)
	}

	out := make(Vector, len(v))
	for c, w := range v {
		if denom > 0 {
			out[c] = w / denom * 100
		} else {
			out[c] = 0
		}
	}
	return out
}

// Leader returns the candidate with the highest weight, earliest in order on
// ties. ok is false when every weight is zero.
func Leader(v Vector, order []model.Candidate) (model.Candidate, bool) {
	if v.IsZero() {
		return "", false
	}
	var best model.Candidate
	found := false
	for _, c := range order {
		w, ok := v[c]
		if !ok {
			continue
		}
		if !found || w > v[best] {
			best, found = c, true
		}
	}
	return best, found
}

// Quality counts the recovered problems of a run.
type Quality struct {
	Documents           int `json:"documents"`
	FailedDocuments     int `json:"failed_documents"`
	MissingTimestamps   int `json:"missing_timestamps"`
	MalformedTimestamps int `json:"malformed_timestamps"`
	InvalidValues       int `json:"invalid_values"`
	SkippedComments     int `json:"skipped_comments"`
}

// Report is the full output of one run.
type Report struct {
	Now         time.Time               `json:"now"`
	Totals      Vector                  `json:"totals"`
	Percentages Vector                  `json:"percentages"`
	Fields      Ledger                  `json:"fields"`
	TopCounts   map[model.Candidate]int `json:"top_counts"`
	Leader      model.Candidate         `json:"leader,omitempty"`
	Documents   []DocumentResult        `json:"documents"`
	Quality     Quality                 `json:"quality"`
}

// Analyze runs Aggregate and Normalize and derives the corpus summaries:
// how often each candidate leads a single document, and the overall leader.
func (e *Engine) Analyze(ctx context.Context, docs []model.Document) (*Report, error) {
	totals, results, err := e.Aggregate(ctx, docs)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Now:         e.now,
		Totals:      totals.Weights,
		Percentages: Normalize(totals.Weights),
		Fields:      totals.Fields,
		TopCounts:   make(map[model.Candidate]int, len(e.cfg.Candidates)),
		Documents:   results,
	}
	for _, c := range e.cfg.Candidates {
		r.TopCounts[c] = 0
	}
	if leader, ok := Leader(totals.Weights, e.cfg.Candidates); ok {
		r.Leader = leader
	}

	r.Quality.Documents = len(results)
	for _, res := range results {
		if res.Failed() {
			r.Quality.FailedDocuments++
		}
		r.Quality.MissingTimestamps += res.MissingTimestamps
		r.Quality.MalformedTimestamps += res.MalformedTimestamps
		r.Quality.InvalidValues += res.InvalidValues
		r.Quality.SkippedComments += res.SkippedComments
		if leader, ok := Leader(res.Weights, e.cfg.Candidates); ok {
			r.TopCounts[leader]++
		}
	}
	return r, nil
}
