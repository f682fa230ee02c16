package attribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/popweight/internal/model"
)

// corpus builds n varied documents deterministically.
func corpus(n int) []model.Document {
	cs := model.Candidates()
	docs := make([]model.Document, n)
	for i := range docs {
		rel := model.Relevance{}
		for j, c := range cs {
			rel[c] = float64((i+j)%7) / 7
		}
		docs[i] = model.Document{Post: model.Post{
			ID:           fmt.Sprintf("doc-%d", i),
			PublishedAt:  refNow.Add(-time.Duration(i) * 11 * time.Hour).Format(time.RFC3339),
			ShareCount:   int64(i * 3),
			CommentCount: int64(i * 5 % 17),
			Reactions: model.ReactionCounter{
				model.Like:  int64(10 + i),
				model.Haha:  int64(i % 4),
				model.Angry: int64(i % 3),
			},
			Sentiment: float64(i%5-2) / 2,
			Relevance: rel,
			Comments: []model.Comment{{
				Reactions:  model.ReactionCounter{model.Love: int64(i)},
				ReplyCount: int64(i % 6),
				Sentiment:  0.3,
				Relevance:  model.Relevance{cs[i%len(cs)]: 0.8},
			}},
		}}
	}
	return docs
}

func withWorkers(n int) Config {
	cfg := DefaultConfig()
	cfg.Workers = n
	return cfg
}

func vectorsClose(t *testing.T, label string, got, want Vector) {
	t.Helper()
	for c, w := range want {
		if math.Abs(got[c]-w) > tolerance {
			t.Errorf("%s: %s = %v, want %v", label, c, got[c], w)
		}
	}
}

func TestAggregateIndependentOfOrderAndWorkers(t *testing.T) {
	docs := corpus(40)

	seq := New(withWorkers(1), refNow, nil)
	want, results, err := seq.Aggregate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if want.Documents != 40 || len(results) != 40 {
		t.Fatalf("expected 40 documents, got %d/%d", want.Documents, len(results))
	}
	for i, r := range results {
		if r.ID != docs[i].ID {
			t.Fatalf("result %d out of input order: %s", i, r.ID)
		}
	}

	reversed := make([]model.Document, len(docs))
	for i, d := range docs {
		reversed[len(docs)-1-i] = d
	}
	par := New(withWorkers(8), refNow, nil)
	got, _, err := par.Aggregate(context.Background(), reversed)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	vectorsClose(t, "reversed/parallel", got.Weights, want.Weights)

	// Chunked reduction via Merge.
	merged := NewTotals(model.Candidates())
	for start := 0; start < len(docs); start += 7 {
		end := min(start+7, len(docs))
		part, _, err := par.Aggregate(context.Background(), docs[start:end])
		if err != nil {
			t.Fatalf("Aggregate chunk: %v", err)
		}
		merged.Merge(part)
	}
	vectorsClose(t, "chunked", merged.Weights, want.Weights)
	if merged.Documents != want.Documents {
		t.Errorf("chunked document count %d, want %d", merged.Documents, want.Documents)
	}
	for _, c := range model.Candidates() {
		for name, v := range want.Fields[c] {
			if math.Abs(merged.Fields[c][name]-v) > tolerance {
				t.Errorf("chunked field %s/%s = %v, want %v", c, name, merged.Fields[c][name], v)
			}
		}
	}
}

func TestAggregateLedgerMatchesTotals(t *testing.T) {
	e := New(DefaultConfig(), refNow, nil)
	totals, results, err := e.Aggregate(context.Background(), corpus(25))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	for _, r := range results {
		checkLedger(t, r)
	}
	for c, w := range totals.Weights {
		if got := totals.Fields.Sum(c); math.Abs(got-w) > 1e-9 {
			t.Errorf("%s: field totals sum %v != total weight %v", c, got, w)
		}
	}
}

func TestAggregateZeroDocumentIsNeutral(t *testing.T) {
	e := New(DefaultConfig(), refNow, nil)
	zero := model.Document{Post: model.Post{ID: "zero", PublishedAt: refNow.Format(time.RFC3339)}}

	alone, _, err := e.Aggregate(context.Background(), []model.Document{scenarioA()})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	both, results, err := e.Aggregate(context.Background(), []model.Document{scenarioA(), zero})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	for c, w := range alone.Weights {
		if both.Weights[c] != w {
			t.Errorf("%s: zero document changed total from %v to %v", c, w, both.Weights[c])
		}
	}
	vectorsClose(t, "percentages", Normalize(both.Weights), Normalize(alone.Weights))
	if both.Documents != 2 || !results[1].Weights.IsZero() {
		t.Errorf("zero document should count but weigh nothing: %+v", results[1])
	}
}

func TestAggregateIsolatesFailures(t *testing.T) {
	rec := &panickyRecorder{}
	e := New(withWorkers(4), refNow, rec)

	bad := scenarioA()
	bad.ID = "bad"
	bad.PublishedAt = ""
	docs := []model.Document{scenarioA(), bad}

	totals, results, err := e.Aggregate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if results[0].Failed() || !results[1].Failed() {
		t.Fatalf("expected only the second document to fail: %+v", results)
	}
	vectorsClose(t, "totals", totals.Weights, results[0].Weights)
	if rec.batches != 1 {
		t.Errorf("expected one batch completion, got %d", rec.batches)
	}
}

func TestAggregateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(DefaultConfig(), refNow, nil)
	_, results, err := e.Aggregate(ctx, corpus(10))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if results != nil {
		t.Errorf("canceled run should not return partial results, got %d", len(results))
	}
}

func TestAggregateEmpty(t *testing.T) {
	e := New(DefaultConfig(), refNow, nil)
	totals, results, err := e.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if totals.Documents != 0 || len(results) != 0 || !totals.Weights.IsZero() {
		t.Errorf("expected empty totals, got %+v", totals)
	}
	if len(totals.Weights) != 5 {
		t.Errorf("empty totals should still list every candidate, got %v", totals.Weights)
	}
}

func TestNormalize(t *testing.T) {
	v := Vector{model.Anura: 3, model.Sajith: -1, model.Ranil: 0}
	p := Normalize(v)

	if !approx(p[model.Anura], 75) || !approx(p[model.Sajith], -25) || p[model.Ranil] != 0 {
		t.Errorf("unexpected percentages: %v", p)
	}
	abs := 0.0
	for _, x := range p {
		abs += math.Abs(x)
	}
	if !approx(abs, 100) {
		t.Errorf("absolute percentages should sum to 100, got %v", abs)
	}
	if v[model.Anura] != 3 {
		t.Error("Normalize must not modify its input")
	}

	zero := Normalize(Vector{model.Anura: 0, model.Other: 0})
	for c, x := range zero {
		if x != 0 || math.IsNaN(x) {
			t.Errorf("all-zero input: %s = %v, want 0", c, x)
		}
	}
	if len(zero) != 2 {
		t.Errorf("all-zero input should keep keys, got %v", zero)
	}
}

func TestLeader(t *testing.T) {
	order := model.Candidates()

	if c, ok := Leader(Vector{model.Anura: 1, model.Ranil: 2}, order); !ok || c != model.Ranil {
		t.Errorf("expected ranil, got %q ok=%v", c, ok)
	}
	if c, ok := Leader(Vector{model.Sajith: 2, model.Ranil: 2}, order); !ok || c != model.Sajith {
		t.Errorf("tie should go to the earlier candidate, got %q", c)
	}
	if c, ok := Leader(Vector{model.Anura: -3, model.Other: -1}, order); !ok || c != model.Other {
		t.Errorf("expected least negative candidate, got %q", c)
	}
	if _, ok := Leader(Vector{model.Anura: 0}, order); ok {
		t.Error("all-zero vector has no leader")
	}
}

func TestAnalyze(t *testing.T) {
	e := New(DefaultConfig(), refNow, nil)

	neg := scenarioA()
	neg.ID = "neg"
	neg.Sentiment = -0.6
	missing := scenarioA()
	missing.ID = "missing"
	missing.PublishedAt = ""
	nan := scenarioA()
	nan.ID = "nan"
	nan.Relevance[model.Ranil] = math.NaN()
	zero := model.Document{Post: model.Post{ID: "zero", PublishedAt: refNow.Format(time.RFC3339)}}

	r, err := e.Analyze(context.Background(), []model.Document{scenarioA(), neg, missing, nan, zero})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if r.Leader != model.Anura {
		t.Errorf("expected anura to lead, got %q (%v)", r.Leader, r.Totals)
	}
	if !r.Now.Equal(refNow) {
		t.Errorf("report instant: got %v", r.Now)
	}
	// neg leads with the least negative candidate, which is other at 0.
	if r.TopCounts[model.Anura] != 3 || r.TopCounts[model.Other] != 1 {
		t.Errorf("unexpected top counts: %v", r.TopCounts)
	}
	if _, ok := r.TopCounts[model.NoOne]; !ok {
		t.Error("top counts should list every candidate")
	}
	q := r.Quality
	if q.Documents != 5 || q.FailedDocuments != 0 || q.MissingTimestamps != 1 || q.MalformedTimestamps != 0 || q.InvalidValues != 1 {
		t.Errorf("unexpected quality: %+v", q)
	}
	vectorsClose(t, "percentages", r.Percentages, Normalize(r.Totals))
}

func TestRecordersFanOut(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	rec := Recorders(a, nil, b)

	rec.DocumentScored("x")
	rec.InvalidValue("x", "sentiment", math.NaN())
	rec.TimestampSubstituted("x", "", nil)
	rec.DocumentFailed("x", errors.New("boom"))
	rec.BatchComplete(1, time.Second)

	for i, r := range []*countingRecorder{a, b} {
		if r.scored != 1 || len(r.invalid) != 1 || len(r.substituted) != 1 || r.failed != 1 || r.batches != 1 {
			t.Errorf("recorder %d missed calls: %+v", i, r)
		}
	}
}

func TestAnalyzeCountsDecodeFailures(t *testing.T) {
	in := `[{"newsId": 1, "sharesCount": 3, "pt_the_senti": 0.5, "pt_the_candi": {"anura": 1}, "publishedAt": "2024-09-25T12:00:00Z"},
		42,
		{"newsId": 3, "top_comments": [null, 7, {"commentText": "ok"}], "publishedAt": "2024-09-25T12:00:00Z"}]`
	docs, err := model.DecodeDocuments(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeDocuments: %v", err)
	}

	e := New(DefaultConfig(), refNow, nil)
	r, err := e.Analyze(context.Background(), docs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Quality.Documents != 3 || r.Quality.FailedDocuments != 1 {
		t.Errorf("expected 3 documents with 1 failed, got %+v", r.Quality)
	}
	if r.Quality.SkippedComments != 2 {
		t.Errorf("expected 2 skipped comments, got %d", r.Quality.SkippedComments)
	}
	if !r.Documents[1].Failed() || r.Documents[0].Failed() || r.Documents[2].Failed() {
		t.Errorf("only the middle document should fail: %+v", r.Documents)
	}
	if r.Totals[model.Anura] <= 0 || r.Leader != model.Anura {
		t.Errorf("good documents should still be scored, got %v", r.Totals)
	}
}
