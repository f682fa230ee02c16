// Package attribution computes engagement-weighted candidate popularity.
//
// Engine.Score turns one document into a candidate weight vector plus a
// contribution ledger. Engine.Aggregate maps Score over a batch on a bounded
// worker pool and folds the results. Normalize rescales totals into a signed
// percentage distribution.
//
// Every call is a pure function of its inputs and the reference instant the
// Engine was built with: all documents in a run decay against the same now.
package attribution

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/abelbrown/popweight/internal/decay"
	"github.com/abelbrown/popweight/internal/engagement"
	"github.com/abelbrown/popweight/internal/model"
)

// Config holds the deployment constants of the engine. Fields are used as
// given: a zero table or weight means that term contributes nothing, and a
// half-life <= 0 disables decay. Start from DefaultConfig for the production
// constants.
type Config struct {
	Reactions    engagement.Table
	Engagement   engagement.Weights
	HalfLifeDays float64
	Candidates   []model.Candidate // empty means the full closed set

	// Workers bounds the parallel map. <= 0 uses GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		Reactions:    engagement.DefaultTable(),
		Engagement:   engagement.DefaultWeights(),
		HalfLifeDays: decay.DefaultHalfLifeDays,
		Candidates:   model.Candidates(),
	}
}

// Engine scores documents against one reference instant.
// Safe for concurrent use; it holds no mutable state.
type Engine struct {
	cfg Config
	now time.Time
	rec Recorder
}

// New creates an Engine. rec may be nil.
func New(cfg Config, now time.Time, rec Recorder) *Engine {
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = model.Candidates()
	} else {
		cs := make([]model.Candidate, len(cfg.Candidates))
		copy(cs, cfg.Candidates)
		cfg.Candidates = cs
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Engine{cfg: cfg, now: now.UTC(), rec: rec}
}

// Now returns the reference instant.
func (e *Engine) Now() time.Time { return e.now }

// Candidates returns the candidate set in reporting order.
func (e *Engine) Candidates() []model.Candidate {
	cs := make([]model.Candidate, len(e.cfg.Candidates))
	copy(cs, e.cfg.Candidates)
	return cs
}

// DocumentResult is one document's attribution.
type DocumentResult struct {
	ID          string `json:"id"`
	Weights     Vector `json:"weights"`
	Ledger      Ledger `json:"ledger"`
	Percentages Vector `json:"percentages"`

	MissingTimestamps   int `json:"missing_timestamps,omitempty"`
	MalformedTimestamps int `json:"malformed_timestamps,omitempty"`
	InvalidValues       int `json:"invalid_values,omitempty"`
	SkippedComments     int `json:"skipped_comments,omitempty"`

	// Error is set when the document could not be scored. Its weights are
	// then all zero.
	Error string `json:"error,omitempty"`
}

// Failed reports whether scoring this document failed.
func (r DocumentResult) Failed() bool { return r.Error != "" }

// Score computes the weight vector and ledger of one document.
// It never fails the caller: bad timestamps fall back to the reference
// instant, non-finite scores count as 0, and an undecodable document or a
// panic is reported in DocumentResult.Error.
func (e *Engine) Score(doc model.Document) (res DocumentResult) {
	res = DocumentResult{
		ID:              doc.ID,
		Weights:         newVector(e.cfg.Candidates),
		Ledger:          newLedger(e.cfg.Candidates),
		SkippedComments: doc.SkippedComments,
	}
	if doc.Err != nil {
		res.Percentages = newVector(e.cfg.Candidates)
		res.Error = doc.Err.Error()
		e.rec.DocumentFailed(doc.ID, doc.Err)
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("score document %q: %v", doc.ID, r)
			res.Weights = newVector(e.cfg.Candidates)
			res.Ledger = newLedger(e.cfg.Candidates)
			res.Percentages = newVector(e.cfg.Candidates)
			res.Error = err.Error()
			e.rec.DocumentFailed(doc.ID, err)
		}
	}()

	s := scorer{e: e, doc: &doc, res: &res}
	s.parser = decay.Parser{Now: e.now, OnError: s.timestampFailed}

	s.post()
	for i := range doc.Comments {
		s.comment(&doc.Comments[i])
	}

	res.Percentages = Normalize(res.Weights)
	e.rec.DocumentScored(doc.ID)
	return res
}

// scorer carries per-document state through one Score call.
type scorer struct {
	e      *Engine
	doc    *model.Document
	res    *DocumentResult
	parser decay.Parser
}

func (s *scorer) post() {
	cfg := &s.e.cfg
	p := &s.doc.Post

	d := decay.Factor(s.parser.Parse(p.PublishedAt), s.e.now, cfg.HalfLifeDays)
	sentiment := s.finite("sentiment", p.Sentiment)

	shares := cfg.Engagement.Shares * engagement.LogNormalize(float64(p.ShareCount))
	comments := cfg.Engagement.Comments * engagement.LogNormalize(float64(p.CommentCount))
	total, perKind := cfg.Reactions.Weighted(p.Reactions)
	reactions := engagement.LogNormalize(total)
	ep := shares + comments + reactions

	for _, c := range cfg.Candidates {
		m := s.finite("relevance."+string(c), p.Relevance.Of(c)) * sentiment * d
		s.res.Weights[c] += ep * m

		f := s.res.Ledger[c]
		f[FieldPostShares] += shares * m
		f[FieldPostComments] += comments * m
		f[FieldPostReactions] += reactions * m
		for kind, term := range perKind {
			f[PostReactionField(kind)] += engagement.LogNormalize(term) * m
		}
	}
}

func (s *scorer) comment(cm *model.Comment) {
	cfg := &s.e.cfg

	raw := cm.PublishedAt
	if strings.TrimSpace(raw) == "" {
		raw = s.doc.PublishedAt
	}
	d := decay.Factor(s.parser.Parse(raw), s.e.now, cfg.HalfLifeDays)
	sentiment := s.finite("comment.sentiment", cm.Sentiment)

	total, perKind := cfg.Reactions.Weighted(cm.Reactions)
	reactions := cfg.Engagement.CommentReactions * engagement.LogNormalize(total)
	replies := cfg.Engagement.CommentReplies * engagement.LogNormalize(float64(cm.ReplyCount))
	ec := reactions + replies

	for _, c := range cfg.Candidates {
		m := s.finite("comment.relevance."+string(c), cm.Relevance.Of(c)) * sentiment * d
		s.res.Weights[c] += ec * m

		f := s.res.Ledger[c]
		f[FieldCommentReactions] += reactions * m
		f[FieldCommentReplies] += replies * m
		for kind, term := range perKind {
			f[CommentReactionField(kind)] += engagement.LogNormalize(term) * cfg.Engagement.CommentReactions * m
		}
	}
}

// finite replaces NaN and ±Inf with 0 and reports them.
func (s *scorer) finite(field string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		s.res.InvalidValues++
		s.e.rec.InvalidValue(s.doc.ID, field, v)
		return 0
	}
	return v
}

func (s *scorer) timestampFailed(raw string, err error) {
	if errors.Is(err, decay.ErrEmptyTimestamp) {
		s.res.MissingTimestamps++
	} else {
		s.res.MalformedTimestamps++
	}
	s.e.rec.TimestampSubstituted(s.doc.ID, raw, err)
}
