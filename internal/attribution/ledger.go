package attribution

import (
	"strings"

	"github.com/abelbrown/popweight/internal/model"
)

// Contribution field names.
const (
	FieldPostShares       = "post_shares"
	FieldPostComments     = "post_comments"
	FieldPostReactions    = "post_reactions"
	FieldCommentReactions = "comment_reactions"
	FieldCommentReplies   = "comment_replies"

	postReactionPrefix    = "post_reaction_"
	commentReactionPrefix = "comment_reaction_"
)

// PostReactionField names the per-kind breakdown of post reactions.
func PostReactionField(kind model.ReactionKind) string {
	return postReactionPrefix + string(kind)
}

// CommentReactionField names the per-kind breakdown of comment reactions.
func CommentReactionField(kind model.ReactionKind) string {
	return commentReactionPrefix + string(kind)
}

// IsDetailField reports whether a ledger field is a per-kind reaction
// breakdown. Detail fields are compressed per kind, so they audit the
// reaction terms but are not part of the candidate's weight.
func IsDetailField(name string) bool {
	return strings.HasPrefix(name, postReactionPrefix) || strings.HasPrefix(name, commentReactionPrefix)
}

// Vector maps candidate to a signed weight (or percentage).
type Vector map[model.Candidate]float64

func newVector(cs []model.Candidate) Vector {
	v := make(Vector, len(cs))
	for _, c := range cs {
		v[c] = 0
	}
	return v
}

// IsZero reports whether every entry is exactly 0.
func (v Vector) IsZero() bool {
	for _, w := range v {
		if w != 0 {
			return false
		}
	}
	return true
}

// Fields maps contribution field name to a signed amount.
type Fields map[string]float64

// Ledger is the auditable decomposition of each candidate's weight.
type Ledger map[model.Candidate]Fields

func newLedger(cs []model.Candidate) Ledger {
	l := make(Ledger, len(cs))
	for _, c := range cs {
		l[c] = make(Fields)
	}
	return l
}

// Sum returns the total of c's additive fields, which equals c's weight.
func (l Ledger) Sum(c model.Candidate) float64 {
	s := 0.0
	for name, v := range l[c] {
		if IsDetailField(name) {
			continue
		}
		s += v
	}
	return s
}

// add folds o into l elementwise.
func (l Ledger) add(o Ledger) {
	for c, fields := range o {
		dst, ok := l[c]
		if !ok {
			dst = make(Fields, len(fields))
			l[c] = dst
		}
		for name, v := range fields {
			dst[name] += v
		}
	}
}

// Totals is the running corpus reduction. The fold is elementwise addition,
// so totals are independent of order and chunking up to float rounding.
type Totals struct {
	Weights   Vector `json:"weights"`
	Fields    Ledger `json:"fields"`
	Documents int    `json:"documents"`
}

// NewTotals returns empty totals over the candidate set.
func NewTotals(cs []model.Candidate) Totals {
	return Totals{Weights: newVector(cs), Fields: newLedger(cs)}
}

// Add folds one document result into t.
func (t *Totals) Add(r DocumentResult) {
	t.ensure()
	for c, w := range r.Weights {
		t.Weights[c] += w
	}
	t.Fields.add(r.Ledger)
	t.Documents++
}

// Merge folds another partial reduction into t.
func (t *Totals) Merge(o Totals) {
	t.ensure()
	for c, w := range o.Weights {
		t.Weights[c] += w
	}
	t.Fields.add(o.Fields)
	t.Documents += o.Documents
}

func (t *Totals) ensure() {
	if t.Weights == nil {
		t.Weights = make(Vector)
	}
	if t.Fields == nil {
		t.Fields = make(Ledger)
	}
}
