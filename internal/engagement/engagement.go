// Package engagement folds raw counters into bounded, comparable magnitudes.
//
// Normalization is local to a document (logarithmic compression) rather than
// relative to a corpus maximum, so a document's score never depends on which
// other documents happen to be in the batch.
package engagement

import (
	"math"

	"github.com/abelbrown/popweight/internal/model"
)

// Table maps reaction kind to a signed weight. Negative weights (haha, angry)
// discount apparent positive engagement.
type Table map[model.ReactionKind]float64

// DefaultTable returns the production reaction weights.
func DefaultTable() Table {
	return Table{
		model.Like:  0.50,
		model.Love:  0.60,
		model.Haha:  -0.4,
		model.Wow:   0.005,
		model.Angry: -0.50,
		model.Sad:   -0.005,
	}
}

// Weighted returns the signed weighted reaction score of counter and each known
// kind's term. Kinds missing from the table weigh zero and are left out of
// perKind.
func (t Table) Weighted(counter model.ReactionCounter) (total float64, perKind map[model.ReactionKind]float64) {
	perKind = make(map[model.ReactionKind]float64, len(counter))
	for kind, count := range counter {
		w, ok := t[kind]
		if !ok {
			continue
		}
		term := w * float64(count)
		perKind[kind] = term
		total += term
	}
	return total, perKind
}

// LogNormalize returns ln(1+|x|).
func LogNormalize(x float64) float64 {
	return math.Log1p(math.Abs(x))
}

// Weights scales each engagement sub-score.
type Weights struct {
	Shares           float64 `yaml:"shares" json:"shares"`
	Comments         float64 `yaml:"comments" json:"comments"`
	CommentReactions float64 `yaml:"comment_reactions" json:"comment_reactions"`
	CommentReplies   float64 `yaml:"comment_replies" json:"comment_replies"`
}

// DefaultWeights returns the production engagement weights.
func DefaultWeights() Weights {
	return Weights{
		Shares:           0.25,
		Comments:         0.25,
		CommentReactions: 0.6,
		CommentReplies:   0.4,
	}
}
