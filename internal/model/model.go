// Package model provides the document types consumed by the attribution engine.
//
// A Document is one scraped post plus its ordered top comments, already annotated
// by the external classifiers with a sentiment score and a candidate relevance
// vector. Values are read-only snapshots: nothing in this module mutates them.
package model

import "strings"

// Candidate identifies one member of the closed candidate set.
type Candidate string

const (
	Anura  Candidate = "anura"
	Sajith Candidate = "sajith"
	Ranil  Candidate = "ranil"
	Other  Candidate = "other"
	NoOne  Candidate = "no_one"
)

var candidates = []Candidate{Anura, Sajith, Ranil, Other, NoOne}

// Candidates returns the closed candidate set in reporting order.
// The returned slice is a copy.
func Candidates() []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	return out
}

// ParseCandidate maps a classifier label ("Anura", "No One", "no_one") onto the
// closed set. Unknown labels report ok=false and are ignored by callers.
func ParseCandidate(label string) (Candidate, bool) {
	c := Candidate(normalizeLabel(label))
	for _, known := range candidates {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ReactionKind identifies a reaction button.
type ReactionKind string

const (
	Like  ReactionKind = "like"
	Love  ReactionKind = "love"
	Haha  ReactionKind = "haha"
	Wow   ReactionKind = "wow"
	Angry ReactionKind = "angry"
	Sad   ReactionKind = "sad"
)

var reactionKinds = []ReactionKind{Like, Love, Haha, Wow, Angry, Sad}

// ReactionKinds returns the known reaction kinds in reporting order.
func ReactionKinds() []ReactionKind {
	out := make([]ReactionKind, len(reactionKinds))
	copy(out, reactionKinds)
	return out
}

// ParseReactionKind normalizes a reaction label. Labels outside the known set
// (the scraper also emits "care") are still returned, with ok=false, so they can
// be carried in a counter and weighed as zero.
func ParseReactionKind(label string) (ReactionKind, bool) {
	k := ReactionKind(normalizeLabel(label))
	for _, known := range reactionKinds {
		if k == known {
			return k, true
		}
	}
	return k, false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ReactionCounter maps reaction kind to a non-negative count.
type ReactionCounter map[ReactionKind]int64

// Relevance maps candidate to a probability-like score in [0,1].
// Values need not sum to 1. A missing candidate reads as 0.
type Relevance map[Candidate]float64

// Of returns the relevance of c, or 0 when absent.
func (r Relevance) Of(c Candidate) float64 {
	return r[c]
}

// Comment is one top comment on a post.
type Comment struct {
	Text        string
	PublishedAt string // free-form; empty means "use the parent post's"
	Reactions   ReactionCounter
	ReplyCount  int64
	Sentiment   float64
	Relevance   Relevance
}

// Post is a scraped article or social post.
type Post struct {
	ID           string
	PublishedAt  string
	ShareCount   int64
	CommentCount int64
	Reactions    ReactionCounter
	Sentiment    float64
	Relevance    Relevance
	Comments     []Comment // scrape order

	// SkippedComments counts top_comments entries that were not objects.
	SkippedComments int
}

// Document is the unit of attribution: a post and its comments.
type Document struct {
	Post

	// Err is set by DecodeDocuments when the raw record could not be read.
	// Such a document carries no data and is scored as failed.
	Err error
}
