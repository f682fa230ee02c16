package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a document or comment is not a JSON object.
var ErrNotObject = errors.New("model: not a JSON object")

// Field aliases across the scrapers (news site, Facebook page and single-post
// scrapers) and the classifier write-back. First present key wins.
var (
	idKeys           = []string{"newsId", "postId", "_id", "id"}
	publishedKeys    = []string{"publishedAt", "datetime"}
	sharesKeys       = []string{"sharesCount", "numShares", "num_shares"}
	commentCountKeys = []string{"commentCount", "numComments", "num_comments"}
	reactionKeys     = []string{"reactions"}
	sentimentKeys    = []string{"pt_the_senti"}
	relevanceKeys    = []string{"pt_the_candi"}
	commentsKeys     = []string{"top_comments"}

	commentTextKeys      = []string{"commentText", "text"}
	commentReactionKeys  = []string{"commentReaction", "reactions"}
	commentReplyKeys     = []string{"commentReplyCount", "replyCount"}
	commentPublishedKeys = []string{"publishedAt", "datetime"}
)

// object is a decoded JSON object with whitespace-trimmed keys, so that a
// corrupted key like "commentCount " still resolves. An exact key always wins
// over a trimmed duplicate.
type object map[string]json.RawMessage

func decodeObject(data []byte) (object, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotObject
	}

	obj := make(object, len(raw))
	for k, v := range raw {
		tk := strings.TrimSpace(k)
		if _, exists := obj[tk]; exists && tk != k {
			continue
		}
		obj[tk] = v
	}
	return obj, nil
}

// lookup returns the first key holding a non-null value.
func (o object) lookup(keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok || isNull(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

// DecodeDocument decodes one scraped document. Missing optional fields take
// their documented defaults (zero counts, zero sentiment, empty relevance).
func DecodeDocument(data []byte) (Document, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Document{}, err
	}

	var d Document
	if v, ok := obj.lookup(idKeys); ok {
		d.ID = decodeID(v)
	}
	if v, ok := obj.lookup(publishedKeys); ok {
		d.PublishedAt = decodeString(v)
	}
	if v, ok := obj.lookup(sharesKeys); ok {
		d.ShareCount = decodeCount(v)
	}
	if v, ok := obj.lookup(commentCountKeys); ok {
		d.CommentCount = decodeCount(v)
	}
	if v, ok := obj.lookup(reactionKeys); ok {
		d.Reactions = decodeReactions(v)
	}
	if v, ok := obj.lookup(sentimentKeys); ok {
		d.Sentiment = decodeSentiment(v)
	}
	if v, ok := obj.lookup(relevanceKeys); ok {
		d.Relevance = decodeRelevance(v)
	}
	if v, ok := obj.lookup(commentsKeys); ok {
		d.Comments, d.SkippedComments = decodeComments(v)
	}
	return d, nil
}

// decodeComments keeps every object entry of v in order. A non-array v, and
// entries that are null or not objects, are skipped and counted.
func decodeComments(v json.RawMessage) ([]Comment, int) {
	var raws []json.RawMessage
	if err := json.Unmarshal(v, &raws); err != nil {
		return nil, 1
	}
	comments := make([]Comment, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		c, err := decodeComment(raw)
		if err != nil {
			skipped++
			continue
		}
		comments = append(comments, c)
	}
	return comments, skipped
}

func decodeComment(data []byte) (Comment, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Comment{}, err
	}

	var c Comment
	if v, ok := obj.lookup(commentTextKeys); ok {
		c.Text = decodeString(v)
	}
	if v, ok := obj.lookup(commentPublishedKeys); ok {
		c.PublishedAt = decodeString(v)
	}
	if v, ok := obj.lookup(commentReactionKeys); ok {
		c.Reactions = decodeReactions(v)
	}
	if v, ok := obj.lookup(commentReplyKeys); ok {
		c.ReplyCount = decodeCount(v)
	}
	if v, ok := obj.lookup(sentimentKeys); ok {
		c.Sentiment = decodeSentiment(v)
	}
	if v, ok := obj.lookup(relevanceKeys); ok {
		c.Relevance = decodeRelevance(v)
	}
	return c, nil
}

// maxLineSize bounds one JSON Lines record.
const maxLineSize = 16 << 20

// DecodeDocuments reads either a JSON array of documents or JSON Lines.
//
// A record that cannot be decoded does not stop the batch: it comes back in
// place as a Document with Err set. The error return is reserved for input
// that cannot be split into records at all (a broken array, a read failure).
func DecodeDocuments(r io.Reader) ([]Document, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	if first == '[' {
		var raws []json.RawMessage
		if err := json.NewDecoder(br).Decode(&raws); err != nil {
			return nil, fmt.Errorf("decode document array: %w", err)
		}
		docs := make([]Document, 0, len(raws))
		for i, raw := range raws {
			docs = append(docs, decodeRecord(raw, fmt.Sprintf("document %d", i)))
		}
		return docs, nil
	}

	var docs []Document
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		// scanner reuses its buffer
		rec := make([]byte, len(raw))
		copy(rec, raw)
		docs = append(docs, decodeRecord(rec, fmt.Sprintf("line %d", line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document line %d: %w", line+1, err)
	}
	return docs, nil
}

// decodeRecord decodes one record, turning a failure into a placeholder.
func decodeRecord(raw []byte, where string) Document {
	d, err := DecodeDocument(raw)
	if err != nil {
		return Document{Err: fmt.Errorf("%s: %w", where, err)}
	}
	return d
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b, br.UnreadByte()
	}
}

func decodeString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return ""
}

// decodeID accepts strings, numbers and Mongo extended JSON {"$oid": "..."}.
func decodeID(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(v, &oid); err == nil && oid.OID != "" {
		return oid.OID
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeCount accepts JSON numbers and the scraper's count strings
// ("1,204", "1.2K", "3M"). Anything unreadable or negative counts as 0.
func decodeCount(v json.RawMessage) int64 {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return clampCount(f)
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		n, err := ParseCount(s)
		if err == nil {
			return n
		}
	}
	return 0
}

// ParseCount parses an abbreviated count as rendered by the social sites.
// An empty string is 0.
func ParseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1e3
	case 'm', 'M':
		mult = 1e6
	case 'b', 'B':
		mult = 1e9
	}
	if mult != 1 {
		s = strings.TrimSpace(s[:len(s)-1])
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", s, err)
	}
	return clampCount(f * mult), nil
}

func clampCount(f float64) int64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(f))
}

func decodeReactions(v json.RawMessage) ReactionCounter {
	obj, err := decodeObject(v)
	if err != nil || len(obj) == 0 {
		return nil
	}
	out := make(ReactionCounter, len(obj))
	for label, raw := range obj {
		if isNull(raw) {
			continue
		}
		kind, _ := ParseReactionKind(label)
		out[kind] += decodeCount(raw)
	}
	return out
}

// decodeSentiment accepts {"sentiment_score": x} or a bare number.
func decodeSentiment(v json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f
	}
	var wrapped struct {
		Score *float64 `json:"sentiment_score"`
	}
	if err := json.Unmarshal(v, &wrapped); err == nil && wrapped.Score != nil {
		return *wrapped.Score
	}
	return 0
}

func decodeRelevance(v json.RawMessage) Relevance {
	obj, err := decodeObject(v)
	if err != nil || len(obj) == 0 {
		return nil
	}
	out := make(Relevance, len(obj))
	for label, raw := range obj {
		c, ok := ParseCandidate(label)
		if !ok {
			continue
		}
		var p float64
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		out[c] = p
	}
	return out
}
