package model

import (
	"errors"
	"strings"
	"testing"
)

const scrapedArticle = `{
	"newsId": 1,
	"platform": "Facebook",
	"reactions": {"like": 1200, "love": 50, "haha": 20, "wow": 10, "sad": 5, "angry": 5, "care": 3},
	"sharesCount": 0,
	"commentCount ": 80,
	"publishedAt": "Fri, 20 Sep 2024 12:58:32 GMT+0000",
	"top_comments": [
		{
			"commentText": "I fully support Anura!",
			"commentReaction": {"like": 50, "love": 20},
			"commentReplyCount": 10,
			"publishedAt": "Tue, 24 Sep 2024 15:04:36 GMT+0000",
			"pt_the_candi": {"anura": 0.2, "sajith": 0.4, "ranil": 0.5},
			"pt_the_senti": {"sentiment_score": 0.8}
		},
		{
			"commentText": "Not sure about Anura's policies.",
			"commentReaction": {"haha": 30, "like": 3},
			"commentReplyCount": "5",
			"pt_the_candi": {"Anura": 0.8, "No One": 0.1, "Namal": 0.3},
			"pt_the_senti": {"sentiment_score": -0.4}
		}
	],
	"pt_the_candi": {"anura": 0.5, "sajith": 0.1, "ranil": 0.021312},
	"pt_the_senti": {"sentiment_score": 0.6}
}`

func TestDecodeDocument(t *testing.T) {
	d, err := DecodeDocument([]byte(scrapedArticle))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	if d.ID != "1" {
		t.Errorf("ID: got %q, want %q", d.ID, "1")
	}
	if d.PublishedAt != "Fri, 20 Sep 2024 12:58:32 GMT+0000" {
		t.Errorf("PublishedAt: got %q", d.PublishedAt)
	}
	if d.CommentCount != 80 {
		t.Errorf("CommentCount with trailing-space key: got %d, want 80", d.CommentCount)
	}
	if d.Reactions[Like] != 1200 || d.Reactions[Angry] != 5 {
		t.Errorf("Reactions: got %v", d.Reactions)
	}
	if d.Reactions["care"] != 3 {
		t.Errorf("unknown kind should be carried, got %v", d.Reactions)
	}
	if d.Sentiment != 0.6 {
		t.Errorf("Sentiment: got %f, want 0.6", d.Sentiment)
	}
	if d.Relevance.Of(Anura) != 0.5 || d.Relevance.Of(Other) != 0 {
		t.Errorf("Relevance: got %v", d.Relevance)
	}

	if len(d.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(d.Comments))
	}
	c0, c1 := d.Comments[0], d.Comments[1]
	if c0.Text != "I fully support Anura!" || c0.ReplyCount != 10 || c0.Sentiment != 0.8 {
		t.Errorf("comment 0 mismatch: %+v", c0)
	}
	if c1.PublishedAt != "" {
		t.Errorf("comment 1 should have no timestamp, got %q", c1.PublishedAt)
	}
	if c1.ReplyCount != 5 {
		t.Errorf("string reply count: got %d, want 5", c1.ReplyCount)
	}
	if c1.Relevance.Of(Anura) != 0.8 || c1.Relevance.Of(NoOne) != 0.1 {
		t.Errorf("classifier labels not normalized: %v", c1.Relevance)
	}
	if len(c1.Relevance) != 2 {
		t.Errorf("unknown candidate should be dropped, got %v", c1.Relevance)
	}
}

func TestDecodeDocumentDefaults(t *testing.T) {
	d, err := DecodeDocument([]byte(`{"postId": "abc", "reactions": null, "pt_the_senti": null}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if d.ID != "abc" {
		t.Errorf("ID: got %q", d.ID)
	}
	if d.ShareCount != 0 || d.CommentCount != 0 || d.Sentiment != 0 {
		t.Errorf("expected zero defaults, got %+v", d.Post)
	}
	if len(d.Reactions) != 0 || len(d.Relevance) != 0 || len(d.Comments) != 0 {
		t.Errorf("expected empty collections, got %+v", d.Post)
	}
}

func TestDecodeDocumentExactKeyWins(t *testing.T) {
	d, err := DecodeDocument([]byte(`{"commentCount ": 3, "commentCount": 7}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if d.CommentCount != 7 {
		t.Errorf("exact key should win, got %d", d.CommentCount)
	}
}

func TestDecodeDocumentMongoID(t *testing.T) {
	d, err := DecodeDocument([]byte(`{"_id": {"$oid": "66f2a1"}, "pt_the_senti": 0.25}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if d.ID != "66f2a1" {
		t.Errorf("ID: got %q, want 66f2a1", d.ID)
	}
	if d.Sentiment != 0.25 {
		t.Errorf("bare sentiment: got %f", d.Sentiment)
	}
}

func TestDecodeDocumentNotObject(t *testing.T) {
	for _, in := range []string{`[]`, `null`, `42`} {
		if _, err := DecodeDocument([]byte(in)); err != ErrNotObject {
			t.Errorf("%s: expected ErrNotObject, got %v", in, err)
		}
	}
}

func TestDecodeDocumentSkipsBadComments(t *testing.T) {
	d, err := DecodeDocument([]byte(`{"newsId": 9, "top_comments": [null, 1, "x", {"commentText": "kept"}, []]}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(d.Comments) != 1 || d.Comments[0].Text != "kept" {
		t.Errorf("expected only the object comment, got %+v", d.Comments)
	}
	if d.SkippedComments != 4 {
		t.Errorf("expected 4 skipped comments, got %d", d.SkippedComments)
	}

	d, err = DecodeDocument([]byte(`{"newsId": 9, "top_comments": {"a": 1}}`))
	if err != nil {
		t.Fatalf("object top_comments: %v", err)
	}
	if len(d.Comments) != 0 || d.SkippedComments != 1 {
		t.Errorf("non-array top_comments: got %+v, skipped %d", d.Comments, d.SkippedComments)
	}

	d, err = DecodeDocument([]byte(`{"newsId": 9, "top_comments": null}`))
	if err != nil || d.SkippedComments != 0 || d.Comments != nil {
		t.Errorf("null top_comments means no comments: %+v, %v", d, err)
	}
}

func TestDecodeDocumentsKeepsGoodRecords(t *testing.T) {
	array := `[{"newsId": 1, "sharesCount": 3}, {"newsId": 2, "top_comments": [null]}, 42, {"newsId": 4}]`
	docs, err := DecodeDocuments(strings.NewReader(array))
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("expected a result per record, got %d", len(docs))
	}
	if docs[0].ID != "1" || docs[0].ShareCount != 3 || docs[0].Err != nil {
		t.Errorf("first record: %+v", docs[0])
	}
	if docs[1].Err != nil || docs[1].SkippedComments != 1 {
		t.Errorf("null comment should be skipped, not fail the record: %+v", docs[1])
	}
	if !errors.Is(docs[2].Err, ErrNotObject) || !strings.Contains(docs[2].Err.Error(), "document 2") {
		t.Errorf("bare number should become a failed placeholder, got %v", docs[2].Err)
	}
	if docs[3].ID != "4" || docs[3].Err != nil {
		t.Errorf("record after the bad one: %+v", docs[3])
	}

	lines := "{\"postId\": \"a\"}\n{oops\n\n{\"postId\": \"c\"}\n"
	docs, err = DecodeDocuments(strings.NewReader(lines))
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(docs) != 3 || docs[0].ID != "a" || docs[2].ID != "c" {
		t.Fatalf("lines: got %+v", docs)
	}
	if docs[1].Err == nil || !strings.Contains(docs[1].Err.Error(), "line 2") {
		t.Errorf("malformed line should fail in place, got %v", docs[1].Err)
	}
}

func TestDecodeDocumentsArrayAndLines(t *testing.T) {
	array := `  [{"postId": "a"}, {"postId": "b"}]`
	docs, err := DecodeDocuments(strings.NewReader(array))
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("array: got %+v", docs)
	}

	lines := "{\"postId\": \"a\"}\n{\"postId\": \"b\"}\n{\"postId\": \"c\"}\n"
	docs, err = DecodeDocuments(strings.NewReader(lines))
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(docs) != 3 || docs[2].ID != "c" {
		t.Errorf("lines: got %+v", docs)
	}

	docs, err = DecodeDocuments(strings.NewReader("  \n"))
	if err != nil || docs != nil {
		t.Errorf("empty input: got %v, %v", docs, err)
	}

	if _, err := DecodeDocuments(strings.NewReader(`[{"postId": "a"}, {oops`)); err == nil {
		t.Error("expected error for a broken array")
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"12", 12},
		{"1,204", 1204},
		{"1.2K", 1200},
		{"3m", 3000000},
		{"2.5 B", 2500000000},
		{"-4", 0},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		if err != nil {
			t.Errorf("ParseCount(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := ParseCount("many"); err == nil {
		t.Error("expected error for non-numeric count")
	}
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want Candidate
		ok   bool
	}{
		{"anura", Anura, true},
		{"Sajith", Sajith, true},
		{" RANIL ", Ranil, true},
		{"No One", NoOne, true},
		{"no-one", NoOne, true},
		{"Other", Other, true},
		{"namal", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCandidate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCandidate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCandidatesIsACopy(t *testing.T) {
	cs := Candidates()
	cs[0] = "mutated"
	if Candidates()[0] != Anura {
		t.Error("Candidates() must not expose the backing slice")
	}
	if len(ReactionKinds()) != 6 {
		t.Errorf("expected 6 reaction kinds, got %d", len(ReactionKinds()))
	}
}
