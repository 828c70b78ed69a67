package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/redinsight/agent/internal/models"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"856", 856},
		{"1,234", 1234},
		{"2.3w", 23000},
		{"2.3万", 23000},
		{"1.5k", 1500},
		{"1.5千", 1500},
		{"10W", 100000},
		{"", 0},
		{"赞", 0},
		{"-5", 5}, // sign stripped, counts never go negative
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	post := Normalize(models.RawPost{
		ID:    "p1",
		Title: "  标题  ",
	}, fetched)

	if post.LikeCount != 0 || post.CommentCount != 0 || post.CollectCount != 0 {
		t.Errorf("missing counts must normalize to zero: %+v", post)
	}
	if post.Title != "标题" {
		t.Errorf("title not trimmed: %q", post.Title)
	}
	if !post.TimeApproximate {
		t.Error("missing timestamp must set TimeApproximate")
	}
	if !post.PublishedAt.Equal(fetched) {
		t.Errorf("missing timestamp must default to fetch time, got %v", post.PublishedAt)
	}
}

func TestNormalizeParsesTimestampForms(t *testing.T) {
	fetched := time.Now()
	tests := []struct {
		in          string
		approximate bool
	}{
		{"1709290800000", false}, // millisecond epoch
		{"2026-03-01T12:00:00Z", false},
		{"2026-03-01 12:00:00", false},
		{"2026-03-01", false},
		{"昨天", true},
	}
	for _, tt := range tests {
		post := Normalize(models.RawPost{ID: "p", PublishedAt: tt.in}, fetched)
		if post.TimeApproximate != tt.approximate {
			t.Errorf("PublishedAt %q: TimeApproximate = %v, want %v", tt.in, post.TimeApproximate, tt.approximate)
		}
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	posts := []models.Post{
		{ID: "a", Title: "first"},
		{ID: "b"},
		{ID: "a", Title: "second"},
		{ID: "c"},
		{ID: "b"},
	}

	out := Dedupe(posts)
	if len(out) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "c" {
		t.Errorf("order not preserved: %+v", out)
	}
	if out[0].Title != "first" {
		t.Errorf("first occurrence must win, got %q", out[0].Title)
	}
}

func TestTruncateAfterDedupe(t *testing.T) {
	// 5 records with 1 duplicate: dedupe first, then cap, so the caller
	// still gets the full requested size when enough unique posts exist.
	raws := make([]models.RawPost, 0, 5)
	for _, id := range []string{"a", "b", "a", "c", "d"} {
		raws = append(raws, models.RawPost{ID: id})
	}

	posts := Truncate(Dedupe(Batch(raws, time.Now())), 3)
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if posts[0].ID != "a" || posts[1].ID != "b" || posts[2].ID != "c" {
		t.Errorf("unexpected IDs after dedupe+truncate: %+v", posts)
	}
}

func TestDedupeThenTruncateFillsRequestedSize(t *testing.T) {
	// 25 records with 3 duplicate ids: the 22 unique posts still fill a
	// 20-post request because truncation happens after dedupe.
	raws := make([]models.RawPost, 0, 25)
	for i := 0; i < 22; i++ {
		raws = append(raws, models.RawPost{ID: fmt.Sprintf("p%02d", i)})
	}
	raws = append(raws, models.RawPost{ID: "p00"}, models.RawPost{ID: "p05"}, models.RawPost{ID: "p10"})

	posts := Truncate(Dedupe(Batch(raws, time.Now())), 20)
	if len(posts) != 20 {
		t.Fatalf("expected exactly 20 posts, got %d", len(posts))
	}
	seen := make(map[string]struct{})
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			t.Fatalf("duplicate id %s in output", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
}

func TestTruncateNoopWhenSmall(t *testing.T) {
	posts := []models.Post{{ID: "a"}}
	if got := Truncate(posts, 10); len(got) != 1 {
		t.Errorf("expected 1 post, got %d", len(got))
	}
	if got := Truncate(posts, 0); len(got) != 1 {
		t.Errorf("n <= 0 must be a no-op, got %d", len(got))
	}
}
