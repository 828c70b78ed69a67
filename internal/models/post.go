package models

import "time"

// RawPost is an unvalidated content record as returned by the platform.
// Counts stay in their on-page string form ("2.3w", "856") until the
// normalizer parses them; every field must be treated as untrusted.
type RawPost struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	AuthorID    string   `json:"author_id"`
	AuthorName  string   `json:"author_name"`
	Likes       string   `json:"likes"`
	Comments    string   `json:"comments"`
	Collects    string   `json:"collects"`
	CoverURL    string   `json:"cover_url"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Tags        []string `json:"tags"`
	City        string   `json:"city"`
	Category    string   `json:"category"`
}

// Post is the canonical content unit after normalization. Counts are
// non-negative; missing numeric fields are zero, never null.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	BodyExcerpt  string    `json:"body_excerpt"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	PublishedAt  time.Time `json:"published_at"`
	// TimeApproximate marks a timestamp that could not be parsed from the
	// raw record and was defaulted to fetch time. Time-sensitive statistics
	// should exclude these.
	TimeApproximate bool     `json:"time_approximate,omitempty"`
	LikeCount       int      `json:"like_count"`
	CommentCount    int      `json:"comment_count"`
	CollectCount    int      `json:"collect_count"`
	CoverURL        string   `json:"cover_url,omitempty"`
	URL             string   `json:"url,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	City            string   `json:"city,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// Engagement is the combined interaction count used by rankings and
// distributions.
func (p Post) Engagement() int {
	return p.LikeCount + p.CommentCount + p.CollectCount
}

// SortMode selects the platform-side ordering of search results.
type SortMode string

const (
	SortLatest    SortMode = "latest"
	SortHottest   SortMode = "hottest"
	SortRelevance SortMode = "relevance"
)

// SearchQuery describes one platform search. Immutable once constructed;
// passed by value through the pipeline.
type SearchQuery struct {
	Keyword  string
	MaxItems int
	SortMode SortMode
	City     string
}
