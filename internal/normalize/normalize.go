// Package normalize converts raw platform records into canonical posts.
// It never rejects input: hard validation already happened in the
// acquisition client, so this layer only applies defaulting and coercion.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/util"
)

// Normalize converts one raw record into a canonical Post. Missing numeric
// fields become 0. A timestamp that cannot be parsed is coerced to fetchedAt
// with TimeApproximate set, so time-sensitive statistics can exclude it.
func Normalize(raw models.RawPost, fetchedAt time.Time) models.Post {
	published, approximate := parseTime(raw.PublishedAt, fetchedAt)

	return models.Post{
		ID:              raw.ID,
		Title:           strings.TrimSpace(raw.Title),
		BodyExcerpt:     strings.TrimSpace(raw.Content),
		AuthorID:        raw.AuthorID,
		AuthorName:      strings.TrimSpace(raw.AuthorName),
		PublishedAt:     published,
		TimeApproximate: approximate,
		LikeCount:       ParseCount(raw.Likes),
		CommentCount:    ParseCount(raw.Comments),
		CollectCount:    ParseCount(raw.Collects),
		CoverURL:        raw.CoverURL,
		URL:             raw.URL,
		Tags:            raw.Tags,
		City:            strings.TrimSpace(raw.City),
		Category:        raw.Category,
	}
}

// Batch normalizes a slice, preserving input order.
func Batch(raws []models.RawPost, fetchedAt time.Time) []models.Post {
	posts := make([]models.Post, 0, len(raws))
	for _, r := range raws {
		posts = append(posts, Normalize(r, fetchedAt))
	}
	return posts
}

// Dedupe removes entries sharing an ID, keeping the first occurrence and
// preserving input order.
func Dedupe(posts []models.Post) []models.Post {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0:0]
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Truncate caps the slice at n entries. Applied after Dedupe so duplicate
// removal never shrinks a result below the requested size unnecessarily.
func Truncate(posts []models.Post, n int) []models.Post {
	if n <= 0 || len(posts) <= n {
		return posts
	}
	return posts[:n]
}

// ParseCount parses platform count strings: plain digits, "1,234",
// "2.3w"/"2.3万" (ten thousands) and "1.5k"/"1.5千" (thousands).
// Anything unparseable is 0; counts never go negative.
func ParseCount(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.ContainsAny(s, "w") || strings.Contains(s, "万"):
		multiplier = 10000
	case strings.ContainsAny(s, "k") || strings.Contains(s, "千"):
		multiplier = 1000
	}

	num := util.CleanNumericString(s)
	if num == "" {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f * multiplier)
}

// parseTime accepts millisecond epochs (the embedded-state form), RFC 3339
// and plain dates. The second return is true when the value was defaulted.
func parseTime(s string, fetchedAt time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fetchedAt, true
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms), false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false
		}
	}
	return fetchedAt, true
}
