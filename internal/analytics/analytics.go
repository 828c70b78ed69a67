// Package analytics computes aggregate statistics over normalized posts.
// Every function here is pure: no network access, no mutation of input,
// deterministic output for identical input. Where input order is not
// guaranteed by the caller, ties are broken by an explicit secondary key.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/redinsight/agent/internal/models"
)

// bucketBound defines one interaction-distribution range [Min, Max).
type bucketBound struct {
	Min   int
	Max   int // math.MaxInt for the open-ended bucket
	Label string
}

var defaultBuckets = []bucketBound{
	{0, 100, "0-100"},
	{100, 500, "100-500"},
	{500, 1000, "500-1k"},
	{1000, 5000, "1k-5k"},
	{5000, 10000, "5k-1w"},
	{10000, 50000, "1w-5w"},
	{50000, math.MaxInt, "5w+"},
}

// InteractionDistribution buckets posts by combined engagement. The counts
// across all buckets always sum to len(posts); an empty input populates no
// bucket.
func InteractionDistribution(posts []models.Post) []models.Bucket {
	out := make([]models.Bucket, len(defaultBuckets))
	for i, b := range defaultBuckets {
		out[i] = models.Bucket{Label: b.Label}
	}

	for _, p := range posts {
		e := p.Engagement()
		for i, b := range defaultBuckets {
			if e >= b.Min && e < b.Max {
				out[i].Count++
				out[i].TotalEngagement += e
				break
			}
		}
	}

	if total := len(posts); total > 0 {
		for i := range out {
			out[i].Percentage = round1(float64(out[i].Count) / float64(total) * 100)
		}
	}
	return out
}

// KeywordFrequency tokenizes title, excerpt and tags, drops stop words and
// returns the topK tokens by descending frequency. Ties are broken by first
// occurrence across the input sequence, making repeated calls on identical
// input produce identical ordered output.
func KeywordFrequency(posts []models.Post, topK int, stopwords map[string]struct{}) []models.Keyword {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	next := 0

	record := func(tok string) {
		if _, stop := stopwords[tok]; stop {
			return
		}
		if _, ok := firstSeen[tok]; !ok {
			firstSeen[tok] = next
			next++
		}
		counts[tok]++
	}

	for _, p := range posts {
		for _, tok := range tokenize(p.Title + " " + p.BodyExcerpt) {
			record(tok)
		}
		for _, tag := range p.Tags {
			if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
				record(t)
			}
		}
	}

	words := make([]models.Keyword, 0, len(counts))
	for w, c := range counts {
		words = append(words, models.Keyword{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return firstSeen[words[i].Word] < firstSeen[words[j].Word]
	})

	if topK > 0 && len(words) > topK {
		words = words[:topK]
	}
	return words
}

// AuthorRanking groups posts by author, sums like+comment+collect counts and
// ranks descending. Ties are broken by lexical author id so the order is
// stable regardless of input order.
func AuthorRanking(posts []models.Post, topK int) []models.AuthorRank {
	byAuthor := make(map[string]*models.AuthorRank)
	topLikes := make(map[string]int)

	for _, p := range posts {
		key := p.AuthorID
		if key == "" {
			key = p.AuthorName
		}
		if key == "" {
			continue
		}

		r, ok := byAuthor[key]
		if !ok {
			r = &models.AuthorRank{AuthorID: key, AuthorName: p.AuthorName}
			byAuthor[key] = r
		}
		r.PostCount++
		r.TotalLikes += p.LikeCount
		r.TotalComments += p.CommentCount
		r.TotalCollects += p.CollectCount
		r.Engagement += p.Engagement()
		if p.LikeCount >= topLikes[key] && p.Title != "" {
			if p.LikeCount > topLikes[key] || r.TopPost == "" {
				topLikes[key] = p.LikeCount
				r.TopPost = p.Title
			}
		}
	}

	ranks := make([]models.AuthorRank, 0, len(byAuthor))
	for _, r := range byAuthor {
		ranks = append(ranks, *r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Engagement != ranks[j].Engagement {
			return ranks[i].Engagement > ranks[j].Engagement
		}
		return ranks[i].AuthorID < ranks[j].AuthorID
	})

	if topK > 0 && len(ranks) > topK {
		ranks = ranks[:topK]
	}
	return ranks
}

// Weights configures the quality score. Engagement counts are normalized
// against the caps; the completeness points reward non-empty title and
// excerpt, a cover image and tags. All weights together bound the score.
type Weights struct {
	LikePoints    float64
	CommentPoints float64
	CollectPoints float64
	LikeCap       int
	CommentCap    int
	CollectCap    int
	TitlePoints   float64
	ExcerptPoints float64
	CoverPoints   float64
	TagPoints     float64
}

// DefaultWeights sums to exactly 100 points.
func DefaultWeights() Weights {
	return Weights{
		LikePoints:    40,
		CommentPoints: 15,
		CollectPoints: 15,
		LikeCap:       10000,
		CommentCap:    1000,
		CollectCap:    1000,
		TitlePoints:   10,
		ExcerptPoints: 10,
		CoverPoints:   5,
		TagPoints:     5,
	}
}

// QualityScore rates one post in [0,100]. Pure and deterministic: identical
// inputs always yield identical scores.
func QualityScore(p models.Post, w Weights) float64 {
	score := ratio(p.LikeCount, w.LikeCap)*w.LikePoints +
		ratio(p.CommentCount, w.CommentCap)*w.CommentPoints +
		ratio(p.CollectCount, w.CollectCap)*w.CollectPoints

	if strings.TrimSpace(p.Title) != "" {
		score += w.TitlePoints
	}
	if strings.TrimSpace(p.BodyExcerpt) != "" {
		score += w.ExcerptPoints
	}
	if p.CoverURL != "" {
		score += w.CoverPoints
	}
	if len(p.Tags) > 0 {
		score += w.TagPoints
	}

	return round1(math.Min(math.Max(score, 0), 100))
}

// BuildStatistics assembles the full statistics payload for a post set.
func BuildStatistics(keyword string, posts []models.Post, topK int) *models.Statistics {
	stats := &models.Statistics{
		Keyword:    keyword,
		TotalPosts: len(posts),
	}
	if len(posts) == 0 {
		stats.Distribution = InteractionDistribution(posts)
		stats.Insights = []string{"No posts available for this query."}
		return stats
	}

	for _, p := range posts {
		stats.TotalLikes += p.LikeCount
		stats.TotalComments += p.CommentCount
		stats.TotalCollects += p.CollectCount
		if p.LikeCount > stats.MaxLikes {
			stats.MaxLikes = p.LikeCount
		}
	}
	stats.TotalEngagement = stats.TotalLikes + stats.TotalComments + stats.TotalCollects
	stats.AvgEngagement = round1(float64(stats.TotalEngagement) / float64(len(posts)))

	stats.Distribution = InteractionDistribution(posts)
	stats.Keywords = KeywordFrequency(posts, topK, nil)
	stats.TopAuthors = AuthorRanking(posts, topK)

	weights := DefaultWeights()
	scores := make([]models.PostScore, 0, len(posts))
	for _, p := range posts {
		scores = append(scores, models.PostScore{
			PostID: p.ID,
			Title:  p.Title,
			Score:  QualityScore(p, weights),
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].PostID < scores[j].PostID
	})
	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}
	stats.QualityScores = scores

	stats.Insights = insights(stats)
	return stats
}

func insights(s *models.Statistics) []string {
	var out []string
	out = append(out, fmt.Sprintf("Analyzed %d posts with a combined engagement of %d.", s.TotalPosts, s.TotalEngagement))

	switch {
	case s.AvgEngagement > 10000:
		out = append(out, fmt.Sprintf("Average engagement of %.0f per post, exceptionally hot topic.", s.AvgEngagement))
	case s.AvgEngagement > 1000:
		out = append(out, fmt.Sprintf("Average engagement of %.0f per post, solid interest.", s.AvgEngagement))
	}

	if len(s.Keywords) >= 3 {
		top := make([]string, 0, 5)
		for _, k := range s.Keywords {
			top = append(top, k.Word)
			if len(top) == 5 {
				break
			}
		}
		out = append(out, "Trending terms: "+strings.Join(top, ", "))
	}

	viral := 0
	for _, b := range s.Distribution {
		if b.Label == "1w-5w" || b.Label == "5w+" {
			viral += b.Count
		}
	}
	if s.TotalPosts > 0 && viral*5 >= s.TotalPosts {
		out = append(out, fmt.Sprintf("%d of %d posts cleared 10k engagement, high viral rate.", viral, s.TotalPosts))
	}

	if len(s.TopAuthors) > 0 {
		a := s.TopAuthors[0]
		name := a.AuthorName
		if name == "" {
			name = a.AuthorID
		}
		out = append(out, fmt.Sprintf("Top creator %q drew %d likes across %d posts.", name, a.TotalLikes, a.PostCount))
	}
	return out
}

// DefaultStopwords covers common Chinese filler plus platform slang and a few
// English function words, mirroring what the platform's content needs.
var DefaultStopwords = buildStopwords(
	"的", "了", "是", "在", "我", "有", "和", "就", "不", "人", "都", "一", "一个",
	"上", "也", "很", "到", "说", "要", "去", "你", "会", "着", "没有", "看", "好",
	"自己", "这", "那", "里", "为", "什么", "吗", "个", "能", "么", "做", "被",
	"与", "及", "等", "但", "还", "可以", "这个", "那个", "没", "来", "让", "给",
	"把", "从", "最", "更", "真的", "觉得", "太", "啊", "呢", "吧", "嘛",
	"呀", "哦", "哈哈", "嗯", "超级", "非常", "特别", "绝绝子", "家人们",
	"姐妹们", "宝子们", "集美们",
	"the", "and", "for", "with", "this", "that", "you", "your",
)

func buildStopwords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// tokenize splits text into lowercase latin words (length >= 2) and
// overlapping CJK bigrams, in reading order.
func tokenize(text string) []string {
	var tokens []string
	var latin []rune
	var cjk []rune

	flushLatin := func() {
		if len(latin) >= 2 {
			tokens = append(tokens, strings.ToLower(string(latin)))
		}
		latin = latin[:0]
	}
	flushCJK := func() {
		for i := 0; i+1 < len(cjk); i++ {
			tokens = append(tokens, string(cjk[i:i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushLatin()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			latin = append(latin, r)
		default:
			flushLatin()
			flushCJK()
		}
	}
	flushLatin()
	flushCJK()
	return tokens
}

func ratio(n, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	if n >= limit {
		return 1
	}
	if n < 0 {
		return 0
	}
	return float64(n) / float64(limit)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
