package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/normalize"
)

// rankingCategory describes one leaderboard: its display text and the
// platform search terms whose results are pooled and re-ranked.
type rankingCategory struct {
	Title       string
	Description string
	Keywords    []string
}

var rankingCategories = map[string]rankingCategory{
	"hot":     {"热门内容榜", "全平台最热门的内容", []string{"热门", "爆款"}},
	"beauty":  {"美妆热榜", "美妆护肤类热门内容", []string{"美妆推荐", "护肤品"}},
	"fashion": {"穿搭热榜", "时尚穿搭类热门内容", []string{"穿搭分享", "ootd"}},
	"food":    {"美食热榜", "美食探店类热门内容", []string{"美食推荐", "探店"}},
	"travel":  {"旅行热榜", "旅行攻略类热门内容", []string{"旅行攻略", "旅游推荐"}},
	"fitness": {"健身热榜", "健身运动类热门内容", []string{"健身打卡", "减脂"}},
	"digital": {"数码热榜", "数码科技类热门内容", []string{"数码测评", "手机推荐"}},
	"home":    {"家居热榜", "家居生活类热门内容", []string{"家居好物", "收纳"}},
	"pet":     {"萌宠热榜", "萌宠类热门内容", []string{"猫咪", "狗狗"}},
	"mother":  {"母婴热榜", "母婴育儿类热门内容", []string{"母婴好物", "育儿"}},
}

// RankingCategories lists the supported category ids, sorted.
func RankingCategories() []string {
	out := make([]string, 0, len(rankingCategories))
	for id := range rankingCategories {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RankingHandler builds a category leaderboard by fetching each category
// keyword concurrently, pooling the results and scoring them by heat.
type RankingHandler struct {
	deps Deps
}

func (h *RankingHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	categoryID := params.Category
	if categoryID == "" {
		categoryID = "hot"
	}
	category, ok := rankingCategories[categoryID]
	if !ok {
		return nil, wrap(models.CapabilityRanking, fmt.Errorf("unknown ranking category %q", categoryID))
	}

	// Each keyword fetch still queues on the shared rate limiter, so
	// concurrency here only overlaps waiting, not platform pressure.
	var mu sync.Mutex
	var pooled []models.Post
	var firstErr error
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	for _, keyword := range category.Keywords {
		keyword := keyword
		g.Go(func() error {
			posts, err := h.deps.acquire(gctx, keyword, params.MaxItems, models.SortHottest)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				if firstErr == nil {
					firstErr = err
				}
				// One keyword failing is tolerable as long as another
				// delivers; total failure is reported below.
				return nil
			}
			pooled = append(pooled, posts...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(models.CapabilityRanking, err)
	}
	if len(pooled) == 0 && failures > 0 {
		// Keep the underlying cause so auth failures still surface as such.
		return nil, wrap(models.CapabilityRanking,
			fmt.Errorf("all %d keyword fetches for category %q failed: %w", len(category.Keywords), categoryID, firstErr))
	}

	pooled = normalize.Dedupe(pooled)

	topK := h.deps.topK(params)
	ranking := buildRanking(categoryID, category, pooled, topK)

	status := models.StatusOK
	summary := fmt.Sprintf("%s: ranked top %d of %d posts.", category.Title, len(ranking.Items), len(pooled))
	if failures > 0 {
		status = models.StatusDegraded
		summary += fmt.Sprintf(" (%d of %d source queries failed)", failures, len(category.Keywords))
	}

	return &models.Report{
		Capability: models.CapabilityRanking,
		Status:     status,
		Summary:    summary,
		Ranking:    ranking,
	}, nil
}

// heatScore weights comments double: a comment costs the user more than a
// like, so it signals stronger interest.
func heatScore(p models.Post) float64 {
	return float64(p.LikeCount + 2*p.CommentCount)
}

func buildRanking(categoryID string, category rankingCategory, posts []models.Post, topK int) *models.Ranking {
	sort.SliceStable(posts, func(i, j int) bool {
		si, sj := heatScore(posts[i]), heatScore(posts[j])
		if si != sj {
			return si > sj
		}
		return posts[i].ID < posts[j].ID
	})
	if topK > 0 && len(posts) > topK {
		posts = posts[:topK]
	}

	ranking := &models.Ranking{
		Category:    categoryID,
		Title:       category.Title,
		Description: category.Description,
		Items:       make([]models.RankingItem, 0, len(posts)),
	}

	var totalScore float64
	for i, p := range posts {
		score := heatScore(p)
		totalScore += score
		ranking.TotalEngagement += p.Engagement()
		ranking.Items = append(ranking.Items, models.RankingItem{
			Rank:  i + 1,
			Post:  p,
			Score: score,
			Trend: trendForRank(i + 1),
		})
	}
	if len(posts) > 0 {
		ranking.AvgScore = totalScore / float64(len(posts))
	}
	return ranking
}

// trendForRank assigns a deterministic trend marker by position: the top
// third is rising, the middle steady, the rest cooling.
func trendForRank(rank int) string {
	switch {
	case rank <= 3:
		return "up"
	case rank <= 7:
		return "steady"
	default:
		return "down"
	}
}
