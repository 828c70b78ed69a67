package handlers

import (
	"context"
	"fmt"

	"github.com/redinsight/agent/internal/analytics"
	"github.com/redinsight/agent/internal/models"
)

// AnalyticsHandler fetches a larger sample for one keyword and runs the
// full statistics pipeline over it.
type AnalyticsHandler struct {
	deps Deps
}

// statsSampleFactor widens the fetch beyond the display cap so the
// aggregates are computed over a meaningful sample.
const statsSampleFactor = 2

func (h *AnalyticsHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	keyword, err := primaryKeyword(params)
	if err != nil {
		return nil, wrap(models.CapabilityAnalytics, err)
	}

	maxItems := params.MaxItems
	if maxItems <= 0 {
		maxItems = h.deps.MaxItems
	}
	posts, err := h.deps.acquire(ctx, keyword, maxItems*statsSampleFactor, models.SortHottest)
	if err != nil {
		return nil, wrap(models.CapabilityAnalytics, err)
	}

	stats := analytics.BuildStatistics(keyword, posts, h.deps.topK(params))

	summary := fmt.Sprintf("Statistics for %q: %d posts, %d total engagement, %.0f on average.",
		keyword, stats.TotalPosts, stats.TotalEngagement, stats.AvgEngagement)
	if stats.TotalPosts == 0 {
		summary = fmt.Sprintf("No posts found for %q; nothing to analyze.", keyword)
	}

	return &models.Report{
		Capability: models.CapabilityAnalytics,
		Status:     models.StatusOK,
		Summary:    summary,
		Statistics: stats,
	}, nil
}
