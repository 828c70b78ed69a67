package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/models"
)

// SearchHandler fetches posts for one keyword and, when the completion
// collaborator is available, attaches a prose analysis of the result set.
type SearchHandler struct {
	deps Deps
}

func (h *SearchHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	keyword, err := primaryKeyword(params)
	if err != nil {
		return nil, wrap(models.CapabilitySearch, err)
	}

	posts, err := h.deps.acquire(ctx, keyword, params.MaxItems, params.SortMode)
	if err != nil {
		return nil, wrap(models.CapabilitySearch, err)
	}

	report := &models.Report{
		Capability: models.CapabilitySearch,
		Status:     models.StatusOK,
		Posts:      posts,
		Summary:    fmt.Sprintf("Found %d posts for %q.", len(posts), keyword),
	}
	if len(posts) == 0 {
		report.Summary = fmt.Sprintf("No posts found for %q. Try a broader keyword.", keyword)
		return report, nil
	}

	if h.deps.AI != nil {
		analysis, err := h.deps.AI.AnalyzePosts(ctx, keyword, posts)
		switch {
		case err == nil:
			report.Analysis = analysis
		case errors.Is(err, ai.ErrUnavailable):
			// Expected without a configured key; the post list stands alone.
		default:
			slog.Warn("post analysis failed, returning posts without it", "keyword", keyword, "error", err)
			report.Status = models.StatusDegraded
		}
	}
	return report, nil
}
