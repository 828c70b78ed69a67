package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/models"
)

// maxCompareItems bounds the comparison to keep the matrix readable and
// the acquisition cost predictable.
const maxCompareItems = 3

// CompareHandler fetches each compared item's posts, builds an aggregate
// matrix and optionally asks the completion collaborator for prose
// insights. Missing insights degrade the report rather than failing it.
type CompareHandler struct {
	deps Deps
}

func (h *CompareHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	items := dedupeItems(params.CompareItems)
	if len(items) < 2 {
		return nil, wrap(models.CapabilityCompare,
			fmt.Errorf("comparison needs at least two items, got %d", len(items)))
	}
	if len(items) > maxCompareItems {
		items = items[:maxCompareItems]
	}

	comparison := &models.Comparison{Items: items}

	// One concurrent fetch per item; the matrix keeps item order regardless
	// of which fetch completes first.
	perItem := make([][]models.Post, len(items))
	errs := make([]error, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			perItem[i], errs[i] = h.deps.acquire(gctx, item, params.MaxItems, models.SortHottest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(models.CapabilityCompare, err)
	}
	if ctx.Err() != nil {
		return nil, wrap(models.CapabilityCompare, ctx.Err())
	}

	var pooled []models.Post
	var firstErr error
	failures := 0
	for i, item := range items {
		if errs[i] != nil {
			failures++
			if firstErr == nil {
				firstErr = errs[i]
			}
			comparison.Matrix = append(comparison.Matrix, models.CompareEntry{Item: item})
			continue
		}

		posts := perItem[i]
		entry := models.CompareEntry{Item: item, PostCount: len(posts)}
		for _, p := range posts {
			entry.TotalLikes += p.LikeCount
			entry.TotalComments += p.CommentCount
			entry.TotalEngagement += p.Engagement()
		}
		if entry.PostCount > 0 {
			entry.AvgEngagement = float64(entry.TotalEngagement) / float64(entry.PostCount)
		}
		comparison.Matrix = append(comparison.Matrix, entry)
		pooled = append(pooled, posts...)
	}
	if failures == len(items) {
		return nil, wrap(models.CapabilityCompare,
			fmt.Errorf("all %d item fetches failed: %w", len(items), firstErr))
	}

	comparison.Winner = pickWinner(comparison.Matrix)
	comparison.Insights = matrixInsights(comparison)

	status := models.StatusOK
	if failures > 0 {
		status = models.StatusDegraded
	}

	if h.deps.AI != nil && len(pooled) > 0 {
		prose, err := h.deps.AI.GenerateComparison(ctx, items, pooled)
		switch {
		case err == nil:
			comparison.Insights = append(comparison.Insights, prose)
		case errors.Is(err, ai.ErrUnavailable):
			status = models.StatusDegraded
		default:
			slog.Warn("comparison insights failed, returning matrix only", "items", items, "error", err)
			status = models.StatusDegraded
		}
	}

	summary := fmt.Sprintf("Compared %s.", strings.Join(items, " vs "))
	if comparison.Winner != "" {
		summary += fmt.Sprintf(" %q leads on average engagement.", comparison.Winner)
	}

	return &models.Report{
		Capability: models.CapabilityCompare,
		Status:     status,
		Summary:    summary,
		Comparison: comparison,
	}, nil
}

func dedupeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// pickWinner selects the item with the highest average engagement among
// those that returned posts. Ties keep the first-listed item.
func pickWinner(matrix []models.CompareEntry) string {
	winner := ""
	best := -1.0
	for _, e := range matrix {
		if e.PostCount == 0 {
			continue
		}
		if e.AvgEngagement > best {
			best = e.AvgEngagement
			winner = e.Item
		}
	}
	return winner
}

func matrixInsights(c *models.Comparison) []string {
	var out []string
	for _, e := range c.Matrix {
		if e.PostCount == 0 {
			out = append(out, fmt.Sprintf("No posts retrieved for %q.", e.Item))
			continue
		}
		out = append(out, fmt.Sprintf("%q: %d posts, %.0f average engagement.", e.Item, e.PostCount, e.AvgEngagement))
	}
	return out
}
