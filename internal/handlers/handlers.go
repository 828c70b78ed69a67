// Package handlers implements one handler per capability. Each handler
// composes the acquisition client, the normalizer and the aggregation
// engine into a capability-specific report. Acquisition and auth failures
// are wrapped in HandlerError, never swallowed.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/normalize"
	"github.com/redinsight/agent/internal/platform"
)

// Summarizer is the slice of the completion collaborator the handlers use.
// *ai.Client satisfies it; a nil client degrades every call.
type Summarizer interface {
	AnalyzePosts(ctx context.Context, keyword string, posts []models.Post) (string, error)
	GenerateGuide(ctx context.Context, posts []models.Post, topic, guideType string, sections []string) (*models.Guide, error)
	GenerateComparison(ctx context.Context, items []string, posts []models.Post) (string, error)
}

// Handler is the shared capability contract.
type Handler interface {
	Handle(ctx context.Context, params models.Params) (*models.Report, error)
}

// Deps bundles the collaborators every handler composes.
type Deps struct {
	Fetcher  platform.Fetcher
	AI       Summarizer
	MaxItems int // default per-query item cap
	TopK     int // default top-k for aggregates
}

// Registry maps capabilities to their handlers.
func Registry(deps Deps) map[models.Capability]Handler {
	return map[models.Capability]Handler{
		models.CapabilitySearch:    &SearchHandler{deps},
		models.CapabilityRanking:   &RankingHandler{deps},
		models.CapabilityRegional:  &RegionalHandler{deps},
		models.CapabilityAnalytics: &AnalyticsHandler{deps},
		models.CapabilityGuide:     &GuideHandler{deps},
		models.CapabilityCompare:   &CompareHandler{deps},
	}
}

func wrap(capability models.Capability, err error) error {
	return &models.HandlerError{Capability: capability, Err: err}
}

// acquire runs one search and pushes the results through the normalizer:
// dedupe first, then truncate to maxItems, preserving fetch order.
func (d Deps) acquire(ctx context.Context, keyword string, maxItems int, sort models.SortMode) ([]models.Post, error) {
	if maxItems <= 0 {
		maxItems = d.MaxItems
	}
	raws, err := d.Fetcher.Search(ctx, models.SearchQuery{
		Keyword:  keyword,
		MaxItems: maxItems,
		SortMode: sort,
	})
	if err != nil {
		return nil, err
	}
	posts := normalize.Dedupe(normalize.Batch(raws, time.Now()))
	return normalize.Truncate(posts, maxItems), nil
}

func (d Deps) topK(params models.Params) int {
	if params.TopK > 0 {
		return params.TopK
	}
	return d.TopK
}

func primaryKeyword(params models.Params) (string, error) {
	if len(params.Keywords) == 0 || params.Keywords[0] == "" {
		return "", fmt.Errorf("no search keyword resolved from request")
	}
	return params.Keywords[0], nil
}
