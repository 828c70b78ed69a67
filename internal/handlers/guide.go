package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/models"
)

// guideOutline fixes the chapter structure per guide type so generated
// guides of the same type stay comparable.
type guideOutline struct {
	Label    string
	Sections []string
}

var guideOutlines = map[string]guideOutline{
	"travel":     {"旅行攻略", []string{"行前准备", "交通指南", "景点推荐", "住宿推荐", "美食推荐", "注意事项"}},
	"shopping":   {"购物指南", []string{"热门推荐", "性价比之选", "高端精选", "购买渠道", "使用技巧"}},
	"food":       {"美食攻略", []string{"必吃推荐", "人气餐厅", "特色小吃", "美食地图", "点餐技巧"}},
	"pitfalls":   {"避坑指南", []string{"常见陷阱", "防骗指南", "真假辨别", "避坑技巧", "经验总结"}},
	"comparison": {"对比评测", []string{"产品概述", "功能对比", "价格对比", "用户评价", "推荐结论"}},
	"budget":     {"省钱攻略", []string{"省钱技巧", "平价替代", "优惠渠道", "性价比推荐", "预算规划"}},
	"beginner":   {"新手入门", []string{"入门须知", "基础知识", "装备推荐", "常见误区", "进阶建议"}},
}

// GuideTypes lists the supported guide type ids, sorted.
func GuideTypes() []string {
	out := make([]string, 0, len(guideOutlines))
	for id := range guideOutlines {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GuideHandler acquires posts on the topic and has the completion
// collaborator write a structured guide over them. Without the
// collaborator it falls back to a template guide assembled from the posts
// themselves, reported as degraded.
type GuideHandler struct {
	deps Deps
}

func (h *GuideHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	topic, err := primaryKeyword(params)
	if err != nil {
		return nil, wrap(models.CapabilityGuide, err)
	}

	guideType := params.GuideType
	outline, ok := guideOutlines[guideType]
	if !ok {
		guideType = "travel"
		outline = guideOutlines[guideType]
	}

	searchTerm := topic
	if !strings.Contains(topic, "攻略") && !strings.Contains(topic, "指南") {
		searchTerm = topic + "攻略"
	}
	posts, err := h.deps.acquire(ctx, searchTerm, params.MaxItems, models.SortHottest)
	if err != nil {
		return nil, wrap(models.CapabilityGuide, err)
	}
	if len(posts) == 0 {
		return &models.Report{
			Capability: models.CapabilityGuide,
			Status:     models.StatusOK,
			Summary:    fmt.Sprintf("No posts found about %q; cannot build a guide.", topic),
		}, nil
	}

	if h.deps.AI != nil {
		guide, genErr := h.deps.AI.GenerateGuide(ctx, posts, topic, guideType, outline.Sections)
		if genErr == nil {
			return &models.Report{
				Capability: models.CapabilityGuide,
				Status:     models.StatusOK,
				Summary:    fmt.Sprintf("%s %s built from %d posts.", topic, outline.Label, len(posts)),
				Guide:      guide,
			}, nil
		}
		if !errors.Is(genErr, ai.ErrUnavailable) {
			slog.Warn("guide generation failed, using template fallback", "topic", topic, "error", genErr)
		}
	}

	// Template fallback: real posts slotted into the fixed outline.
	guide := templateGuide(topic, guideType, outline, posts)
	return &models.Report{
		Capability: models.CapabilityGuide,
		Status:     models.StatusDegraded,
		Summary:    fmt.Sprintf("%s %s assembled from %d posts (template mode).", topic, outline.Label, len(posts)),
		Guide:      guide,
	}, nil
}

// templateGuide distributes the hottest posts across the outline sections
// and lifts key points from their titles.
func templateGuide(topic, guideType string, outline guideOutline, posts []models.Post) *models.Guide {
	sorted := append([]models.Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Engagement() > sorted[j].Engagement()
	})

	guide := &models.Guide{
		GuideType:       guideType,
		Title:           fmt.Sprintf("%s%s", topic, outline.Label),
		Summary:         fmt.Sprintf("基于 %d 篇相关笔记整理的%s，按热度精选内容要点。", len(posts), outline.Label),
		SourcePostCount: len(posts),
	}

	for i, title := range outline.Sections {
		section := models.GuideSection{Title: title}
		var lines []string
		for j := i; j < len(sorted); j += len(outline.Sections) {
			p := sorted[j]
			line := p.Title
			if line == "" {
				line = truncateRunes(p.BodyExcerpt, 40)
			}
			if line != "" {
				lines = append(lines, fmt.Sprintf("%s（%d 互动）", line, p.Engagement()))
			}
			if len(lines) == 3 {
				break
			}
		}
		if len(lines) == 0 {
			section.Content = "暂无足够内容。"
		} else {
			section.Content = strings.Join(lines, "\n")
		}
		guide.Sections = append(guide.Sections, section)
	}

	for i, p := range sorted {
		if i == 5 {
			break
		}
		if p.Title != "" {
			guide.KeyPoints = append(guide.KeyPoints, p.Title)
		}
	}
	return guide
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
