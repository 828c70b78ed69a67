package intent

import (
	"context"
	"testing"

	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/models"
)

func newRuleOnly() *Classifier {
	// A nil *ai.Client degrades to ErrUnavailable on every call, leaving
	// only the keyword rules.
	var nilClient *ai.Client
	return New(nilClient, 5, 10, 10)
}

func TestClassifyKeywordRules(t *testing.T) {
	c := newRuleOnly()

	tests := []struct {
		message string
		want    models.Capability
	}{
		{"搜索手冲咖啡", models.CapabilitySearch},
		{"看看美妆排行榜", models.CapabilityRanking},
		{"上海有什么好玩的", models.CapabilityRegional},
		{"帮我统计一下咖啡的数据", models.CapabilityAnalytics},
		{"生成一份杭州旅游攻略", models.CapabilityGuide},
		{"对比一下iphone和华为", models.CapabilityCompare},
	}
	for _, tt := range tests {
		in := c.Classify(context.Background(), tt.message, nil)
		if in.Capability != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.message, in.Capability, tt.want)
		}
		if in.LowConfidence {
			t.Errorf("Classify(%q) should be a confident rule match", tt.message)
		}
	}
}

func TestClassifyExtractsCity(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "成都有什么美食", nil)
	if in.Capability != models.CapabilityRegional {
		t.Fatalf("expected regional, got %s", in.Capability)
	}
	if in.Params.City != "成都" {
		t.Errorf("expected city 成都, got %q", in.Params.City)
	}
}

func TestClassifyCityAlias(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "chengdu food spots", nil)
	if in.Params.City != "成都" {
		t.Errorf("pinyin alias should resolve, got %q", in.Params.City)
	}
}

func TestClassifyCompareItems(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "对比一下iphone和华为", nil)
	if in.Capability != models.CapabilityCompare {
		t.Fatalf("expected compare, got %s", in.Capability)
	}
	if len(in.Params.CompareItems) != 2 {
		t.Fatalf("expected 2 items, got %v", in.Params.CompareItems)
	}
	if in.Params.CompareItems[0] != "iphone" || in.Params.CompareItems[1] != "华为" {
		t.Errorf("unexpected items %v", in.Params.CompareItems)
	}
}

func TestClassifyCompareCapsItems(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "对比 a和b和c和d", nil)
	if len(in.Params.CompareItems) > 3 {
		t.Errorf("comparison must be capped at 3 items, got %v", in.Params.CompareItems)
	}
}

func TestClassifyGuideType(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "租房避坑指南", nil)
	if in.Capability != models.CapabilityGuide {
		t.Fatalf("expected guide, got %s", in.Capability)
	}
	if in.Params.GuideType != "pitfalls" {
		t.Errorf("expected pitfalls guide, got %q", in.Params.GuideType)
	}
}

func TestClassifyRankingCategory(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "美妆排行榜", nil)
	if in.Params.Category != "beauty" {
		t.Errorf("expected beauty category, got %q", in.Params.Category)
	}
	if len(in.Params.Keywords) == 0 {
		t.Error("ranking intent must carry category keywords")
	}
}

func TestClassifyAmbiguousIsLowConfidence(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "呃这个嘛", nil)
	if !in.LowConfidence {
		t.Error("ambiguous message without the collaborator must be flagged low confidence")
	}
	if in.Confidence >= 0.5 {
		t.Errorf("expected low confidence score, got %v", in.Confidence)
	}
}

func TestClassifyResolvesPronounFromHistory(t *testing.T) {
	c := newRuleOnly()
	history := []models.ConversationTurn{
		{Role: "user", Text: "搜索iphone15"},
		{Role: "agent", Text: "找到10篇笔记"},
	}

	in := c.Classify(context.Background(), "对比它和华为", history)
	if in.Capability != models.CapabilityCompare {
		t.Fatalf("expected compare, got %s", in.Capability)
	}
	found := false
	for _, item := range in.Params.CompareItems {
		if item == "iphone15" {
			found = true
		}
	}
	if !found {
		t.Errorf("pronoun should resolve to the previous topic, got %v", in.Params.CompareItems)
	}
}

func TestClassifyDefaults(t *testing.T) {
	c := newRuleOnly()

	in := c.Classify(context.Background(), "搜索咖啡", nil)
	if in.Params.MaxItems != 10 || in.Params.TopK != 10 {
		t.Errorf("defaults not applied: %+v", in.Params)
	}
	if in.Params.Keywords[0] != "咖啡" {
		t.Errorf("filler must be stripped from the keyword, got %q", in.Params.Keywords[0])
	}
}
