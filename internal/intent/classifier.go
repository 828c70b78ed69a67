// Package intent maps a free-text user message plus bounded conversation
// context to a (capability, parameters) pair. Deterministic keyword rules
// run first; the completion collaborator is consulted for ambiguous
// phrasing, and when it is unavailable the rule guess is returned with an
// explicit low-confidence flag instead of an error.
package intent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/redinsight/agent/internal/ai"
	"github.com/redinsight/agent/internal/models"
)

// AIClassifier is the slice of the completion collaborator the classifier
// uses. *ai.Client satisfies it, including as a nil pointer.
type AIClassifier interface {
	ClassifyIntent(ctx context.Context, message string, history []models.ConversationTurn) (*ai.IntentResult, error)
}

type Classifier struct {
	ai              AIClassifier
	windowTurns     int
	defaultMaxItems int
	defaultTopK     int
}

// New builds a classifier. aiClient may be a nil *ai.Client; the fallback
// path then handles everything.
func New(aiClient AIClassifier, windowTurns, defaultMaxItems, defaultTopK int) *Classifier {
	if windowTurns < 1 {
		windowTurns = 5
	}
	return &Classifier{
		ai:              aiClient,
		windowTurns:     windowTurns,
		defaultMaxItems: defaultMaxItems,
		defaultTopK:     defaultTopK,
	}
}

// Classify resolves the capability and parameters for one message. The
// returned intent always has usable defaults; LowConfidence marks guesses
// made without the collaborator on ambiguous input.
func (c *Classifier) Classify(ctx context.Context, message string, history []models.ConversationTurn) models.Intent {
	window := lastTurns(history, c.windowTurns)

	ruled, confident := c.ruleClassify(message, window)
	if confident {
		ruled.Confidence = 0.9
		return ruled
	}

	if c.ai != nil {
		result, err := c.ai.ClassifyIntent(ctx, message, window)
		if err == nil {
			return c.fromAIResult(result, message)
		}
		if !errors.Is(err, ai.ErrUnavailable) {
			slog.Warn("intent classification via collaborator failed, using keyword fallback", "error", err)
		}
	}

	ruled.Confidence = 0.4
	ruled.LowConfidence = true
	return ruled
}

// ruleClassify applies the deterministic keyword rules. The second return
// is false when the message matched no clear cue and the guess should be
// confirmed by the collaborator or flagged.
func (c *Classifier) ruleClassify(message string, window []models.ConversationTurn) (models.Intent, bool) {
	text := strings.ToLower(strings.TrimSpace(message))
	params := models.Params{
		MaxItems: c.defaultMaxItems,
		TopK:     c.defaultTopK,
		SortMode: models.SortHottest,
	}
	city := findCity(text)
	params.City = city

	switch {
	case containsAny(text, compareCues):
		items := splitCompareItems(text)
		if ref := resolveReference(text, window); ref != "" {
			replaced := false
			for i, item := range items {
				if containsAny(item, referenceCues) {
					items[i] = ref
					replaced = true
				}
			}
			if !replaced && len(items) < 2 {
				items = append(items, ref)
			}
		}
		if len(items) >= 2 {
			params.CompareItems = items
			params.Keywords = items
			return models.Intent{Capability: models.CapabilityCompare, Params: params}, true
		}
		return models.Intent{Capability: models.CapabilityCompare, Params: params}, false

	case containsAny(text, guideCues):
		params.GuideType = guessGuideType(text)
		params.Keywords = []string{extractKeyword(text, city)}
		return models.Intent{Capability: models.CapabilityGuide, Params: params}, true

	case containsAny(text, rankingCues):
		params.Category = guessCategory(text)
		params.Keywords = categoryKeywords(params.Category)
		return models.Intent{Capability: models.CapabilityRanking, Params: params}, true

	case containsAny(text, statsCues):
		params.Keywords = []string{extractKeyword(text, "")}
		return models.Intent{Capability: models.CapabilityAnalytics, Params: params}, true

	case city != "":
		params.Keywords = []string{city + extractKeyword(text, city)}
		return models.Intent{Capability: models.CapabilityRegional, Params: params}, true

	case containsAny(text, searchCues):
		params.Keywords = []string{extractKeyword(text, "")}
		return models.Intent{Capability: models.CapabilitySearch, Params: params}, true
	}

	// No cue matched: guess a plain search over the whole message.
	params.Keywords = []string{extractKeyword(text, "")}
	return models.Intent{Capability: models.CapabilitySearch, Params: params}, false
}

func (c *Classifier) fromAIResult(r *ai.IntentResult, message string) models.Intent {
	capability := models.Capability(r.Action)
	switch capability {
	case models.CapabilitySearch, models.CapabilityRanking, models.CapabilityRegional,
		models.CapabilityAnalytics, models.CapabilityGuide, models.CapabilityCompare,
		models.CapabilityChat:
	default:
		capability = models.CapabilitySearch
	}

	keywords := r.Keywords
	if len(keywords) == 0 && capability != models.CapabilityChat {
		keywords = []string{extractKeyword(strings.ToLower(message), "")}
	}

	return models.Intent{
		Capability: capability,
		Params: models.Params{
			Keywords:     keywords,
			MaxItems:     c.defaultMaxItems,
			TopK:         c.defaultTopK,
			SortMode:     models.SortHottest,
			City:         r.Params.City,
			Category:     r.Params.Category,
			GuideType:    r.Params.GuideType,
			CompareItems: r.Params.CompareItems,
		},
		Message:    r.Message,
		FollowUp:   r.FollowUp,
		Confidence: 0.8,
	}
}

var (
	compareCues = []string{"对比", "比较", " vs ", "vs.", "compare", "哪个好", "哪个更"}
	guideCues   = []string{"攻略", "指南", "避坑", "入门", "怎么玩", "guide"}
	rankingCues = []string{"榜", "排行", "排名", "ranking", "top10", "top 10"}
	statsCues   = []string{"统计", "数据分析", "报表", "分布", "statistics", "stats"}
	searchCues  = []string{"搜", "找", "看看", "推荐", "search", "show me", "trending", "热门"}
)

var cities = []string{
	"北京", "上海", "广州", "深圳", "杭州", "成都", "重庆", "南京", "武汉",
	"西安", "苏州", "长沙", "厦门", "青岛", "三亚", "丽江", "大理",
}

var cityAliases = map[string]string{
	"beijing": "北京", "shanghai": "上海", "guangzhou": "广州", "shenzhen": "深圳",
	"hangzhou": "杭州", "chengdu": "成都", "chongqing": "重庆", "nanjing": "南京",
	"wuhan": "武汉", "xian": "西安", "suzhou": "苏州", "changsha": "长沙",
	"xiamen": "厦门", "qingdao": "青岛", "sanya": "三亚", "lijiang": "丽江",
	"dali": "大理",
}

var categoryCues = map[string]string{
	"美妆": "beauty", "护肤": "beauty", "skincare": "beauty", "beauty": "beauty",
	"穿搭": "fashion", "时尚": "fashion", "fashion": "fashion", "ootd": "fashion",
	"美食": "food", "探店": "food", "food": "food",
	"旅行": "travel", "旅游": "travel", "travel": "travel",
	"健身": "fitness", "运动": "fitness", "fitness": "fitness",
	"数码": "digital", "科技": "digital", "digital": "digital",
	"家居": "home", "收纳": "home", "home": "home",
	"萌宠": "pet", "宠物": "pet", "pet": "pet",
	"母婴": "mother", "育儿": "mother",
}

var guideTypeCues = map[string]string{
	"避坑": "pitfalls", "踩坑": "pitfalls", "pitfall": "pitfalls",
	"购买": "shopping", "购物": "shopping", "买": "shopping", "shopping": "shopping",
	"美食": "food", "吃": "food",
	"省钱": "budget", "预算": "budget", "budget": "budget",
	"入门": "beginner", "新手": "beginner", "beginner": "beginner",
	"对比": "comparison",
}

// Filler phrases stripped before treating the rest of the message as the
// search keyword.
var fillerPhrases = []string{
	"帮我", "我想", "我要", "看看", "查查", "搜索", "搜一下", "搜", "找找", "找",
	"生成", "一份", "一下", "推荐", "有什么", "有没有", "的攻略", "攻略", "指南",
	"统计", "数据分析", "报表", "分析", "热门", "请", "吗", "呢", "？", "?", "。", "！", "!",
	"show me", "trending", "posts", "build a", "guide", "statistics", "search",
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

func findCity(text string) string {
	for _, city := range cities {
		if strings.Contains(text, city) {
			return city
		}
	}
	for alias, city := range cityAliases {
		if strings.Contains(text, alias) {
			return city
		}
	}
	return ""
}

func guessCategory(text string) string {
	for cue, cat := range categoryCues {
		if strings.Contains(text, cue) {
			return cat
		}
	}
	return "hot"
}

func guessGuideType(text string) string {
	for cue, gt := range guideTypeCues {
		if strings.Contains(text, cue) {
			return gt
		}
	}
	return "travel"
}

// categoryKeywords returns the platform search terms for a ranking category.
func categoryKeywords(category string) []string {
	if kws, ok := rankingKeywords[category]; ok {
		return kws
	}
	return rankingKeywords["hot"]
}

var rankingKeywords = map[string][]string{
	"hot":     {"热门", "爆款"},
	"beauty":  {"美妆推荐", "护肤品"},
	"fashion": {"穿搭分享", "ootd"},
	"food":    {"美食推荐", "探店"},
	"travel":  {"旅行攻略", "旅游推荐"},
	"fitness": {"健身打卡", "减脂"},
	"digital": {"数码测评", "手机推荐"},
	"home":    {"家居好物", "收纳"},
	"pet":     {"猫咪", "狗狗"},
	"mother":  {"母婴好物", "育儿"},
}

// extractKeyword strips filler phrases and an already-extracted city from
// the message, leaving the topical core as the search keyword.
func extractKeyword(text, city string) string {
	out := text
	if city != "" {
		out = strings.ReplaceAll(out, city, "")
		for alias, c := range cityAliases {
			if c == city {
				out = strings.ReplaceAll(out, alias, "")
			}
		}
	}
	for _, f := range fillerPhrases {
		out = strings.ReplaceAll(out, f, "")
	}
	out = strings.TrimSpace(out)
	if out == "" {
		out = strings.TrimSpace(text)
	}
	if r := []rune(out); len(r) > 20 {
		out = string(r[:20])
	}
	return out
}

var referenceCues = []string{"它", "这个", "那个", "上面", "刚才", " it", "that one", "the other"}

// resolveReference resolves pronouns against the bounded context window:
// the most recent user turn's topical core stands in for "it".
func resolveReference(text string, window []models.ConversationTurn) string {
	if !containsAny(text, referenceCues) {
		return ""
	}
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Role == "user" {
			if kw := extractKeyword(strings.ToLower(window[i].Text), ""); kw != "" {
				return kw
			}
		}
	}
	return ""
}

// splitCompareItems pulls "A vs B" style item pairs out of the message.
func splitCompareItems(text string) []string {
	cleaned := text
	for _, f := range []string{"对比一下", "对比", "比较一下", "比较", "compare", "哪个好", "哪个更好", "帮我"} {
		cleaned = strings.ReplaceAll(cleaned, f, " ")
	}
	for _, sep := range []string{" vs ", "vs.", "和", "与", "跟", " and "} {
		if strings.Contains(cleaned, sep) {
			var items []string
			for _, part := range strings.Split(cleaned, sep) {
				part = strings.Trim(strings.TrimSpace(part), "的？?。！!，, ")
				if part != "" {
					items = append(items, part)
				}
			}
			if len(items) > 3 {
				items = items[:3]
			}
			if len(items) >= 2 {
				return items
			}
		}
	}
	return nil
}

func lastTurns(history []models.ConversationTurn, n int) []models.ConversationTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
