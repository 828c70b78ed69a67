package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/redinsight/agent/internal/analytics"
	"github.com/redinsight/agent/internal/models"
)

// cityProfile carries the curated knowledge for one supported city: the
// topics worth probing and the local specialties surfaced in the report.
type cityProfile struct {
	Name        string
	HotTopics   []string
	Specialties []string
}

var cityProfiles = map[string]cityProfile{
	"北京": {"北京", []string{"北京探店", "北京旅游", "北京美食"}, []string{"烤鸭", "胡同文化", "故宫"}},
	"上海": {"上海", []string{"上海探店", "上海咖啡", "上海展览"}, []string{"本帮菜", "外滩", "弄堂"}},
	"广州": {"广州", []string{"广州美食", "广州早茶", "广州探店"}, []string{"早茶", "煲汤", "骑楼"}},
	"深圳": {"深圳", []string{"深圳探店", "深圳周末", "深圳美食"}, []string{"科技园", "海滨公园", "粤菜"}},
	"杭州": {"杭州", []string{"杭州旅游", "杭州美食", "西湖"}, []string{"西湖", "龙井茶", "杭帮菜"}},
	"成都": {"成都", []string{"成都美食", "成都旅游", "成都探店"}, []string{"火锅", "熊猫", "茶馆"}},
	"重庆": {"重庆", []string{"重庆火锅", "重庆旅游", "重庆夜景"}, []string{"火锅", "洪崖洞", "轻轨"}},
	"南京": {"南京", []string{"南京旅游", "南京美食", "南京景点"}, []string{"盐水鸭", "夫子庙", "梧桐"}},
	"武汉": {"武汉", []string{"武汉美食", "武汉旅游", "武汉过早"}, []string{"热干面", "樱花", "长江"}},
	"西安": {"西安", []string{"西安旅游", "西安美食", "西安景点"}, []string{"肉夹馍", "兵马俑", "城墙"}},
	"苏州": {"苏州", []string{"苏州园林", "苏州旅游", "苏州美食"}, []string{"园林", "苏帮菜", "评弹"}},
	"长沙": {"长沙", []string{"长沙美食", "长沙探店", "长沙旅游"}, []string{"臭豆腐", "茶颜悦色", "夜市"}},
	"厦门": {"厦门", []string{"厦门旅游", "厦门美食", "鼓浪屿"}, []string{"海鲜", "鼓浪屿", "沙茶面"}},
	"青岛": {"青岛", []string{"青岛旅游", "青岛美食", "青岛海边"}, []string{"啤酒", "海鲜", "栈桥"}},
	"三亚": {"三亚", []string{"三亚旅游", "三亚酒店", "三亚美食"}, []string{"海滩", "潜水", "海鲜"}},
	"丽江": {"丽江", []string{"丽江旅游", "丽江古城", "丽江民宿"}, []string{"古城", "雪山", "民宿"}},
	"大理": {"大理", []string{"大理旅游", "大理民宿", "洱海"}, []string{"洱海", "古城", "白族菜"}},
}

// SupportedCities lists the cities with a curated profile, sorted by name.
func SupportedCities() []string {
	out := make([]string, 0, len(cityProfiles))
	for name := range cityProfiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegionalHandler builds a city report: per-topic acquisition over the
// city's curated hot topics, aggregated into engagement totals, topic heat
// and top local creators.
type RegionalHandler struct {
	deps Deps
}

func (h *RegionalHandler) Handle(ctx context.Context, params models.Params) (*models.Report, error) {
	city := strings.TrimSpace(params.City)
	if city == "" {
		if kw, err := primaryKeyword(params); err == nil {
			city = kw
		}
	}
	if city == "" {
		return nil, wrap(models.CapabilityRegional, fmt.Errorf("no city resolved from request"))
	}

	profile, curated := cityProfiles[city]
	topics := profile.HotTopics
	if !curated {
		// Unknown cities still work; the probe set is synthesized.
		profile = cityProfile{Name: city}
		topics = []string{city + "旅游", city + "美食", city + "探店"}
	}

	report := &models.CityReport{
		City:        city,
		Specialties: profile.Specialties,
	}

	// Concurrent per-topic fetches, index-addressed so the result layout is
	// independent of completion order. The shared rate gate still spaces the
	// actual requests.
	perTopic := make([][]models.Post, len(topics))
	errs := make([]error, len(topics))
	g, gctx := errgroup.WithContext(ctx)
	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			perTopic[i], errs[i] = h.deps.acquire(gctx, topic, params.MaxItems, models.SortHottest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(models.CapabilityRegional, err)
	}
	if ctx.Err() != nil {
		return nil, wrap(models.CapabilityRegional, ctx.Err())
	}

	var pooled []models.Post
	var firstErr error
	failures := 0
	for i, topic := range topics {
		if errs[i] != nil {
			failures++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		posts := perTopic[i]
		engagement := 0
		for _, p := range posts {
			engagement += p.Engagement()
		}
		report.HotTopics = append(report.HotTopics, models.TopicCount{
			Topic:      topic,
			Count:      len(posts),
			Engagement: engagement,
		})
		pooled = append(pooled, posts...)
	}
	if len(pooled) == 0 && failures == len(topics) {
		return nil, wrap(models.CapabilityRegional,
			fmt.Errorf("all %d topic fetches for %q failed: %w", len(topics), city, firstErr))
	}

	sort.SliceStable(report.HotTopics, func(i, j int) bool {
		return report.HotTopics[i].Engagement > report.HotTopics[j].Engagement
	})

	report.TotalPosts = len(pooled)
	for _, p := range pooled {
		report.TotalEngagement += p.Engagement()
	}
	if report.TotalPosts > 0 {
		report.AvgEngagement = float64(report.TotalEngagement) / float64(report.TotalPosts)
	}
	report.TopAuthors = analytics.AuthorRanking(pooled, h.deps.topK(params))
	report.Insights = cityInsights(report, curated)

	status := models.StatusOK
	summary := fmt.Sprintf("%s: %d posts across %d topics, %d total engagement.",
		city, report.TotalPosts, len(report.HotTopics), report.TotalEngagement)
	if failures > 0 {
		status = models.StatusDegraded
		summary += fmt.Sprintf(" (%d of %d topic queries failed)", failures, len(topics))
	}

	return &models.Report{
		Capability: models.CapabilityRegional,
		Status:     status,
		Summary:    summary,
		Regional:   report,
	}, nil
}

func cityInsights(r *models.CityReport, curated bool) []string {
	var out []string
	if len(r.HotTopics) > 0 {
		out = append(out, fmt.Sprintf("%q is the hottest topic in %s right now.", r.HotTopics[0].Topic, r.City))
	}
	if r.AvgEngagement > 5000 {
		out = append(out, fmt.Sprintf("Content about %s averages %.0f engagement per post, well above typical.", r.City, r.AvgEngagement))
	}
	if len(r.Specialties) > 0 {
		out = append(out, "Local highlights: "+strings.Join(r.Specialties, ", "))
	}
	if !curated {
		out = append(out, fmt.Sprintf("%s has no curated profile; topics were derived from the city name.", r.City))
	}
	return out
}
