package models

import "time"

// Capability is one of the supported request types.
type Capability string

const (
	CapabilitySearch    Capability = "search"
	CapabilityRanking   Capability = "ranking"
	CapabilityRegional  Capability = "regional"
	CapabilityAnalytics Capability = "statistics"
	CapabilityGuide     Capability = "guide"
	CapabilityCompare   Capability = "compare"
	CapabilityChat      Capability = "chat"
)

// Params carries the classified parameters for a capability invocation.
type Params struct {
	Keywords     []string `json:"keywords,omitempty"`
	MaxItems     int      `json:"max_items,omitempty"`
	SortMode     SortMode `json:"sort_mode,omitempty"`
	City         string   `json:"city,omitempty"`
	Category     string   `json:"category,omitempty"`
	GuideType    string   `json:"guide_type,omitempty"`
	CompareItems []string `json:"compare_items,omitempty"`
	TopK         int      `json:"top_k,omitempty"`
}

// Intent is the classified (capability, parameters) pair for one message.
type Intent struct {
	Capability Capability `json:"capability"`
	Params     Params     `json:"params"`
	Message    string     `json:"message,omitempty"`
	FollowUp   []string   `json:"follow_up,omitempty"`
	Confidence float64    `json:"confidence"`
	// LowConfidence marks a best-effort heuristic guess made without the
	// completion collaborator. The dispatcher may confirm with the user
	// instead of executing.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// ReportStatus tells the caller how complete the report content is.
type ReportStatus string

const (
	StatusOK       ReportStatus = "ok"
	StatusDegraded ReportStatus = "degraded"
	StatusFailed   ReportStatus = "failed"
)

// Step is one entry of the execution trace recorded while a request is
// processed, shown to the user alongside the report.
type Step struct {
	Seq         int       `json:"step"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	At          time.Time `json:"timestamp"`
}

// Report is the terminal, immutable artifact of one dispatcher invocation:
// structured payload plus a natural-language summary. Exactly one payload
// field is set, matching Capability.
type Report struct {
	ID         string       `json:"id"`
	Capability Capability   `json:"capability"`
	Status     ReportStatus `json:"status"`
	Summary    string       `json:"summary"`
	Posts      []Post       `json:"posts,omitempty"`
	Ranking    *Ranking     `json:"ranking,omitempty"`
	Regional   *CityReport  `json:"regional,omitempty"`
	Statistics *Statistics  `json:"statistics,omitempty"`
	Guide      *Guide       `json:"guide,omitempty"`
	Comparison *Comparison  `json:"comparison,omitempty"`
	Analysis   string       `json:"analysis,omitempty"`
	FollowUp   []string     `json:"follow_up,omitempty"`
	Steps      []Step       `json:"steps,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RankingItem is one ranked entry with its heat score.
type RankingItem struct {
	Rank  int     `json:"rank"`
	Post  Post    `json:"post"`
	Score float64 `json:"score"`
	Trend string  `json:"trend"`
}

// Ranking is the payload of a ranking report.
type Ranking struct {
	Category        string        `json:"category"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Items           []RankingItem `json:"items"`
	TotalEngagement int           `json:"total_engagement"`
	AvgScore        float64       `json:"avg_score"`
}

// TopicCount is a topic with occurrence and engagement totals.
type TopicCount struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Engagement int    `json:"engagement"`
}

// CityReport is the payload of a regional report.
type CityReport struct {
	City            string       `json:"city"`
	TotalPosts      int          `json:"total_posts"`
	HotTopics       []TopicCount `json:"hot_topics,omitempty"`
	Specialties     []string     `json:"specialties,omitempty"`
	TotalEngagement int          `json:"total_engagement"`
	AvgEngagement   float64      `json:"avg_engagement"`
	TopAuthors      []AuthorRank `json:"top_authors,omitempty"`
	Insights        []string     `json:"insights,omitempty"`
}

// Bucket is one range of the interaction distribution.
type Bucket struct {
	Label           string  `json:"label"`
	Count           int     `json:"count"`
	Percentage      float64 `json:"percentage"`
	TotalEngagement int     `json:"total_engagement"`
}

// Keyword is one token of the keyword frequency result.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// AuthorRank aggregates one author's interaction totals.
type AuthorRank struct {
	AuthorID      string `json:"author_id"`
	AuthorName    string `json:"author_name"`
	PostCount     int    `json:"post_count"`
	TotalLikes    int    `json:"total_likes"`
	TotalComments int    `json:"total_comments"`
	TotalCollects int    `json:"total_collects"`
	Engagement    int    `json:"engagement"`
	TopPost       string `json:"top_post,omitempty"`
}

// PostScore pairs a post with its quality score.
type PostScore struct {
	PostID string  `json:"post_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Statistics is the payload of an analytics report.
type Statistics struct {
	Keyword         string       `json:"keyword"`
	TotalPosts      int          `json:"total_posts"`
	TotalLikes      int          `json:"total_likes"`
	TotalComments   int          `json:"total_comments"`
	TotalCollects   int          `json:"total_collects"`
	TotalEngagement int          `json:"total_engagement"`
	AvgEngagement   float64      `json:"avg_engagement"`
	MaxLikes        int          `json:"max_likes"`
	Distribution    []Bucket     `json:"distribution"`
	Keywords        []Keyword    `json:"keywords"`
	TopAuthors      []AuthorRank `json:"top_authors"`
	QualityScores   []PostScore  `json:"quality_scores"`
	Insights        []string     `json:"insights"`
}

// GuideSection is one chapter of a generated guide.
type GuideSection struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tips    []string `json:"tips,omitempty"`
}

// Guide is the payload of a guide report.
type Guide struct {
	GuideType       string         `json:"guide_type"`
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	Sections        []GuideSection `json:"sections"`
	KeyPoints       []string       `json:"key_points,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	SourcePostCount int            `json:"source_post_count"`
}

// CompareEntry holds the aggregate numbers for one compared item.
type CompareEntry struct {
	Item            string  `json:"item"`
	PostCount       int     `json:"post_count"`
	TotalLikes      int     `json:"total_likes"`
	TotalComments   int     `json:"total_comments"`
	TotalEngagement int     `json:"total_engagement"`
	AvgEngagement   float64 `json:"avg_engagement"`
}

// Comparison is the payload of a compare report.
type Comparison struct {
	Items    []string       `json:"items"`
	Matrix   []CompareEntry `json:"matrix"`
	Winner   string         `json:"winner,omitempty"`
	Insights []string       `json:"insights,omitempty"`
}

// ConversationTurn is one entry of a session's ordered history.
type ConversationTurn struct {
	Role     string    `json:"role"` // "user" or "agent"
	Text     string    `json:"text"`
	At       time.Time `json:"timestamp"`
	ReportID string    `json:"report_id,omitempty"`
}
