// Package ai wraps the Gemini completion collaborator. The client is
// optional: without an API key NewClient returns nil and every method on the
// nil receiver reports ErrUnavailable, letting callers degrade instead of
// failing the request.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/redinsight/agent/internal/models"
)

// ErrUnavailable signals that the completion collaborator cannot be used
// (no key configured or the client was not created).
var ErrUnavailable = errors.New("completion collaborator unavailable")

type Client struct {
	jsonModel *genai.GenerativeModel
	textModel *genai.GenerativeModel
}

// IntentResult is the structured classification the model returns.
type IntentResult struct {
	Message  string   `json:"message"`
	Action   string   `json:"action"`
	Keywords []string `json:"keywords"`
	Params   struct {
		Category     string   `json:"category"`
		City         string   `json:"city"`
		GuideType    string   `json:"guide_type"`
		CompareItems []string `json:"compare_items"`
	} `json:"params"`
	FollowUp []string `json:"follow_up"`
}

// NewClient creates a Gemini client, or returns nil when no key is provided.
func NewClient(ctx context.Context, apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	jsonModel := client.GenerativeModel(modelID)
	jsonModel.SetTemperature(0.1) // Low temperature for deterministic output
	jsonModel.ResponseMIMEType = "application/json"

	textModel := client.GenerativeModel(modelID)
	textModel.SetTemperature(0.7)

	return &Client{jsonModel: jsonModel, textModel: textModel}, nil
}

// Available reports whether the collaborator can be called.
func (c *Client) Available() bool {
	return c != nil && c.jsonModel != nil
}

const classifyPrompt = `You are the intent classifier of a content-insight assistant for a Chinese social platform.
Map the user's latest message, given the recent conversation, to one action:
search, ranking, regional, statistics, guide, compare, chat.

Rules:
- keywords: the search terms to use on the platform (Chinese preferred).
- params.category: for ranking, one of hot/beauty/fashion/food/travel/fitness/digital/home/pet/mother.
- params.city: for regional or travel guides, the Chinese city name.
- params.guide_type: for guide, one of travel/shopping/food/pitfalls/comparison/budget/beginner.
- params.compare_items: for compare, the two or three things being compared.
- Resolve pronouns like "it" or "the other one" from the recent turns.
- message: a one-sentence friendly acknowledgement to show the user.
- follow_up: up to three short suggested next questions.

Recent conversation:
%s

User message: %q

Output JSON adhering to the schema.`

// ClassifyIntent asks the model for a structured (action, parameters) pair.
func (c *Client) ClassifyIntent(ctx context.Context, message string, history []models.ConversationTurn) (*IntentResult, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	model := *c.jsonModel
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"message":  {Type: genai.TypeString},
			"action":   {Type: genai.TypeString},
			"keywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"params": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":      {Type: genai.TypeString},
					"city":          {Type: genai.TypeString},
					"guide_type":    {Type: genai.TypeString},
					"compare_items": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
			},
			"follow_up": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"message", "action", "keywords"},
	}

	prompt := fmt.Sprintf(classifyPrompt, renderHistory(history), message)
	text, err := generateText(ctx, &model, prompt)
	if err != nil {
		return nil, err
	}

	var result IntentResult
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	return &result, nil
}

// AnalyzePosts produces a short prose analysis of a post set.
func (c *Client) AnalyzePosts(ctx context.Context, keyword string, posts []models.Post) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	prompt := fmt.Sprintf(`You are a content analyst. The posts below were collected for the topic %q.
Summarize, in the language the posts are written in: the content trends, what users care about,
what the engagement numbers suggest, and two or three recommendations. 200-400 words.

%s`, keyword, renderPosts(posts))

	return generateText(ctx, c.textModel, prompt)
}

// GenerateGuide turns a post set into a structured guide with the given
// section outline.
func (c *Client) GenerateGuide(ctx context.Context, posts []models.Post, topic, guideType string, sections []string) (*models.Guide, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	model := *c.jsonModel
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":   {Type: genai.TypeString},
			"summary": {Type: genai.TypeString, Description: "Roughly 100 words."},
			"sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":   {Type: genai.TypeString},
						"content": {Type: genai.TypeString},
						"tips":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"title", "content"},
				},
			},
			"key_points": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"warnings":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"title", "summary", "sections"},
	}

	prompt := fmt.Sprintf(`Write a practical %s guide about %q based on the posts below.
Use these sections: %s. Include 5-8 key points and 3-5 warnings.

%s

Output JSON adhering to the schema.`,
		guideType, topic, strings.Join(sections, ", "), renderPosts(posts))

	text, err := generateText(ctx, &model, prompt)
	if err != nil {
		return nil, err
	}

	var guide models.Guide
	if err := json.Unmarshal([]byte(stripFences(text)), &guide); err != nil {
		return nil, fmt.Errorf("failed to parse guide response: %w", err)
	}
	guide.GuideType = guideType
	guide.SourcePostCount = len(posts)
	return &guide, nil
}

// GenerateComparison produces prose insights for a comparison matrix.
func (c *Client) GenerateComparison(ctx context.Context, items []string, posts []models.Post) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	prompt := fmt.Sprintf(`Compare %s using the posts below. Cover strengths, weaknesses,
what users prefer and a final recommendation. Keep it under 300 words, in the language of the posts.

%s`, strings.Join(items, " vs "), renderPosts(posts))

	return generateText(ctx, c.textModel, prompt)
}

func generateText(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from gemini")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return strings.TrimSpace(string(txt)), nil
		}
	}
	return "", fmt.Errorf("no text part in response")
}

// stripFences removes markdown code fences the model sometimes wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func renderHistory(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}

func renderPosts(posts []models.Post) string {
	var b strings.Builder
	for i, p := range posts {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "Post %d:\n- Title: %s\n- Excerpt: %s\n- Author: %s\n- Likes: %d, Comments: %d, Collects: %d\n- Tags: %s\n",
			i+1, p.Title, truncate(p.BodyExcerpt, 300), p.AuthorName,
			p.LikeCount, p.CommentCount, p.CollectCount, strings.Join(p.Tags, ", "))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
