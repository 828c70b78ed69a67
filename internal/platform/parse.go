package platform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/util"
)

const initialStateMarker = "window.__INITIAL_STATE__"

// parseSearchPage extracts raw posts from a search result page. Card markup
// is tried first; when the page renders everything client-side the embedded
// __INITIAL_STATE__ JSON is used instead. A page with neither is malformed
// and reported as an error so the caller can retry; a well-formed page with
// zero notes yields an empty slice.
func parseSearchPage(html, baseURL string) ([]models.RawPost, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	posts := parseNoteCards(doc, baseURL)
	if len(posts) > 0 {
		return posts, nil
	}

	state, ok := extractInitialState(html)
	if !ok {
		return nil, fmt.Errorf("no note cards or embedded state found, possible block or page change")
	}
	return state.searchPosts(baseURL), nil
}

// parseDetailPage extracts one raw post from a post detail page.
func parseDetailPage(html, postID string) (*models.RawPost, error) {
	state, ok := extractInitialState(html)
	if !ok {
		return nil, fmt.Errorf("no embedded state on detail page for %s", postID)
	}
	post := state.detailPost(postID)
	if post == nil {
		return nil, fmt.Errorf("post %s missing from detail page state", postID)
	}
	return post, nil
}

func parseNoteCards(doc *goquery.Document, baseURL string) []models.RawPost {
	var posts []models.RawPost
	doc.Find("section.note-item").Each(func(_ int, s *goquery.Selection) {
		var p models.RawPost

		link := s.Find(`a[href*="/explore/"]`).First()
		if href, ok := link.Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = baseURL + href
			}
			p.URL = href
			p.ID = util.ExtractPostID(href)
		}
		if p.ID == "" {
			return
		}

		p.Title = strings.TrimSpace(s.Find(".title, [class*=title]").First().Text())
		p.AuthorName = strings.TrimSpace(s.Find(".author, [class*=author] .name, [class*=nickname]").First().Text())
		p.Likes = strings.TrimSpace(s.Find(".like-wrapper .count, [class*=like] .count").First().Text())
		if src, ok := s.Find("img").First().Attr("src"); ok {
			p.CoverURL = src
		}
		posts = append(posts, p)
	})
	return posts
}

// initialState mirrors the slices of the platform's embedded page state the
// client reads. Search results and the per-post detail map carry the same
// note payload under slightly different wrappers.
type initialState struct {
	Search struct {
		Notes []noteWrapper `json:"notes"`
	} `json:"search"`
	Note struct {
		NoteDetailMap map[string]noteWrapper `json:"noteDetailMap"`
	} `json:"note"`
}

type noteWrapper struct {
	ID       string   `json:"id"`
	Note     noteData `json:"note"`
	NoteCard noteData `json:"noteCard"`
}

func (w noteWrapper) data() noteData {
	if w.NoteCard.anySet() {
		return w.NoteCard
	}
	return w.Note
}

type noteData struct {
	NoteID       string `json:"noteId"`
	Title        string `json:"title"`
	DisplayTitle string `json:"displayTitle"`
	Desc         string `json:"desc"`
	Time         int64  `json:"time"` // milliseconds since epoch
	IPLocation   string `json:"ipLocation"`
	User         struct {
		UserID   string `json:"userId"`
		Nickname string `json:"nickname"`
	} `json:"user"`
	InteractInfo struct {
		LikedCount     string `json:"likedCount"`
		CommentCount   string `json:"commentCount"`
		CollectedCount string `json:"collectedCount"`
	} `json:"interactInfo"`
	Cover struct {
		URL string `json:"url"`
	} `json:"cover"`
	ImageList []struct {
		URL string `json:"url"`
	} `json:"imageList"`
	TagList []struct {
		Name string `json:"name"`
	} `json:"tagList"`
}

func (n noteData) anySet() bool {
	return n.NoteID != "" || n.Title != "" || n.DisplayTitle != "" || n.Desc != ""
}

// extractInitialState locates the embedded state assignment and decodes the
// single JSON object that follows it. The platform emits bare `undefined`
// tokens inside the blob, which are rewritten to null before decoding.
func extractInitialState(html string) (*initialState, bool) {
	idx := strings.Index(html, initialStateMarker)
	if idx < 0 {
		return nil, false
	}
	rest := html[idx+len(initialStateMarker):]
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return nil, false
	}
	rest = strings.ReplaceAll(rest[eq+1:], "undefined", "null")

	var state initialState
	dec := json.NewDecoder(strings.NewReader(rest))
	if err := dec.Decode(&state); err != nil {
		return nil, false
	}
	return &state, true
}

func (s *initialState) searchPosts(baseURL string) []models.RawPost {
	posts := make([]models.RawPost, 0, len(s.Search.Notes))
	for _, w := range s.Search.Notes {
		if p, ok := rawFromNote(w, baseURL); ok {
			posts = append(posts, p)
		}
	}
	return posts
}

func (s *initialState) detailPost(postID string) *models.RawPost {
	for id, w := range s.Note.NoteDetailMap {
		if id != postID && w.data().NoteID != postID {
			continue
		}
		if p, ok := rawFromNote(w, ""); ok {
			if p.ID == "" {
				p.ID = postID
			}
			return &p
		}
	}
	return nil
}

func rawFromNote(w noteWrapper, baseURL string) (models.RawPost, bool) {
	n := w.data()
	id := n.NoteID
	if id == "" {
		id = w.ID
	}
	if id == "" {
		return models.RawPost{}, false
	}

	title := n.Title
	if title == "" {
		title = n.DisplayTitle
	}

	p := models.RawPost{
		ID:         id,
		Title:      title,
		Content:    n.Desc,
		AuthorID:   n.User.UserID,
		AuthorName: n.User.Nickname,
		Likes:      n.InteractInfo.LikedCount,
		Comments:   n.InteractInfo.CommentCount,
		Collects:   n.InteractInfo.CollectedCount,
		CoverURL:   n.Cover.URL,
		City:       n.IPLocation,
	}
	if p.CoverURL == "" && len(n.ImageList) > 0 {
		p.CoverURL = n.ImageList[0].URL
	}
	if baseURL != "" {
		p.URL = baseURL + "/explore/" + id
	}
	if n.Time > 0 {
		p.PublishedAt = strconv.FormatInt(n.Time, 10)
	}
	for _, t := range n.TagList {
		if t.Name != "" {
			p.Tags = append(p.Tags, t.Name)
		}
	}
	return p, true
}
