package platform

import (
	"strings"
	"testing"
)

const cardPage = `<html><body>
<section class="note-item">
  <a href="/explore/abc123"></a>
  <div class="title">成都美食探店</div>
  <div class="author"><span class="name">吃货小王</span></div>
  <div class="like-wrapper"><span class="count">2.3w</span></div>
  <img src="https://img.example.com/cover1.jpg"/>
</section>
<section class="note-item">
  <a href="/explore/def456"></a>
  <div class="title">周末好去处</div>
  <div class="like-wrapper"><span class="count">856</span></div>
</section>
<section class="note-item">
  <a href="/user/profile/999"></a>
  <div class="title">no id, must be skipped</div>
</section>
</body></html>`

func TestParseSearchPageCards(t *testing.T) {
	posts, err := parseSearchPage(cardPage, "https://www.xiaohongshu.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "abc123" {
		t.Errorf("expected id abc123, got %q", first.ID)
	}
	if first.Title != "成都美食探店" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Likes != "2.3w" {
		t.Errorf("likes must stay in raw string form, got %q", first.Likes)
	}
	if !strings.HasPrefix(first.URL, "https://www.xiaohongshu.com/explore/") {
		t.Errorf("relative href must be resolved, got %q", first.URL)
	}
}

const statePage = `<html><body><script>
window.__INITIAL_STATE__ = {
  "search": {
    "notes": [
      {"id": "n1", "noteCard": {
        "noteId": "n1",
        "displayTitle": "杭州周末攻略",
        "desc": "西湖边走走",
        "time": 1709290800000,
        "user": {"userId": "u1", "nickname": "旅行家"},
        "interactInfo": {"likedCount": "1.5k", "commentCount": "88", "collectedCount": undefined},
        "cover": {"url": "https://img.example.com/c.jpg"},
        "tagList": [{"name": "杭州"}, {"name": "周末"}]
      }},
      {"id": "", "noteCard": {"noteId": "", "title": ""}}
    ]
  }
};</script></body></html>`

func TestParseSearchPageEmbeddedState(t *testing.T) {
	posts, err := parseSearchPage(statePage, "https://www.xiaohongshu.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post (id-less note dropped), got %d", len(posts))
	}

	p := posts[0]
	if p.ID != "n1" || p.Title != "杭州周末攻略" {
		t.Errorf("unexpected post: %+v", p)
	}
	if p.Likes != "1.5k" || p.Comments != "88" {
		t.Errorf("unexpected counts: likes=%q comments=%q", p.Likes, p.Comments)
	}
	// The bare `undefined` token must decode as an absent value, not an error.
	if p.Collects != "" {
		t.Errorf("expected empty collects, got %q", p.Collects)
	}
	if p.PublishedAt != "1709290800000" {
		t.Errorf("expected millisecond timestamp, got %q", p.PublishedAt)
	}
	if len(p.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", p.Tags)
	}
}

func TestParseSearchPageEmptyStateIsNotError(t *testing.T) {
	page := `<html><script>window.__INITIAL_STATE__ = {"search": {"notes": []}};</script></html>`
	posts, err := parseSearchPage(page, "https://www.xiaohongshu.com")
	if err != nil {
		t.Fatalf("well-formed page with zero notes must not error: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected empty result, got %d posts", len(posts))
	}
}

func TestParseSearchPageMalformed(t *testing.T) {
	if _, err := parseSearchPage("<html><body>blocked</body></html>", "https://x"); err == nil {
		t.Fatal("page with neither cards nor state must be an error")
	}
}

const detailPage = `<html><script>
window.__INITIAL_STATE__ = {
  "note": {
    "noteDetailMap": {
      "d1": {"note": {
        "noteId": "d1",
        "title": "长沙美食地图",
        "desc": "夜市从这里开始",
        "user": {"userId": "u9", "nickname": "本地人"},
        "interactInfo": {"likedCount": "3421", "commentCount": "156", "collectedCount": "980"},
        "imageList": [{"url": "https://img.example.com/first.jpg"}]
      }}
    }
  }
};</script></html>`

func TestParseDetailPage(t *testing.T) {
	post, err := parseDetailPage(detailPage, "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != "d1" || post.Title != "长沙美食地图" {
		t.Errorf("unexpected post: %+v", post)
	}
	if post.CoverURL != "https://img.example.com/first.jpg" {
		t.Errorf("cover must fall back to the first image, got %q", post.CoverURL)
	}
}

func TestParseDetailPageMissingPost(t *testing.T) {
	if _, err := parseDetailPage(detailPage, "other"); err == nil {
		t.Fatal("expected error for a post missing from the state")
	}
}
