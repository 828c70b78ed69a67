package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/redinsight/agent/internal/config"
	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/session"
)

const searchBody = `<html><script>
window.__INITIAL_STATE__ = {"search": {"notes": [
  {"id": "n1", "noteCard": {"noteId": "n1", "title": "ok", "interactInfo": {"likedCount": "10"}}},
  {"id": "", "noteCard": {"noteId": "", "title": "", "desc": ""}}
]}};</script></html>`

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		PlatformBaseURL:   serverURL,
		RateLimitInterval: time.Second,
		MaxRetries:        2,
		RetryBackoffBase:  time.Second,
	}
	c := New(cfg, session.NewHolder("token=abc", 3))
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	posts, err := c.Search(context.Background(), models.SearchQuery{Keyword: "美食"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests != 3 {
		t.Errorf("expected 3 attempts, got %d", requests)
	}
	if len(posts) != 1 {
		t.Errorf("expected the malformed record dropped, got %d posts", len(posts))
	}
}

func TestSearchExhaustedRetriesYieldAcquisitionError(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), models.SearchQuery{Keyword: "x"})

	var acqErr *models.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
	if acqErr.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", acqErr.Attempts)
	}
	if requests != 3 {
		t.Errorf("expected 3 requests, got %d", requests)
	}
}

func TestSearchDoesNotRetryAuthFailure(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(461) // the platform's session-revoked status
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), models.SearchQuery{Keyword: "x"})

	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if requests != 1 {
		t.Errorf("auth failure must not be retried, got %d requests", requests)
	}
}

func TestSearchEmptyResultIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><script>window.__INITIAL_STATE__ = {"search": {"notes": []}};</script></html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	posts, err := c.Search(context.Background(), models.SearchQuery{Keyword: "冷门"})
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected no posts, got %d", len(posts))
	}
}

func TestSearchSendsCredentialsAndSort(t *testing.T) {
	var gotCookie, gotSort string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotSort = r.URL.Query().Get("sort")
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Search(context.Background(), models.SearchQuery{Keyword: "x", SortMode: models.SortLatest}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "token=abc" {
		t.Errorf("expected session cookie, got %q", gotCookie)
	}
	if gotSort != "time_descending" {
		t.Errorf("expected time_descending sort, got %q", gotSort)
	}
}

func TestFetchDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><script>window.__INITIAL_STATE__ = {"note": {"noteDetailMap":
			{"d1": {"note": {"noteId": "d1", "title": "detail", "interactInfo": {"likedCount": "5"}}}}}};</script></html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	post, err := c.FetchDetail(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != "d1" || post.Title != "detail" {
		t.Errorf("unexpected post: %+v", post)
	}
}

func TestRateGateSerializesConcurrentCallers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	interval := 40 * time.Millisecond
	c.limiter = rate.NewLimiter(rate.Every(interval), 1)

	start := time.Now()
	done := make(chan error, 3)
	for n := 0; n < 3; n++ {
		go func() {
			_, err := c.Search(context.Background(), models.SearchQuery{Keyword: "x"})
			done <- err
		}()
	}
	for n := 0; n < 3; n++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Three admissions through a 40ms gate need at least two full intervals.
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("concurrent requests not spaced by the gate: finished in %v", elapsed)
	}
}

func TestInvalidSessionSkipsNetwork(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(461)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	// Three auth failures invalidate the session.
	for n := 0; n < 3; n++ {
		c.Search(context.Background(), models.SearchQuery{Keyword: "x"})
	}
	if requests != 3 {
		t.Fatalf("expected 3 requests before invalidation, got %d", requests)
	}

	_, err := c.Search(context.Background(), models.SearchQuery{Keyword: "x"})
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if requests != 3 {
		t.Errorf("invalid session must not reach the network, got %d requests", requests)
	}
}

func TestFetchDetailRejectsBadID(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if _, err := c.FetchDetail(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatal("expected error for a non-alphanumeric post id")
	}
	if _, err := c.FetchDetail(context.Background(), ""); err == nil {
		t.Fatal("expected error for an empty post id")
	}
}

func TestSortParam(t *testing.T) {
	tests := []struct {
		mode models.SortMode
		want string
	}{
		{models.SortLatest, "time_descending"},
		{models.SortHottest, "popularity_descending"},
		{models.SortRelevance, "general"},
		{"", "general"},
	}
	for _, tt := range tests {
		if got := sortParam(tt.mode); got != tt.want {
			t.Errorf("sortParam(%q) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
