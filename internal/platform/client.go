// Package platform implements the acquisition client: rate-limited,
// retrying fetches of search results and post detail from the content
// platform. Every response is treated as untrusted; malformed records are
// dropped here so downstream code only sees usable raw posts.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/redinsight/agent/internal/config"
	"github.com/redinsight/agent/internal/models"
	"github.com/redinsight/agent/internal/session"
	"github.com/redinsight/agent/internal/util"
	"github.com/redinsight/agent/internal/validator"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher is the acquisition contract the handlers depend on.
type Fetcher interface {
	Search(ctx context.Context, query models.SearchQuery) ([]models.RawPost, error)
	FetchDetail(ctx context.Context, postID string) (*models.RawPost, error)
}

// Client fetches platform content. All requests, including concurrent ones
// from fanned-out handlers, pass through one shared rate limiter so the
// minimum inter-request interval holds process-wide.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	holder      *session.Holder
	maxRetries  int
	backoffBase time.Duration
	sleep       util.SleepFunc
	validate    *validator.Validator
}

// New creates a client around the shared session holder. The rate limiter
// admits one request per configured interval with no burst.
func New(cfg *config.Config, holder *session.Holder) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     strings.TrimRight(cfg.PlatformBaseURL, "/"),
		limiter:     rate.NewLimiter(rate.Every(cfg.RateLimitInterval), 1),
		holder:      holder,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.RetryBackoffBase,
		sleep:       util.CtxSleep,
		validate:    validator.New(),
	}
}

// Search fetches search results for the query. Transient failures are
// retried with exponential backoff; authentication failures are not retried
// with the same session. An empty, well-formed result is not an error.
func (c *Client) Search(ctx context.Context, query models.SearchQuery) ([]models.RawPost, error) {
	var raw []models.RawPost
	err := util.RetryWithBackoff(ctx, c.maxRetries, c.backoffBase, c.sleep, func(attempt int) error {
		if attempt > 0 {
			slog.Info("retrying platform search", "keyword", query.Keyword, "attempt", attempt+1)
		}
		posts, err := c.attemptSearch(ctx, query)
		if err != nil {
			var authErr *models.AuthError
			if errors.As(err, &authErr) {
				return util.Permanent(err)
			}
			return err
		}
		raw = posts
		return nil
	})
	if err != nil {
		return nil, classify(err, c.maxRetries+1)
	}
	return raw, nil
}

// FetchDetail fetches a single post page by platform id.
func (c *Client) FetchDetail(ctx context.Context, postID string) (*models.RawPost, error) {
	if err := c.validate.ValidateVar(postID, "required,alphanum"); err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", postID, err)
	}

	var raw *models.RawPost
	err := util.RetryWithBackoff(ctx, c.maxRetries, c.backoffBase, c.sleep, func(attempt int) error {
		if attempt > 0 {
			slog.Info("retrying post detail fetch", "post_id", postID, "attempt", attempt+1)
		}
		post, err := c.attemptDetail(ctx, postID)
		if err != nil {
			var authErr *models.AuthError
			if errors.As(err, &authErr) {
				return util.Permanent(err)
			}
			return err
		}
		raw = post
		return nil
	})
	if err != nil {
		return nil, classify(err, c.maxRetries+1)
	}
	return raw, nil
}

// classify maps a terminal retry error to the acquisition taxonomy. Auth and
// cancellation errors pass through; everything else becomes an
// AcquisitionError carrying the last cause.
func classify(err error, attempts int) error {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.AcquisitionError{Attempts: attempts, Err: err}
}

func (c *Client) attemptSearch(ctx context.Context, query models.SearchQuery) ([]models.RawPost, error) {
	u := fmt.Sprintf("%s/search_result?keyword=%s&source=web_search_result_notes&sort=%s",
		c.baseURL, url.QueryEscape(query.Keyword), sortParam(query.SortMode))

	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	posts, err := parseSearchPage(body, c.baseURL)
	if err != nil {
		return nil, err
	}
	return c.keepValid(posts), nil
}

func (c *Client) attemptDetail(ctx context.Context, postID string) (*models.RawPost, error) {
	body, err := c.fetch(ctx, c.baseURL+"/explore/"+url.PathEscape(postID))
	if err != nil {
		return nil, err
	}

	post, err := parseDetailPage(body, postID)
	if err != nil {
		return nil, err
	}
	if err := c.validate.ValidateStruct(post); err != nil {
		return nil, fmt.Errorf("detail record for %s unusable: %w", postID, err)
	}
	return post, nil
}

// fetch performs one rate-gated, authenticated GET. Auth-equivalent status
// codes mark a session failure; 5xx and transport errors are transient.
func (c *Client) fetch(ctx context.Context, rawURL string) (string, error) {
	// Single shared admission gate. Concurrent callers queue here rather
	// than racing the interval.
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	sess, err := c.holder.Get()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", sess.CookieHeader())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden || res.StatusCode == 461:
		// 461 is the platform's session-revoked response.
		c.holder.MarkFailure()
		return "", &models.AuthError{Reason: fmt.Sprintf("platform returned status %d", res.StatusCode)}
	case res.StatusCode >= 500:
		return "", fmt.Errorf("platform returned status %d for %s", res.StatusCode, rawURL)
	case res.StatusCode != http.StatusOK:
		return "", fmt.Errorf("unexpected status %d for %s", res.StatusCode, rawURL)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response for %s: %w", rawURL, err)
	}

	c.holder.MarkSuccess()
	return string(data), nil
}

// keepValid drops records that fail hard validation so the normalizer never
// sees a partial or corrupt entry. Order of the survivors is preserved.
func (c *Client) keepValid(posts []models.RawPost) []models.RawPost {
	valid := posts[:0:0]
	dropped := 0
	for _, p := range posts {
		if err := c.validate.ValidateStruct(&p); err != nil {
			dropped++
			continue
		}
		if strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.Content) == "" {
			dropped++
			continue
		}
		valid = append(valid, p)
	}
	if dropped > 0 {
		slog.Debug("dropped malformed raw records", "dropped", dropped, "kept", len(valid))
	}
	return valid
}

func sortParam(mode models.SortMode) string {
	switch mode {
	case models.SortLatest:
		return "time_descending"
	case models.SortHottest:
		return "popularity_descending"
	default:
		return "general"
	}
}
