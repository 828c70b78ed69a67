// Package session owns the platform credential state. It is one of the two
// pieces of process-wide mutable state (the other is the acquisition rate
// gate); all mutation goes through the Holder under its mutex.
package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redinsight/agent/internal/models"
)

const (
	defaultDomain = ".xiaohongshu.com"
	defaultPath   = "/"
)

// Cookie is a single credential cookie.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Session is the authentication material for platform requests. Mutable only
// by the Holder; everywhere else receives copies.
type Session struct {
	Cookies   []Cookie
	CreatedAt time.Time
	Valid     bool
}

// CookieHeader renders the cookies as a Cookie request header value.
func (s *Session) CookieHeader() string {
	parts := make([]string, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Holder tracks the current session and its consecutive-failure count.
// There is no automatic refresh: after the failure threshold is reached the
// holder stays invalid until Reset is called with new credentials.
type Holder struct {
	mu        sync.Mutex
	session   *Session
	cookieStr string
	failures  int
	threshold int
}

// NewHolder creates a holder around a raw cookie string
// ("name=value; name2=value2"). The session itself is built lazily on the
// first Get.
func NewHolder(cookieStr string, failureThreshold int) *Holder {
	if failureThreshold < 1 {
		failureThreshold = 3
	}
	return &Holder{
		cookieStr: cookieStr,
		threshold: failureThreshold,
	}
}

// Get returns a copy of the current valid session, or an AuthError when no
// credentials are configured or the session has been invalidated.
func (h *Holder) Get() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cookieStr == "" {
		return nil, &models.AuthError{Reason: "no platform credentials configured"}
	}
	if h.session == nil {
		h.session = &Session{
			Cookies:   parseCookies(h.cookieStr),
			CreatedAt: time.Now(),
			Valid:     true,
		}
	}
	if !h.session.Valid {
		return nil, &models.AuthError{Reason: "credentials invalidated, re-authentication required"}
	}

	cp := *h.session
	cp.Cookies = append([]Cookie(nil), h.session.Cookies...)
	return &cp, nil
}

// MarkFailure records one authentication failure. Reaching the threshold
// flips the session invalid.
func (h *Holder) MarkFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures++
	if h.session != nil && h.failures >= h.threshold && h.session.Valid {
		h.session.Valid = false
		slog.Warn("session invalidated after consecutive auth failures", "failures", h.failures)
	}
}

// MarkSuccess resets the consecutive-failure count.
func (h *Holder) MarkSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
}

// Valid reports whether a session could currently be handed out.
func (h *Holder) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cookieStr == "" {
		return false
	}
	return h.session == nil || h.session.Valid
}

// Reset installs new credentials, restoring validity and zeroing the failure
// count. This is the only recovery path after invalidation.
func (h *Holder) Reset(cookieStr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cookieStr = cookieStr
	h.session = nil
	h.failures = 0
}

func parseCookies(s string) []Cookie {
	var cookies []Cookie
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: defaultDomain,
			Path:   defaultPath,
		})
	}
	return cookies
}
