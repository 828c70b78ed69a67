package util

import (
	"regexp"
	"strconv"
	"strings"
)

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

var nonNumericRegex = regexp.MustCompile(`[^\d.]`)

// CleanNumericString strips everything except digits and decimal points.
func CleanNumericString(s string) string {
	return nonNumericRegex.ReplaceAllString(s, "")
}

var postIDRegex = regexp.MustCompile(`/(?:explore|discovery/item)/([a-zA-Z0-9]+)`)

// ExtractPostID pulls the platform post id out of a post URL, or returns ""
// when the URL has no recognizable id segment.
func ExtractPostID(url string) string {
	m := postIDRegex.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
