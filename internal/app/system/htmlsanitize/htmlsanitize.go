// Package htmlsanitize strips unsafe markup from free-text fields
// (task and project descriptions, comment bodies) before they are stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ugc allows the usual formatting tags and drops scripts, event handlers,
// iframes, styles and javascript: links.
var ugc = bluemonday.UGCPolicy()

// Sanitize returns s with unsafe markup removed. Plain text passes through.
func Sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if IsPlainText(s) {
		return s
	}
	return ugc.Sanitize(s)
}

// IsPlainText reports whether s contains no tag-like sequence.
func IsPlainText(s string) bool {
	i := strings.IndexByte(s, '<')
	return i < 0 || !strings.Contains(s[i:], ">")
}
