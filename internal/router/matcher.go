package router

import (
	"net/url"
	"strings"
)

// PrefixMatcher matches path prefixes on segment boundaries.
type PrefixMatcher struct {
	prefix string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// Match checks if the path starts with the prefix at a segment boundary.
func (m *PrefixMatcher) Match(path string) bool {
	return hasSegmentPrefix(path, m.prefix)
}

// Strip removes the prefix from path. The result always starts with "/".
func (m *PrefixMatcher) Strip(path string) string {
	return stripSegmentPrefix(path, m.prefix)
}

// Pattern returns the pattern.
func (m *PrefixMatcher) Pattern() string {
	return m.prefix
}

func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

func stripSegmentPrefix(path, prefix string) string {
	if prefix == "/" {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

// rewriteURL strips prefix from both the decoded and the raw path of u.
func rewriteURL(u *url.URL, prefix string) {
	u.Path = stripSegmentPrefix(u.Path, prefix)
	if u.RawPath == "" {
		return
	}
	if hasSegmentPrefix(u.RawPath, prefix) {
		u.RawPath = stripSegmentPrefix(u.RawPath, prefix)
		return
	}
	// Let url.URL derive the escaped form again.
	u.RawPath = ""
}
