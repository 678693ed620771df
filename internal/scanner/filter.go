package scanner

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// excludeMatcher prunes entries whose relative path or base name matches a glob.
type excludeMatcher struct {
	globs []string
}

func newExcludeMatcher(patterns []string) *excludeMatcher {
	m := &excludeMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m.globs = append(m.globs, strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./"))
	}
	return m
}

// match reports whether rel (slash separated, relative to the scan root) is excluded.
func (m *excludeMatcher) match(rel string) bool {
	if m == nil || len(m.globs) == 0 {
		return false
	}
	base := path.Base(rel)
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
