package ci

import (
	"regexp"
	"strings"
)

// Matches [skip test], [skip push], [skip push:dockerhub], etc.
var skipRe = regexp.MustCompile(`(?i)\[skip\s+([^\]]+)\]`)

// SkipSet holds the steps a commit message asked to skip.
type SkipSet map[string]struct{}

// ParseSkipDirectives extracts [skip <step>] directives from a commit
// message. Directives are case-insensitive; text outside brackets is
// ignored.
func ParseSkipDirectives(message string) SkipSet {
	set := SkipSet{}
	for _, m := range skipRe.FindAllStringSubmatch(message, -1) {
		set[strings.ToLower(strings.TrimSpace(m[1]))] = struct{}{}
	}
	return set
}

// Has reports whether step should be skipped. A parent directive covers
// its sub-targets: [skip push] also skips push:dockerhub, but
// [skip push:dockerhub] does not skip push.
func (s SkipSet) Has(step string) bool {
	step = strings.ToLower(step)
	if _, ok := s[step]; ok {
		return true
	}
	if parent, _, found := strings.Cut(step, ":"); found {
		if _, ok := s[parent]; ok {
			return true
		}
	}
	return false
}
