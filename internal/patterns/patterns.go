// SPDX-License-Identifier: MIT

// Package patterns supplies compiled detection pattern sets for stream
// classification. Patterns come from a fallback-ordered source chain
// (user-defined store first, built-in defaults second); callers never
// know which source served a given pattern.
package patterns

import (
	"context"
	"regexp"
)

// Kind identifies a pattern category.
type Kind string

const (
	KindEventKeywords Kind = "event_keywords" // combat/event-card keywords
	KindExclusions    Kind = "exclusions"     // disqualify otherwise-matching keywords
	KindLeagueHints   Kind = "league_hints"
	KindSportHints    Kind = "sport_hints"
	KindPlaceholders  Kind = "placeholders"
	KindSeparators    Kind = "separators"
	KindCardSegments  Kind = "card_segments"
)

// Kinds lists every pattern kind, in warm order.
func Kinds() []Kind {
	return []Kind{
		KindEventKeywords,
		KindExclusions,
		KindLeagueHints,
		KindSportHints,
		KindPlaceholders,
		KindSeparators,
		KindCardSegments,
	}
}

// Raw is an uncompiled pattern as served by a Source.
type Raw struct {
	Expr    string // keyword or regular expression
	IsRegex bool   // plain keywords are escaped before compiling
	// Target carries kind-specific payload: league code(s) for league
	// hints (comma-separated for umbrella brands), sport name for sport
	// hints, segment name for card segments.
	Target   string
	Priority int
}

// Source serves raw patterns for one kind. Implementations must be safe
// for concurrent use.
type Source interface {
	Load(ctx context.Context, kind Kind) ([]Raw, error)
}

// Matcher is one compiled pattern plus its payload.
type Matcher struct {
	re       *regexp.Regexp
	literal  string // set for separator "patterns", which are substrings
	Codes    []string
	Priority int
}

// MatchString reports whether the matcher hits anywhere in s.
func (m *Matcher) MatchString(s string) bool {
	return m.re.MatchString(s)
}

// Set is an immutable collection of compiled matchers for one kind.
// Replaced wholesale on invalidation, never mutated.
type Set struct {
	Kind     Kind
	Matchers []Matcher
}

// Len returns the number of compiled matchers in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Matchers)
}
