// SPDX-License-Identifier: MIT

// Package classify turns raw stream names into typed classifications
// with extracted fields, using the pattern provider plus optional
// per-group custom extraction rules.
package classify

import "regexp"

// Category is the detected shape of a stream name.
type Category string

const (
	CategoryTeamVsTeam  Category = "team_vs_team"
	CategoryEventCard   Category = "event_card"
	CategoryPlaceholder Category = "placeholder"
	CategoryExcluded    Category = "excluded"
	CategoryUnknown     Category = "unknown"
)

// Eligible reports whether streams of this category may be matched
// against scheduled events.
func (c Category) Eligible() bool {
	return c == CategoryTeamVsTeam || c == CategoryEventCard
}

// Extracted field names. Custom group regexes use these as named
// capture groups.
const (
	FieldTeam1       = "team1"
	FieldTeam2       = "team2"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldLeague      = "league"
	FieldFighters    = "fighters"
	FieldEventName   = "event_name"
	FieldCardSegment = "card_segment"
)

// GroupRules carries a group's classification overrides. All fields are
// optional; a zero GroupRules applies only the built-in pipeline.
type GroupRules struct {
	// SkipBuiltinFilter disables the placeholder and combat/exclusion
	// stages. Custom extraction still applies.
	SkipBuiltinFilter bool
	// Exclude removes a stream outright regardless of category. Checked
	// before everything else.
	Exclude *regexp.Regexp
	// Include, when set, marks matching streams as explicitly wanted so
	// they survive the pipeline even without a recognised category.
	Include *regexp.Regexp
	// Extract maps field names to named-capture regexes which override
	// or augment built-in extraction. A field whose capture is empty is
	// simply absent, never an error.
	Extract map[string]*regexp.Regexp
	// Leagues pins the group to a fixed set of league codes, overriding
	// detection hints during matching.
	Leagues []string
}

// Classification is the typed result of one classify call. It is
// created per call and never persisted.
type Classification struct {
	RawName     string
	Category    Category
	Extracted   map[string]string
	LeagueHints []string
	SportHint   string

	separator    string
	separatorPos int
}

// Field returns an extracted field value, or "" when absent.
func (c *Classification) Field(name string) string {
	if c.Extracted == nil {
		return ""
	}
	return c.Extracted[name]
}
