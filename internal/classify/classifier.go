// SPDX-License-Identifier: MIT

package classify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/patterns"
)

// Classifier evaluates the detection pipeline for raw stream names.
// It holds only a reference to the shared pattern provider and is safe
// for concurrent use.
type Classifier struct {
	provider *patterns.Provider
	logger   zerolog.Logger
}

// New builds a Classifier over the given pattern provider.
func New(provider *patterns.Provider) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   log.WithComponent("classify"),
	}
}

// Classify runs the detection pipeline over rawName. The pipeline
// short-circuits on the first matching stage:
//
//  1. group exclude pattern  -> Excluded
//  2. placeholder patterns   -> Placeholder
//  3. combat keywords        -> EventCard (exclusions checked first)
//  4. separator token        -> TeamVsTeam
//  5. fallback               -> Unknown
//
// Malformed input never fails classification; the worst case is
// Unknown. Errors are only returned for pattern-source failures.
func (c *Classifier) Classify(ctx context.Context, rawName string, rules *GroupRules) (Classification, error) {
	out := Classification{
		RawName:   rawName,
		Category:  CategoryUnknown,
		Extracted: make(map[string]string),
	}
	if rules == nil {
		rules = &GroupRules{}
	}

	// Group exclude always wins, before any detection stage.
	if rules.Exclude != nil && rules.Exclude.MatchString(rawName) {
		out.Category = CategoryExcluded
		return out, nil
	}

	if !rules.SkipBuiltinFilter {
		placeholder, err := c.provider.IsPlaceholder(ctx, rawName)
		if err != nil {
			return out, err
		}
		if placeholder {
			out.Category = CategoryPlaceholder
			return out, nil
		}

		combat, err := c.provider.IsCombatEvent(ctx, rawName)
		if err != nil {
			return out, err
		}
		if combat {
			out.Category = CategoryEventCard
			if err := c.enrich(ctx, &out, rules); err != nil {
				return out, err
			}
			return out, nil
		}

		// A stream that matches only an exclusion pattern (weigh-in,
		// press conference) is non-event content.
		excluded, err := c.provider.IsExcluded(ctx, rawName)
		if err != nil {
			return out, err
		}
		if excluded && (rules.Include == nil || !rules.Include.MatchString(rawName)) {
			out.Category = CategoryExcluded
			return out, nil
		}
	}

	sep, pos, err := c.provider.FindSeparator(ctx, rawName)
	if err != nil {
		return out, err
	}
	if pos != -1 {
		out.Category = CategoryTeamVsTeam
		out.separator = sep
		out.separatorPos = pos
		if err := c.enrich(ctx, &out, rules); err != nil {
			return out, err
		}
		return out, nil
	}

	// Unknown, but enrichment hints still help downstream reporting.
	if err := c.enrich(ctx, &out, rules); err != nil {
		return out, err
	}
	return out, nil
}

// enrich fills league/sport hints and runs extraction for the detected
// category, custom rules last so they override built-ins.
func (c *Classifier) enrich(ctx context.Context, cl *Classification, rules *GroupRules) error {
	hints, err := c.provider.DetectLeague(ctx, cl.RawName)
	if err != nil {
		return err
	}
	if len(rules.Leagues) > 0 {
		hints = pinLeagues(hints, rules.Leagues)
	}
	cl.LeagueHints = hints
	if len(hints) == 1 {
		cl.Extracted[FieldLeague] = hints[0]
	}

	sport, err := c.provider.DetectSport(ctx, cl.RawName)
	if err != nil {
		return err
	}
	cl.SportHint = sport

	switch cl.Category {
	case CategoryTeamVsTeam:
		extractTeams(cl)
	case CategoryEventCard:
		segment, err := c.provider.DetectCardSegment(ctx, cl.RawName)
		if err != nil {
			return err
		}
		if segment != "" {
			cl.Extracted[FieldCardSegment] = segment
		}
		extractCard(ctx, c.provider, cl)
	}

	applyCustomExtraction(cl, rules)
	return nil
}

// pinLeagues restricts detected league hints to the group's configured
// codes. Hints inside the configured set narrow it; a detection with no
// overlap is discarded in favour of the configuration, since the group
// only ever carries its configured leagues.
func pinLeagues(detected, configured []string) []string {
	var kept []string
	for _, d := range detected {
		for _, cfg := range configured {
			if strings.EqualFold(d, cfg) {
				kept = append(kept, d)
				break
			}
		}
	}
	if len(kept) > 0 {
		return kept
	}
	return configured
}

// applyCustomExtraction runs the group's named-capture regexes. A field
// with no match is absent, not an error.
func applyCustomExtraction(cl *Classification, rules *GroupRules) {
	for field, re := range rules.Extract {
		if re == nil {
			continue
		}
		m := re.FindStringSubmatch(cl.RawName)
		if m == nil {
			continue
		}
		// Prefer the named group matching the field, else the first
		// non-empty capture.
		value := ""
		for i, name := range re.SubexpNames() {
			if i == 0 || i >= len(m) {
				continue
			}
			if name == field && m[i] != "" {
				value = m[i]
				break
			}
			if value == "" && m[i] != "" {
				value = m[i]
			}
		}
		if value != "" {
			cl.Extracted[field] = value
		}
	}
}
