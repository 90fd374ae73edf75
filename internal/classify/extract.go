// SPDX-License-Identifier: MIT

package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/sportarr/sportarr/internal/patterns"
)

var (
	// "1:00 PM", "19:05", "9:30pm"
	timeRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s?(?:[AP]\.?M\.?)?\b`)
	// "2026-02-09", "2/9", "02/09/2026", "Feb 9"
	dateRe = regexp.MustCompile(`(?i)\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2})\b`)
	// League-ish prefix before a colon: "NFL:", "La Liga -"
	prefixRe = regexp.MustCompile(`^\s*([^:]{1,40}?)\s*:\s*`)
	// Trailing parenthetical: "(Main Card)", "(M Group B)"
	parenRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// extractTeams performs built-in extraction for TeamVsTeam names, based
// on the separator located during detection:
//
//	"NFL: Lions vs Packers 1:00 PM"
//	 -> league prefix "NFL", team1 "Lions", team2 "Packers", time "1:00 PM"
func extractTeams(cl *Classification) {
	raw := cl.RawName
	left := raw[:cl.separatorPos]
	right := raw[cl.separatorPos+len(cl.separator):]

	// Strip a "League:" style prefix from the left side. The league
	// code itself comes from pattern hints, the prefix is just noise
	// in front of the first team.
	if m := prefixRe.FindStringSubmatch(left); m != nil {
		left = left[len(m[0]):]
	}

	left = stripDateTime(left, cl)
	right = stripDateTime(right, cl)

	if team := cleanToken(left); team != "" {
		cl.Extracted[FieldTeam1] = team
	}
	if team := cleanToken(right); team != "" {
		cl.Extracted[FieldTeam2] = team
	}
}

// extractCard performs built-in extraction for combat cards:
//
//	"UFC 300: Pereira vs Hill (Main Card)"
//	 -> event_name "UFC 300", fighters "Pereira vs Hill"
func extractCard(ctx context.Context, p *patterns.Provider, cl *Classification) {
	raw := stripDateTime(cl.RawName, cl)

	name := raw
	if m := prefixRe.FindStringSubmatch(raw); m != nil {
		name = strings.TrimSpace(m[1])
		rest := parenRe.ReplaceAllString(raw[len(m[0]):], "")
		if sep, pos, err := p.FindSeparator(ctx, rest); err == nil && pos != -1 {
			fighters := cleanToken(rest[:pos]) + sep + cleanToken(rest[pos+len(sep):])
			cl.Extracted[FieldFighters] = strings.TrimSpace(fighters)
		}
	}
	if name = cleanToken(name); name != "" {
		cl.Extracted[FieldEventName] = name
	}
}

// stripDateTime removes time and date tokens from s, recording them as
// extracted fields on the way out.
func stripDateTime(s string, cl *Classification) string {
	if m := timeRe.FindString(s); m != "" {
		if cl.Extracted[FieldTime] == "" {
			cl.Extracted[FieldTime] = strings.TrimSpace(m)
		}
		s = strings.Replace(s, m, " ", 1)
	}
	if m := dateRe.FindString(s); m != "" {
		if cl.Extracted[FieldDate] == "" {
			cl.Extracted[FieldDate] = strings.TrimSpace(m)
		}
		s = strings.Replace(s, m, " ", 1)
	}
	return s
}

// cleanToken trims separators, collapses whitespace and drops stray
// bracket remnants left behind by date/time removal.
func cleanToken(s string) string {
	s = strings.Trim(s, " -|:()[]")
	return strings.Join(strings.Fields(s), " ")
}
