// SPDX-License-Identifier: MIT

package match

import (
	"regexp"
	"strings"
	"time"

	"github.com/sportarr/sportarr/internal/sched"
)

// Trailing parenthetical in a team field: "ITA (M Group B)".
var sideParenRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// Weighting between name similarity and start-time proximity. The
// split favours names heavily: a good name match on the wrong day is
// filtered by the candidate window before scoring, so time proximity
// only breaks near-ties between doubleheaders and re-airs.
const (
	defaultNameWeight = 0.85
	defaultTimeWeight = 0.15

	// minAbbrevLen guards exact-abbreviation matching. Two-letter codes
	// (SF, NE, KC) collide with ordinary words too often to trust.
	minAbbrevLen = 3
)

// scoreNames computes order-insensitive participant similarity in
// [0,1] between the stream's extracted team fields and an event's two
// participants. Inputs are raw (un-normalized) strings.
func scoreNames(team1, team2 string, ev *sched.Event) float64 {
	if abbrevExact(team1, team2, ev) {
		return 1.0
	}

	n1, n2 := Normalize(team1), Normalize(team2)
	home, away := Normalize(ev.Home.Name), Normalize(ev.Away.Name)
	homeShort, awayShort := Normalize(ev.Home.ShortName), Normalize(ev.Away.ShortName)

	switch {
	case n1 != "" && n2 != "":
		straight := (bestPair(n1, home, homeShort) + bestPair(n2, away, awayShort)) / 2
		crossed := (bestPair(n1, away, awayShort) + bestPair(n2, home, homeShort)) / 2
		if crossed > straight {
			return crossed
		}
		return straight
	case n1 != "":
		return max2(bestPair(n1, home, homeShort), bestPair(n1, away, awayShort))
	case n2 != "":
		return max2(bestPair(n2, home, homeShort), bestPair(n2, away, awayShort))
	default:
		return 0
	}
}

// abbrevExact reports an exact-abbreviation token match: every provided
// stream side must equal one of the event's team abbreviations
// (case-insensitive, length >= 3). Order-insensitive; a partial hit
// when both sides are given does not count.
func abbrevExact(team1, team2 string, ev *sched.Event) bool {
	homeAb := strings.ToLower(strings.TrimSpace(ev.Home.Abbreviation))
	awayAb := strings.ToLower(strings.TrimSpace(ev.Away.Abbreviation))
	if len(homeAb) < minAbbrevLen || len(awayAb) < minAbbrevLen {
		return false
	}

	tok1 := abbrevToken(team1)
	tok2 := abbrevToken(team2)
	if tok1 == "" && tok2 == "" {
		return false
	}

	matches := func(tok string) bool { return tok == homeAb || tok == awayAb }

	if tok1 != "" && tok2 != "" {
		return (matches(tok1) && matches(tok2)) && tok1 != tok2
	}
	if tok1 != "" {
		return matches(tok1)
	}
	return matches(tok2)
}

// abbrevToken extracts a candidate abbreviation from a stream team
// field: the leading token, stripped of parentheticals, at least
// minAbbrevLen characters. Full names ("Boston Celtics") yield tokens
// that simply fail the equality check.
func abbrevToken(side string) string {
	side = sideParenRe.ReplaceAllString(side, "")
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(side)))
	if len(fields) != 1 {
		return ""
	}
	if len(fields[0]) < minAbbrevLen {
		return ""
	}
	return fields[0]
}

// bestPair scores one stream side against one event participant,
// trying both the full and short names.
func bestPair(streamSide, full, short string) float64 {
	s := pairScore(streamSide, full)
	if short != "" && short != full {
		s = max2(s, pairScore(streamSide, short))
	}
	return s
}

// pairScore combines token containment with edit-distance similarity.
// Containment handles "Lions" vs "Detroit Lions"; the Levenshtein
// ratio handles misspellings and truncations.
func pairScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	ta, tb := tokens(a), tokens(b)
	common := 0
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	for _, t := range ta {
		if set[t] {
			common++
		}
	}
	containment := 0.0
	if min2(len(ta), len(tb)) > 0 {
		containment = float64(common) / float64(min2(len(ta), len(tb)))
	}

	ratio := levenshteinRatio(a, b)
	return max2(containment, ratio)
}

// levenshteinRatio converts edit distance to a [0,1] similarity.
func levenshteinRatio(a, b string) float64 {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lenA, lenB := len(ra), len(rb)

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	dp := make([][]int, lenA+1)
	for i := range dp {
		dp[i] = make([]int, lenB+1)
		dp[i][0] = i
	}
	for j := 0; j <= lenB; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= lenA; i++ {
		for j := 1; j <= lenB; j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			dp[i][j] = min3(
				dp[i-1][j]+1,      // deletion
				dp[i][j-1]+1,      // insertion
				dp[i-1][j-1]+cost, // substitution
			)
		}
	}
	return dp[lenA][lenB]
}

// scoreTime maps start-time distance from the reference instant into
// [0,1], linearly decaying to zero at the edge of the window.
func scoreTime(ref, start time.Time, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	delta := start.Sub(ref)
	if delta < 0 {
		delta = -delta
	}
	if delta >= window {
		return 0
	}
	return 1.0 - float64(delta)/float64(window)
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func min3(x, y, z int) int {
	return min2(min2(x, y), z)
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
