// SPDX-License-Identifier: MIT

package patterns

import "context"

// builtinSource serves the compiled-in default pattern set. It is the
// terminal element of every source chain.
type builtinSource struct{}

// NewBuiltinSource returns the built-in default pattern source.
func NewBuiltinSource() Source {
	return builtinSource{}
}

func (builtinSource) Load(_ context.Context, kind Kind) ([]Raw, error) {
	return defaults[kind], nil
}

// Keyword defaults are lowercase; matching is case-insensitive and
// word-boundary anchored so a short league code never matches inside an
// unrelated word ("wbo" must not hit "Cowboys").
var defaults = map[Kind][]Raw{
	KindEventKeywords: {
		{Expr: "ufc"}, {Expr: "bellator"}, {Expr: "pfl"}, {Expr: "one championship"},
		{Expr: "boxing"}, {Expr: "mma"}, {Expr: "wbo"}, {Expr: "wba"}, {Expr: "wbc"},
		{Expr: "ibf"}, {Expr: "fight night"}, {Expr: "main card"}, {Expr: "prelims"},
		{Expr: "bare knuckle"}, {Expr: "glory kickboxing"},
	},
	KindExclusions: {
		{Expr: "weigh[- ]?in", IsRegex: true},
		{Expr: "press conference"},
		{Expr: "post[- ]?fight show", IsRegex: true},
		{Expr: "countdown"},
		{Expr: "embedded"},
		{Expr: "face[- ]?offs?", IsRegex: true},
	},
	KindLeagueHints: {
		{Expr: `\bnfl\b`, IsRegex: true, Target: "nfl"},
		{Expr: `\bnba\b`, IsRegex: true, Target: "nba"},
		{Expr: `\bwnba\b`, IsRegex: true, Target: "wnba"},
		{Expr: `\bnhl\b`, IsRegex: true, Target: "nhl"},
		{Expr: `\bmlb\b`, IsRegex: true, Target: "mlb"},
		{Expr: `\bmls\b`, IsRegex: true, Target: "mls"},
		{Expr: `premier league|\bepl\b`, IsRegex: true, Target: "eng.1"},
		{Expr: `la liga`, IsRegex: true, Target: "esp.1"},
		{Expr: `bundesliga`, IsRegex: true, Target: "ger.1"},
		{Expr: `serie a`, IsRegex: true, Target: "ita.1"},
		{Expr: `ligue 1`, IsRegex: true, Target: "fra.1"},
		// Umbrella brands resolve to an ordered list of league codes.
		{Expr: `champions league|\buefa\b`, IsRegex: true, Target: "uefa.champions,uefa.europa,uefa.europa.conf"},
		{Expr: `\bconcacaf\b`, IsRegex: true, Target: "concacaf.champions,concacaf.league"},
		{Expr: `college football|\bncaaf?\b|\bcfb\b`, IsRegex: true, Target: "college-football"},
		{Expr: `college basketball|\bncaab\b|\bcbb\b`, IsRegex: true, Target: "mens-college-basketball,womens-college-basketball"},
	},
	KindSportHints: {
		{Expr: `\bhockey\b`, IsRegex: true, Target: "hockey"},
		{Expr: `\bfootball\b`, IsRegex: true, Target: "football"},
		{Expr: `\bbasketball\b`, IsRegex: true, Target: "basketball"},
		{Expr: `\bbaseball\b`, IsRegex: true, Target: "baseball"},
		{Expr: `\bsoccer\b|\bfutbol\b`, IsRegex: true, Target: "soccer"},
		{Expr: `\blacrosse\b`, IsRegex: true, Target: "lacrosse"},
		{Expr: `\bvolleyball\b`, IsRegex: true, Target: "volleyball"},
	},
	KindPlaceholders: {
		{Expr: `no (game|event)s? (scheduled|today|info)`, IsRegex: true},
		{Expr: `channel slate`},
		{Expr: `off[- ]?air`, IsRegex: true},
		{Expr: `coming soon`},
		{Expr: `placeholder`},
		{Expr: `24[/x]7`, IsRegex: true},
		{Expr: `next (game|event|match)`, IsRegex: true},
	},
	KindSeparators: {
		{Expr: " vs. "}, {Expr: " vs "}, {Expr: " v. "}, {Expr: " v "},
		{Expr: " @ "}, {Expr: " at "}, {Expr: " x "}, {Expr: " - "},
	},
	KindCardSegments: {
		{Expr: `early prelims`, IsRegex: true, Target: "early_prelims"},
		{Expr: `prelims`, IsRegex: true, Target: "prelims"},
		{Expr: `main card`, IsRegex: true, Target: "main_card"},
	},
}
