// SPDX-License-Identifier: MIT

package patterns

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/log"
)

// Provider compiles and caches pattern sets from an ordered source
// chain. Earlier sources take precedence over later ones; a pattern in
// an early source shadows the same expression further down the chain.
//
// Compiled sets are cached until Invalidate is called and are safe for
// concurrent read access during a pass.
type Provider struct {
	sources []Source
	logger  zerolog.Logger

	mu   sync.RWMutex
	sets map[Kind]*Set
}

// NewProvider builds a Provider over the given source chain. The
// built-in defaults are always appended as the terminal fallback.
func NewProvider(sources ...Source) *Provider {
	chain := make([]Source, 0, len(sources)+1)
	chain = append(chain, sources...)
	chain = append(chain, NewBuiltinSource())
	return &Provider{
		sources: chain,
		logger:  log.WithComponent("patterns"),
		sets:    make(map[Kind]*Set),
	}
}

// Patterns returns the compiled set for kind, loading and compiling it
// on first access.
func (p *Provider) Patterns(ctx context.Context, kind Kind) (*Set, error) {
	p.mu.RLock()
	if s, ok := p.sets[kind]; ok {
		p.mu.RUnlock()
		return s, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sets[kind]; ok {
		return s, nil
	}

	s, err := p.compile(ctx, kind)
	if err != nil {
		return nil, err
	}
	p.sets[kind] = s
	return s, nil
}

// Invalidate drops all cached sets; the next access recompiles from the
// source chain.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.sets = make(map[Kind]*Set)
	p.mu.Unlock()
	p.logger.Info().Str("event", "patterns.invalidated").Msg("pattern cache invalidated")
}

// Warm pre-compiles every kind and returns pattern counts per kind.
func (p *Provider) Warm(ctx context.Context) (map[Kind]int, error) {
	counts := make(map[Kind]int, len(Kinds()))
	for _, kind := range Kinds() {
		s, err := p.Patterns(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("warm %s: %w", kind, err)
		}
		counts[kind] = s.Len()
	}
	return counts, nil
}

func (p *Provider) compile(ctx context.Context, kind Kind) (*Set, error) {
	var raws []Raw
	seen := make(map[string]bool)

	for i, src := range p.sources {
		loaded, err := src.Load(ctx, kind)
		if err != nil {
			// A failing source falls through to the next element of the
			// chain; only the terminal builtin source is load-fatal.
			if i == len(p.sources)-1 {
				return nil, fmt.Errorf("load %s: %w", kind, err)
			}
			p.logger.Warn().
				Err(err).
				Str("event", "patterns.source_failed").
				Str("kind", string(kind)).
				Msg("pattern source unavailable, falling back")
			continue
		}
		// Within one source, higher priority first.
		sort.SliceStable(loaded, func(a, b int) bool {
			return loaded[a].Priority > loaded[b].Priority
		})
		for _, r := range loaded {
			key := strings.ToLower(r.Expr)
			if seen[key] {
				continue
			}
			seen[key] = true
			raws = append(raws, r)
		}
	}

	matchers := make([]Matcher, 0, len(raws))
	for _, r := range raws {
		m, err := compileRaw(kind, r)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("event", "patterns.invalid").
				Str("kind", string(kind)).
				Str("expr", r.Expr).
				Msg("skipping invalid pattern")
			continue
		}
		matchers = append(matchers, m)
	}

	p.logger.Debug().
		Str("event", "patterns.compiled").
		Str("kind", string(kind)).
		Int("count", len(matchers)).
		Msg("pattern set compiled")

	return &Set{Kind: kind, Matchers: matchers}, nil
}

func compileRaw(kind Kind, r Raw) (Matcher, error) {
	var expr string
	switch {
	case kind == KindSeparators:
		// Separators are plain substrings; keep the literal for
		// position lookups and compile an escaped form alongside.
		expr = regexp.QuoteMeta(r.Expr)
	case r.IsRegex:
		expr = r.Expr
	case kind == KindEventKeywords:
		// Word-boundary anchor so 'wbo' never matches inside 'Cowboys'.
		expr = `\b` + regexp.QuoteMeta(r.Expr) + `\b`
	default:
		expr = regexp.QuoteMeta(r.Expr)
	}

	re, err := regexp.Compile(`(?i)` + expr)
	if err != nil {
		return Matcher{}, err
	}

	m := Matcher{re: re, Priority: r.Priority}
	if kind == KindSeparators {
		m.literal = r.Expr
	}
	if r.Target != "" {
		for _, c := range strings.Split(r.Target, ",") {
			if c = strings.TrimSpace(c); c != "" {
				m.Codes = append(m.Codes, c)
			}
		}
	}
	return m, nil
}

// IsCombatEvent reports whether text carries a combat-sport keyword.
// Exclusion patterns are checked first: an exclusion hit disqualifies an
// otherwise-matching keyword.
func (p *Provider) IsCombatEvent(ctx context.Context, text string) (bool, error) {
	excluded, err := p.matchAny(ctx, KindExclusions, text)
	if err != nil {
		return false, err
	}
	if excluded {
		return false, nil
	}
	return p.matchAny(ctx, KindEventKeywords, text)
}

// IsPlaceholder reports whether text looks like a "no event info" slate.
func (p *Provider) IsPlaceholder(ctx context.Context, text string) (bool, error) {
	return p.matchAny(ctx, KindPlaceholders, text)
}

// IsExcluded reports whether text matches a combat-sport exclusion
// pattern (weigh-ins, press conferences and similar non-event content).
func (p *Provider) IsExcluded(ctx context.Context, text string) (bool, error) {
	return p.matchAny(ctx, KindExclusions, text)
}

// DetectLeague returns the league code(s) hinted at by text. Umbrella
// brands yield an ordered list of candidate codes; callers must treat
// the result as a set of possible leagues.
func (p *Provider) DetectLeague(ctx context.Context, text string) ([]string, error) {
	s, err := p.Patterns(ctx, KindLeagueHints)
	if err != nil {
		return nil, err
	}
	for i := range s.Matchers {
		if s.Matchers[i].MatchString(text) {
			return s.Matchers[i].Codes, nil
		}
	}
	return nil, nil
}

// DetectSport returns the sport hinted at by text, or "".
func (p *Provider) DetectSport(ctx context.Context, text string) (string, error) {
	s, err := p.Patterns(ctx, KindSportHints)
	if err != nil {
		return "", err
	}
	for i := range s.Matchers {
		if s.Matchers[i].MatchString(text) && len(s.Matchers[i].Codes) > 0 {
			return s.Matchers[i].Codes[0], nil
		}
	}
	return "", nil
}

// DetectCardSegment returns the card segment named in a combat stream
// ("early_prelims", "prelims", "main_card"), or "".
func (p *Provider) DetectCardSegment(ctx context.Context, text string) (string, error) {
	s, err := p.Patterns(ctx, KindCardSegments)
	if err != nil {
		return "", err
	}
	for i := range s.Matchers {
		if s.Matchers[i].MatchString(text) && len(s.Matchers[i].Codes) > 0 {
			return s.Matchers[i].Codes[0], nil
		}
	}
	return "", nil
}

// FindSeparator locates the first recognised team separator in text and
// returns it with its byte position.
func (p *Provider) FindSeparator(ctx context.Context, text string) (string, int, error) {
	s, err := p.Patterns(ctx, KindSeparators)
	if err != nil {
		return "", -1, err
	}
	lower := strings.ToLower(text)
	for i := range s.Matchers {
		sep := s.Matchers[i].literal
		if pos := strings.Index(lower, strings.ToLower(sep)); pos != -1 {
			return sep, pos, nil
		}
	}
	return "", -1, nil
}

func (p *Provider) matchAny(ctx context.Context, kind Kind, text string) (bool, error) {
	s, err := p.Patterns(ctx, kind)
	if err != nil {
		return false, err
	}
	for i := range s.Matchers {
		if s.Matchers[i].MatchString(text) {
			return true, nil
		}
	}
	return false, nil
}
