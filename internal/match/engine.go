// SPDX-License-Identifier: MIT

package match

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/classify"
	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/sched"
)

// Config tunes candidate filtering and confidence scoring.
type Config struct {
	// Lookahead/Lookbehind bound the candidate window around the
	// stream's reference time.
	Lookahead  time.Duration
	Lookbehind time.Duration
	// Threshold is the minimum confidence for a match.
	Threshold float64
	// NameWeight and TimeWeight combine the two score terms; they
	// should sum to 1.
	NameWeight float64
	TimeWeight float64
}

// DefaultConfig returns the tuning validated against the worked
// matching scenarios.
func DefaultConfig() Config {
	return Config{
		Lookahead:  72 * time.Hour,
		Lookbehind: 6 * time.Hour,
		Threshold:  0.60,
		NameWeight: defaultNameWeight,
		TimeWeight: defaultTimeWeight,
	}
}

// Engine scores classified streams against candidate events and owns
// the fingerprint cache. Evaluate is read-only and safe to call from
// many goroutines; Commit is the single-writer step that resolves
// fingerprint collisions and persists winners.
type Engine struct {
	cfg    Config
	store  RecordStore
	logger zerolog.Logger
}

// NewEngine builds an Engine over the given record store.
func NewEngine(cfg Config, store RecordStore) *Engine {
	if cfg.Lookahead == 0 {
		cfg.Lookahead = DefaultConfig().Lookahead
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.NameWeight == 0 && cfg.TimeWeight == 0 {
		cfg.NameWeight = defaultNameWeight
		cfg.TimeWeight = defaultTimeWeight
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		logger: log.WithComponent("match"),
	}
}

// Store exposes the engine's record store for reporting.
func (e *Engine) Store() RecordStore { return e.store }

// Evaluate matches one classified stream against the candidate events
// and returns a provisional Record. Only TeamVsTeam and EventCard
// categories are eligible; everything else reports unmatched. Evaluate
// performs no cache writes; pass results to Commit.
func (e *Engine) Evaluate(cl *classify.Classification, candidates []sched.Event, now time.Time) (*Record, bool) {
	if !cl.Category.Eligible() {
		return nil, false
	}

	ref := referenceTime(cl, now)
	window := e.cfg.Lookahead + e.cfg.Lookbehind

	var (
		best      *sched.Event
		bestScore float64
	)
	for i := range candidates {
		ev := &candidates[i]
		if !e.eligible(cl, ev, ref) {
			continue
		}

		name := e.scoreParticipants(cl, ev)
		prox := scoreTime(ref, ev.Start, window)
		score := e.cfg.NameWeight*name + e.cfg.TimeWeight*prox

		if score < e.cfg.Threshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && closerOrLowerID(ev, best, ref)) {
			best = ev
			bestScore = score
		}
	}

	if best == nil {
		return nil, false
	}

	teamA, teamB := e.participants(cl, best)
	rec := &Record{
		Fingerprint:   Fingerprint(teamA, teamB, best.Start),
		StreamRawName: cl.RawName,
		EventID:       best.ID,
		Sport:         best.Sport,
		League:        best.League,
		EventStart:    best.Start,
		Confidence:    bestScore,
		CreatedAt:     now,
		MatchedAt:     now,
	}
	return rec, true
}

// Commit resolves fingerprint collisions across one pass and persists
// the winners. For each fingerprint exactly one record survives: the
// highest confidence, ties broken by earliest event start then lowest
// event ID. When a prior record exists under the same fingerprint its
// identity (CreatedAt) is preserved so stable streams do not churn.
// Losers are returned so callers can report them as unmatched.
func (e *Engine) Commit(recs []*Record) (winners, losers []*Record, err error) {
	byFP := make(map[string]*Record)
	for _, r := range recs {
		cur, ok := byFP[r.Fingerprint]
		if !ok {
			byFP[r.Fingerprint] = r
			continue
		}
		if betterRecord(r, cur) {
			losers = append(losers, cur)
			byFP[r.Fingerprint] = r
		} else {
			losers = append(losers, r)
		}
	}

	winners = make([]*Record, 0, len(byFP))
	for fp, r := range byFP {
		prior, ok, gerr := e.store.Get(fp)
		if gerr != nil {
			return nil, nil, gerr
		}
		if ok {
			// Refresh, don't re-create: identity survives recomputation.
			r.CreatedAt = prior.CreatedAt
		}
		if perr := e.store.Put(r); perr != nil {
			return nil, nil, perr
		}
		winners = append(winners, r)
	}

	sort.Slice(winners, func(i, j int) bool {
		return winners[i].Fingerprint < winners[j].Fingerprint
	})

	if len(losers) > 0 {
		e.logger.Info().
			Str("event", "match.fingerprint_collisions").
			Int("losers", len(losers)).
			Msg("duplicate fingerprints resolved by confidence")
	}
	return winners, losers, nil
}

// Sweep marks records stale when their event reached a terminal status
// or when no current stream produced their fingerprint, and drops stale
// records once they age out of the lookbehind window so the store does
// not grow without bound. Returns the fingerprints swept this call.
func (e *Engine) Sweep(now time.Time, eventStatus map[string]sched.Status, liveFingerprints map[string]bool) ([]string, error) {
	all, err := e.store.All()
	if err != nil {
		return nil, err
	}

	var swept []string
	for _, rec := range all {
		if rec.Stale {
			if now.Sub(rec.MatchedAt) > e.cfg.Lookbehind {
				if err := e.store.Delete(rec.Fingerprint); err != nil {
					return swept, err
				}
			}
			continue
		}
		stale := !liveFingerprints[rec.Fingerprint]
		if st, ok := eventStatus[rec.EventID]; ok && st.Terminal() {
			stale = true
		}
		if !stale {
			continue
		}
		rec.Stale = true
		if err := e.store.Put(rec); err != nil {
			return swept, err
		}
		swept = append(swept, rec.Fingerprint)
	}
	return swept, nil
}

// eligible applies candidate filtering: league-hint consistency plus
// the time window around the stream's reference time.
func (e *Engine) eligible(cl *classify.Classification, ev *sched.Event, ref time.Time) bool {
	if len(cl.LeagueHints) > 0 {
		// An umbrella hint is a set of possible leagues, not one value.
		found := false
		for _, code := range cl.LeagueHints {
			if strings.EqualFold(code, ev.League) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if ev.Start.Before(ref.Add(-e.cfg.Lookbehind)) || ev.Start.After(ref.Add(e.cfg.Lookahead)) {
		return false
	}
	return true
}

func (e *Engine) scoreParticipants(cl *classify.Classification, ev *sched.Event) float64 {
	switch cl.Category {
	case classify.CategoryTeamVsTeam:
		return scoreNames(cl.Field(classify.FieldTeam1), cl.Field(classify.FieldTeam2), ev)
	case classify.CategoryEventCard:
		if fighters := cl.Field(classify.FieldFighters); fighters != "" {
			if a, b, ok := splitFighters(fighters); ok {
				return scoreNames(a, b, ev)
			}
		}
		// Cards without fighter fields fall back to whole-name
		// similarity against the event title.
		name := cl.Field(classify.FieldEventName)
		if name == "" {
			name = cl.RawName
		}
		return pairScore(Normalize(name), Normalize(ev.Name))
	default:
		return 0
	}
}

// participants picks the fingerprint inputs: extracted stream fields
// when both sides are present, otherwise the event's participants.
func (e *Engine) participants(cl *classify.Classification, ev *sched.Event) (string, string) {
	t1, t2 := cl.Field(classify.FieldTeam1), cl.Field(classify.FieldTeam2)
	if t1 != "" && t2 != "" {
		return t1, t2
	}
	if fighters := cl.Field(classify.FieldFighters); fighters != "" {
		if a, b, ok := splitFighters(fighters); ok {
			return a, b
		}
	}
	return ev.Home.Name, ev.Away.Name
}

func splitFighters(fighters string) (string, string, bool) {
	for _, sep := range []string{" vs. ", " vs ", " v ", " x "} {
		if i := strings.Index(strings.ToLower(fighters), sep); i != -1 {
			return strings.TrimSpace(fighters[:i]), strings.TrimSpace(fighters[i+len(sep):]), true
		}
	}
	return "", "", false
}

// referenceTime anchors the candidate window: the extracted date (and
// time, when present) wins over the wall clock so dated streams match
// their own day, not today's.
func referenceTime(cl *classify.Classification, now time.Time) time.Time {
	dateStr := cl.Field(classify.FieldDate)
	if dateStr == "" {
		return now
	}
	d, ok := parseLooseDate(dateStr, now)
	if !ok {
		return now
	}
	if t, ok := parseLooseClock(cl.Field(classify.FieldTime)); ok {
		return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, now.Location())
}

func parseLooseDate(s string, now time.Time) (time.Time, bool) {
	layouts := []string{"2006-01-02", "1/2/2006", "1/2/06", "Jan 2", "January 2", "1/2"}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			if d.Year() == 0 {
				d = d.AddDate(now.Year(), 0, 0)
			}
			return d, true
		}
	}
	return time.Time{}, false
}

func parseLooseClock(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"3:04 PM", "3:04PM", "15:04"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// closerOrLowerID breaks confidence ties deterministically: closest
// start time first, then lowest event ID.
func closerOrLowerID(candidate, incumbent *sched.Event, ref time.Time) bool {
	dc := absDuration(candidate.Start.Sub(ref))
	di := absDuration(incumbent.Start.Sub(ref))
	if dc != di {
		return dc < di
	}
	return lowerEventID(candidate.ID, incumbent.ID)
}

func lowerEventID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func betterRecord(a, b *Record) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if !a.EventStart.Equal(b.EventStart) {
		return a.EventStart.Before(b.EventStart)
	}
	return lowerEventID(a.EventID, b.EventID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
