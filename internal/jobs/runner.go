// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sportarr/sportarr/internal/classify"
	"github.com/sportarr/sportarr/internal/config"
	"github.com/sportarr/sportarr/internal/lifecycle"
	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/metrics"
	"github.com/sportarr/sportarr/internal/reconcile"
	"github.com/sportarr/sportarr/internal/sched"
	"github.com/sportarr/sportarr/internal/streams"
)

// matchConcurrency bounds the classify/match fan-out inside one pass.
const matchConcurrency = 8

// EventsFetcher is the schedule-provider surface the runner needs.
type EventsFetcher interface {
	Events(ctx context.Context, sport, league string, from, to time.Time) ([]sched.Event, error)
}

// ChannelStore is the persistence surface the runner needs. Implemented
// by store.Store.
type ChannelStore interface {
	Channels(ctx context.Context, groupID string) ([]lifecycle.Channel, error)
	SaveChannels(ctx context.Context, groupID string, chans []lifecycle.Channel) error
	SortPriorities(ctx context.Context) ([]reconcile.SortPriority, error)
	Pins(ctx context.Context) (map[string]int, error)
}

// Runner executes generation passes.
type Runner struct {
	app        config.App
	classifier *classify.Classifier
	engine     *match.Engine
	fetcher    EventsFetcher
	source     streams.Source
	store      ChannelStore
	reconciler *reconcile.Reconciler
	groups     func() config.Groups

	running atomic.Bool
	mu      sync.Mutex
	last    *Status
}

func NewRunner(
	app config.App,
	classifier *classify.Classifier,
	engine *match.Engine,
	fetcher EventsFetcher,
	source streams.Source,
	st ChannelStore,
	reconciler *reconcile.Reconciler,
	groups func() config.Groups,
) *Runner {
	return &Runner{
		app:        app,
		classifier: classifier,
		engine:     engine,
		fetcher:    fetcher,
		source:     source,
		store:      st,
		reconciler: reconciler,
		groups:     groups,
	}
}

// LastStatus returns a snapshot of the most recent pass, or nil before
// the first one.
func (r *Runner) LastStatus() *Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// Running reports whether a pass is currently in flight.
func (r *Runner) Running() bool { return r.running.Load() }

// Run executes one full generation pass. A second call while one is in
// flight returns ErrPassInFlight immediately.
func (r *Runner) Run(ctx context.Context) (*Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.RecordPass("rejected", 0)
		return nil, ErrPassInFlight
	}
	defer r.running.Store(false)

	passID := uuid.NewString()
	ctx = log.ContextWithPassID(ctx, passID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	now := time.Now().UTC()
	status := &Status{PassID: passID, StartedAt: now}
	logger.Info().Str("event", "pass.start").Msg("starting generation pass")

	err := r.run(ctx, now, status)
	status.FinishedAt = time.Now().UTC()
	took := status.FinishedAt.Sub(status.StartedAt)

	if err != nil {
		status.Error = err.Error()
		metrics.RecordPass("failure", took)
		logger.Error().Str("event", "pass.failed").Err(err).Msg("generation pass failed")
	} else {
		metrics.RecordPass("success", took)
		logger.Info().
			Str("event", "pass.done").
			Dur("took", took).
			Int("groups", len(status.Groups)).
			Msg("generation pass finished")
	}

	r.mu.Lock()
	r.last = status
	r.mu.Unlock()
	return status, err
}

// groupWork is the per-group intermediate state of one pass.
type groupWork struct {
	cfg        config.Group
	streams    []streams.Stream
	candidates []sched.Event
	records    []*match.Record
	stats      GroupStats
}

func (r *Runner) run(ctx context.Context, now time.Time, status *Status) error {
	groupsCfg := r.groups()

	eventsByLeague, eventsByID := r.fetchSchedules(ctx, groupsCfg, now)

	works := make([]*groupWork, 0, len(groupsCfg.Groups))
	fingerGroup := make(map[string]*groupWork)
	var allRecords []*match.Record
	categoryTotals := make(map[string]int)

	for _, grp := range groupsCfg.Groups {
		w := &groupWork{
			cfg:   grp,
			stats: GroupStats{GroupID: grp.ID, Categories: make(map[string]int), Channels: make(map[string]int)},
		}
		works = append(works, w)

		sts, err := r.source.Streams(ctx, grp.ID)
		if err != nil {
			return err
		}
		w.streams = sts
		w.stats.Streams = len(sts)

		for _, league := range grp.Leagues {
			w.candidates = append(w.candidates, eventsByLeague[grp.Sport+"/"+league]...)
		}

		if err := r.classifyAndMatch(ctx, w, now); err != nil {
			return err
		}
		for _, rec := range w.records {
			fingerGroup[rec.Fingerprint] = w
			allRecords = append(allRecords, rec)
		}
		for cat, n := range w.stats.Categories {
			categoryTotals[cat] += n
		}
	}
	for cat, n := range categoryTotals {
		metrics.SetClassified(cat, n)
	}

	winners, losers, err := r.engine.Commit(allRecords)
	if err != nil {
		return err
	}
	for _, rec := range winners {
		metrics.ObserveConfidence(rec.Confidence)
	}
	for _, rec := range losers {
		if w := fingerGroup[rec.Fingerprint]; w != nil {
			w.stats.Unmatched++
			w.stats.Matched--
		}
	}

	liveFPs := make(map[string]bool, len(winners))
	winnersByFP := make(map[string]*match.Record, len(winners))
	for _, rec := range winners {
		liveFPs[rec.Fingerprint] = true
		winnersByFP[rec.Fingerprint] = rec
	}
	eventStatus := make(map[string]sched.Status, len(eventsByID))
	for id, ev := range eventsByID {
		eventStatus[id] = ev.Status
	}
	if _, err := r.engine.Sweep(now, eventStatus, liveFPs); err != nil {
		return err
	}

	unmatchedTotal := 0
	stateTotals := make(map[string]int)
	recGroups := make([]reconcile.Group, 0, len(works))
	desiredByGroup := make(map[string][]lifecycle.Channel, len(works))
	for _, w := range works {
		unmatchedTotal += w.stats.Unmatched

		prior, err := r.store.Channels(ctx, w.cfg.ID)
		if err != nil {
			return err
		}
		var live []*match.Record
		for _, rec := range w.records {
			if win, ok := winnersByFP[rec.Fingerprint]; ok && win.StreamRef == rec.StreamRef {
				live = append(live, win)
			}
		}

		mgr := lifecycle.NewManager(w.cfg.Timing())
		desired := mgr.Advance(w.cfg.ID, prior, live, eventsByID, now)
		desiredByGroup[w.cfg.ID] = desired

		for _, ch := range desired {
			w.stats.Channels[string(ch.State)]++
			stateTotals[string(ch.State)]++
		}

		recGroups = append(recGroups, reconcile.Group{
			ID:           w.cfg.ID,
			Start:        w.cfg.NumberStart,
			Channels:     desired,
			TotalStreams: len(w.streams),
		})
	}
	metrics.SetUnmatched(unmatchedTotal)
	for state, n := range stateTotals {
		metrics.SetChannels(state, n)
	}

	priorities, err := r.store.SortPriorities(ctx)
	if err != nil {
		return err
	}
	pins, err := r.store.Pins(ctx)
	if err != nil {
		return err
	}

	res, recErr := r.reconciler.Reconcile(ctx, recGroups, priorities, pins, r.app.AutoFix)
	status.Reconcile = res.Report
	if recErr != nil {
		metrics.RecordRegistryFetchError()
		// Channels and match records stay untouched; the next pass
		// retries the fetch.
		for _, w := range works {
			status.Groups = append(status.Groups, w.stats)
		}
		return recErr
	}
	for _, a := range res.Actions {
		outcome := "applied"
		if res.Report.DryRun {
			outcome = "planned"
		}
		metrics.RecordAction(string(a.Type), outcome)
	}

	for _, w := range works {
		desired := desiredByGroup[w.cfg.ID]
		for i := range desired {
			if ref, ok := res.CreatedRefs[desired[i].Ref]; ok {
				desired[i].RegistryRef = ref
			}
			if n, ok := res.Numbers[desired[i].Ref]; ok {
				desired[i].Number = n
			}
		}
		if err := r.store.SaveChannels(ctx, w.cfg.ID, desired); err != nil {
			return err
		}
		status.Groups = append(status.Groups, w.stats)
	}

	if r.app.ExportDir != "" {
		if err := r.export(ctx, winners, eventsByID, status); err != nil {
			return err
		}
	}
	return nil
}

// classifyAndMatch runs the embarrassingly parallel part of the pass:
// each stream is classified and evaluated independently against the
// group's candidates. Results land in per-index slots, so no locking.
func (r *Runner) classifyAndMatch(ctx context.Context, w *groupWork, now time.Time) error {
	rules, err := w.cfg.Rules()
	if err != nil {
		return err
	}

	type slot struct {
		category classify.Category
		record   *match.Record
	}
	slots := make([]slot, len(w.streams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matchConcurrency)
	for i, st := range w.streams {
		i, st := i, st
		g.Go(func() error {
			cl, err := r.classifier.Classify(gctx, st.RawName, &rules)
			if err != nil {
				return err
			}
			slots[i].category = cl.Category
			if rec, ok := r.engine.Evaluate(&cl, w.candidates, now); ok {
				rec.StreamRef = st.Ref
				slots[i].record = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, s := range slots {
		w.stats.Categories[string(s.category)]++
		if s.record != nil {
			w.records = append(w.records, s.record)
			w.stats.Matched++
		} else if s.category.Eligible() {
			w.stats.Unmatched++
		}
	}
	return nil
}

// fetchSchedules pulls every (sport, league) pair referenced by the
// groups once. A failed fetch is logged and counted; the league simply
// contributes no candidates this pass.
func (r *Runner) fetchSchedules(ctx context.Context, groupsCfg config.Groups, now time.Time) (map[string][]sched.Event, map[string]sched.Event) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	cfg := r.app.MatchConfig()
	from := now.Add(-cfg.Lookbehind)
	to := now.Add(cfg.Lookahead)

	byLeague := make(map[string][]sched.Event)
	byID := make(map[string]sched.Event)

	var keys []string
	seen := make(map[string]bool)
	for _, grp := range groupsCfg.Groups {
		for _, league := range grp.Leagues {
			key := grp.Sport + "/" + league
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		sport, league, _ := strings.Cut(key, "/")
		events, err := r.fetcher.Events(ctx, sport, league, from, to)
		if err != nil {
			metrics.RecordScheduleFetchError(league)
			logger.Warn().
				Str("event", "pass.schedule_fetch_failed").
				Str("league", league).
				Err(err).
				Msg("league contributes no candidates this pass")
			continue
		}
		byLeague[key] = events
		for _, ev := range events {
			byID[ev.ID] = ev
		}
	}
	return byLeague, byID
}
