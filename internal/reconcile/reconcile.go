// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/lifecycle"
	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/registry"
)

// Reconciler drives the desired channel set into the external
// registry. One instance per daemon; Reconcile is called once per
// pass, already serialized by the pass runner.
type Reconciler struct {
	api    registry.API
	cfg    NumberingConfig
	logger zerolog.Logger
}

func New(api registry.API, cfg NumberingConfig) *Reconciler {
	return &Reconciler{api: api, cfg: cfg, logger: log.WithComponent("reconcile")}
}

// Result carries the pass outcome: the report, the applied (or
// planned) actions and the registry refs newly created, keyed by
// managed channel ref so the caller can persist them.
type Result struct {
	Report      Report
	Actions     []Action
	CreatedRefs map[string]string
	Numbers     map[string]int
}

// Reconcile numbers the desired channels, diffs them against the
// registry and applies corrective actions when autoFix is set. A
// failed listing aborts with zero destructive actions: missing
// information is never treated as "delete everything". Individual
// action failures are recorded and deferred to the next pass, not
// retried within this one.
func (r *Reconciler) Reconcile(ctx context.Context, groups []Group, priorities []SortPriority, pins map[string]int, autoFix bool) (Result, error) {
	res := Result{CreatedRefs: make(map[string]string)}

	actual, err := r.api.List(ctx)
	if err != nil {
		r.logger.Error().
			Str("event", "reconcile.fetch_failed").
			Err(err).
			Msg("registry listing failed, no actions taken")
		res.Report = Report{FetchFailed: true, DryRun: !autoFix}
		return res, err
	}

	// Numbers held by channels we do not manage are occupied ground.
	occupied := make(map[int]bool)
	for _, ch := range actual {
		if !ch.Managed() && ch.Number > 0 {
			occupied[ch.Number] = true
		}
	}

	alloc := Allocate(groups, priorities, r.cfg, pins, occupied)
	res.Numbers = alloc.Numbers

	desired := make([]lifecycle.Channel, 0)
	for _, g := range groups {
		for _, ch := range g.Channels {
			if n, ok := alloc.Numbers[ch.Ref]; ok {
				ch.Number = n
			}
			desired = append(desired, ch)
		}
	}

	actions, rep := diff(desired, actual)
	rep.Unassigned = alloc.Unassigned
	rep.DryRun = !autoFix
	res.Actions = actions

	if !autoFix {
		res.Report = rep
		r.logReport(rep)
		return res, nil
	}

	for _, a := range actions {
		if err := r.apply(ctx, a, &res); err != nil {
			rep.Errors = append(rep.Errors, err.Error())
			r.logger.Warn().
				Str("event", "reconcile.action_failed").
				Str("action", string(a.Type)).
				Str("ref", a.Ref).
				Err(err).
				Msg("corrective action deferred to next pass")
		}
	}

	res.Report = rep
	r.logReport(rep)
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, a Action, res *Result) error {
	switch a.Type {
	case ActionCreate:
		created, err := r.api.Create(ctx, a.Spec)
		if err != nil {
			return err
		}
		res.CreatedRefs[a.ChannelRef] = created.Ref
		return nil
	case ActionUpdate:
		return r.api.Update(ctx, a.Ref, a.Spec)
	case ActionDelete:
		return r.api.Delete(ctx, a.Ref)
	default:
		return nil
	}
}

func (r *Reconciler) logReport(rep Report) {
	r.logger.Info().
		Str("event", "reconcile.report").
		Int("desired", rep.Desired).
		Int("pending", rep.Pending).
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("deleted", rep.Deleted).
		Int("orphaned", rep.Orphaned).
		Int("unchanged", rep.Unchanged).
		Bool("dry_run", rep.DryRun).
		Msg("reconciliation finished")
}
