// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportarr/sportarr/internal/lifecycle"
	"github.com/sportarr/sportarr/internal/registry"
)

// fakeRegistry implements registry.API in memory.
type fakeRegistry struct {
	channels map[string]registry.Channel
	listErr  error
	nextID   int

	creates, updates, deletes int
}

func newFakeRegistry(existing ...registry.Channel) *fakeRegistry {
	f := &fakeRegistry{channels: make(map[string]registry.Channel)}
	for _, ch := range existing {
		f.channels[ch.Ref] = ch
	}
	return f
}

func (f *fakeRegistry) List(ctx context.Context) ([]registry.Channel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]registry.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (f *fakeRegistry) Create(ctx context.Context, spec registry.Spec) (registry.Channel, error) {
	f.creates++
	f.nextID++
	ch := registry.Channel{Ref: fmt.Sprintf("ext-%d", f.nextID), Name: spec.Name, Number: spec.Number, GroupID: spec.GroupID}
	f.channels[ch.Ref] = ch
	return ch, nil
}

func (f *fakeRegistry) Update(ctx context.Context, ref string, spec registry.Spec) error {
	f.updates++
	ch, ok := f.channels[ref]
	if !ok {
		return registry.ErrNotFound
	}
	ch.Name, ch.Number, ch.GroupID = spec.Name, spec.Number, spec.GroupID
	f.channels[ref] = ch
	return nil
}

func (f *fakeRegistry) Delete(ctx context.Context, ref string) error {
	f.deletes++
	delete(f.channels, ref)
	return nil
}

func active(ref, name, group string) lifecycle.Channel {
	return lifecycle.Channel{Ref: ref, Name: name, GroupID: group, State: lifecycle.StateActive}
}

var testCfg = NumberingConfig{Start: 100, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortStreamOrder}

func TestReconcileCreatesMissing(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, testCfg)

	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{active("c1", "NFL 1", "g1")}}}
	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Created)
	assert.Equal(t, 1, reg.creates)
	require.Contains(t, res.CreatedRefs, "c1")
	assert.Equal(t, 100, res.Numbers["c1"])
}

func TestReconcilePendingStaysOutOfRegistry(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, testCfg)

	// Created with lead_before_start timing days ahead of the event,
	// so the create condition has not fired yet.
	pending := lifecycle.Channel{
		Ref: "c1", Name: "NFL 1", GroupID: "g1",
		State:      lifecycle.StatePending,
		EventStart: time.Now().Add(72 * time.Hour),
	}
	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{pending, active("c2", "NFL 2", "g1")}}}

	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Created, "only the active channel materializes")
	assert.Equal(t, 1, reg.creates)
	assert.Equal(t, 1, res.Report.Pending)
	assert.NotContains(t, res.CreatedRefs, "c1")

	// The pending channel still reserves its slot so activation does
	// not renumber the group.
	assert.Equal(t, 100, res.Numbers["c1"])
	assert.Equal(t, 101, res.Numbers["c2"])
}

func TestReconcileIdempotentSecondPass(t *testing.T) {
	reg := newFakeRegistry(registry.Channel{Ref: "ext-1", Name: "NFL 1", Number: 100, GroupID: "g1"})
	r := New(reg, testCfg)

	ch := active("c1", "NFL 1", "g1")
	ch.RegistryRef = "ext-1"
	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{ch}}}

	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)
	assert.Empty(t, res.Actions, "converged state issues zero corrective calls")
	assert.Equal(t, 1, res.Report.Unchanged)
}

func TestReconcileUpdatesDrift(t *testing.T) {
	reg := newFakeRegistry(registry.Channel{Ref: "ext-1", Name: "old name", Number: 7, GroupID: "g1"})
	r := New(reg, testCfg)

	ch := active("c1", "NFL 1", "g1")
	ch.RegistryRef = "ext-1"
	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{ch}}}

	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Updated)
	assert.Equal(t, "NFL 1", reg.channels["ext-1"].Name)
	assert.Equal(t, 100, reg.channels["ext-1"].Number)
}

func TestReconcileDeletesOrphans(t *testing.T) {
	reg := newFakeRegistry(
		registry.Channel{Ref: "ext-1", Name: "stale", Number: 100, GroupID: "g1"},
		registry.Channel{Ref: "ext-2", Name: "foreign", Number: 5},
	)
	r := New(reg, testCfg)

	res, err := r.Reconcile(context.Background(), nil, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Orphaned)
	assert.NotContains(t, reg.channels, "ext-1")
	assert.Contains(t, reg.channels, "ext-2", "foreign channels are never touched")
}

func TestReconcileFetchFailureIsSafe(t *testing.T) {
	reg := newFakeRegistry(registry.Channel{Ref: "ext-1", Name: "keep", Number: 1, GroupID: "g1"})
	reg.listErr = registry.ErrUnavailable
	r := New(reg, testCfg)

	res, err := r.Reconcile(context.Background(), nil, nil, nil, true)
	assert.Error(t, err)
	assert.True(t, res.Report.FetchFailed)
	assert.Empty(t, res.Actions)
	assert.Zero(t, reg.deletes, "no information never means delete everything")
}

func TestReconcileDryRun(t *testing.T) {
	reg := newFakeRegistry(registry.Channel{Ref: "ext-1", Name: "stale", Number: 1, GroupID: "g1"})
	r := New(reg, testCfg)

	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{active("c1", "NFL 1", "g1")}}}
	res, err := r.Reconcile(context.Background(), groups, nil, nil, false)
	require.NoError(t, err)

	assert.True(t, res.Report.DryRun)
	assert.NotEmpty(t, res.Actions, "plan is still produced")
	assert.Zero(t, reg.creates+reg.updates+reg.deletes, "dry run issues no calls")
}

func TestReconcileExternalNumbersOccupied(t *testing.T) {
	// A foreign channel sits on 100; allocation must not hand 100 to a
	// managed channel.
	reg := newFakeRegistry(registry.Channel{Ref: "ext-f", Name: "foreign", Number: 100})
	r := New(reg, testCfg)

	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{active("c1", "NFL 1", "g1")}}}
	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 101, res.Numbers["c1"])
}

func TestReconcileDeletesLifecycleDeleted(t *testing.T) {
	reg := newFakeRegistry(registry.Channel{Ref: "ext-1", Name: "NFL 1", Number: 100, GroupID: "g1"})
	r := New(reg, testCfg)

	ch := lifecycle.Channel{Ref: "c1", Name: "NFL 1", GroupID: "g1", State: lifecycle.StateDeleted, RegistryRef: "ext-1"}
	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{ch}}}

	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Deleted)
	assert.NotContains(t, reg.channels, "ext-1")
}

func TestReconcileActionFailureDeferred(t *testing.T) {
	reg := newFakeRegistry()
	r := New(&failingCreate{fakeRegistry: reg}, testCfg)

	groups := []Group{{ID: "g1", Channels: []lifecycle.Channel{active("c1", "NFL 1", "g1")}}}
	res, err := r.Reconcile(context.Background(), groups, nil, nil, true)
	require.NoError(t, err, "action failures are reported, not fatal")
	assert.NotEmpty(t, res.Report.Errors)
}

type failingCreate struct {
	*fakeRegistry
}

func (f *failingCreate) Create(ctx context.Context, spec registry.Spec) (registry.Channel, error) {
	return registry.Channel{}, errors.New("boom")
}
