// SPDX-License-Identifier: MIT

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/sched"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestPendingActivatesOnStream(t *testing.T) {
	cfg := DefaultTimingConfig()

	got := Evaluate(StatePending, base, Conditions{StreamAvailable: true}, cfg)
	assert.Equal(t, StateActive, got)

	got = Evaluate(StatePending, base, Conditions{StreamAvailable: false}, cfg)
	assert.Equal(t, StatePending, got)
}

func TestPendingActivatesOnLead(t *testing.T) {
	cfg := TimingConfig{Create: CreateLeadBefore, CreateLead: 4 * time.Hour, Delete: DeleteDayAfter, GracePeriod: time.Hour}
	start := base.Add(6 * time.Hour)

	got := Evaluate(StatePending, base, Conditions{EventStart: start}, cfg)
	assert.Equal(t, StatePending, got, "too early")

	got = Evaluate(StatePending, base.Add(2*time.Hour), Conditions{EventStart: start}, cfg)
	assert.Equal(t, StateActive, got, "inside the lead window")
}

func TestPendingActivatesSameDay(t *testing.T) {
	cfg := TimingConfig{Create: CreateSameDay, Delete: DeleteDayAfter, GracePeriod: time.Hour}
	start := time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)

	got := Evaluate(StatePending, base, Conditions{EventStart: start}, cfg)
	assert.Equal(t, StatePending, got, "day before")

	sameDay := time.Date(2026, 3, 15, 0, 30, 0, 0, time.UTC)
	got = Evaluate(StatePending, sameDay, Conditions{EventStart: start}, cfg)
	assert.Equal(t, StateActive, got)
}

func TestActiveExpiresAfterEnd(t *testing.T) {
	cfg := TimingConfig{Create: CreateOnStreamAvailable, Delete: DeleteAtEnd, GracePeriod: time.Hour}
	end := base.Add(-time.Minute)

	got := Evaluate(StateActive, base, Conditions{EventStart: end.Add(-3 * time.Hour), EventEnd: end, StreamAvailable: true}, cfg)
	assert.Equal(t, StateExpiring, got)
}

func TestActiveExpiresOnFinalStatus(t *testing.T) {
	// Final reported before the scheduled end still counts as ended.
	cfg := TimingConfig{Create: CreateOnStreamAvailable, Delete: DeleteAtEnd, GracePeriod: time.Hour}
	cond := Conditions{
		EventStart:      base.Add(-2 * time.Hour),
		EventEnd:        base.Add(time.Hour),
		EventFinal:      true,
		StreamAvailable: true,
	}
	assert.Equal(t, StateExpiring, Evaluate(StateActive, base, cond, cfg))
}

func TestActiveExpiresDayAfter(t *testing.T) {
	cfg := DefaultTimingConfig()
	end := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

	lateSameDay := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	got := Evaluate(StateActive, lateSameDay, Conditions{EventEnd: end, StreamAvailable: true}, cfg)
	assert.Equal(t, StateActive, got, "still the event day")

	nextDay := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	got = Evaluate(StateActive, nextDay, Conditions{EventEnd: end, StreamAvailable: true}, cfg)
	assert.Equal(t, StateExpiring, got)
}

func TestActiveExpiresOnStreamRemoved(t *testing.T) {
	cfg := TimingConfig{Create: CreateOnStreamAvailable, Delete: DeleteOnStreamRemoved, GracePeriod: time.Hour}
	cond := Conditions{EventStart: base.Add(2 * time.Hour), StreamAvailable: false}
	assert.Equal(t, StateExpiring, Evaluate(StateActive, base, cond, cfg))
}

func TestExpiringWaitsForGrace(t *testing.T) {
	cfg := DefaultTimingConfig()
	since := base.Add(-30 * time.Minute)

	got := Evaluate(StateExpiring, base, Conditions{ExpiringSince: since}, cfg)
	assert.Equal(t, StateExpiring, got, "grace not elapsed")

	got = Evaluate(StateExpiring, base.Add(time.Hour), Conditions{ExpiringSince: since}, cfg)
	assert.Equal(t, StateDeleted, got)
}

func TestExpiringRescuedByStream(t *testing.T) {
	cfg := DefaultTimingConfig()
	cond := Conditions{
		EventStart:      base.Add(time.Hour),
		EventEnd:        base.Add(4 * time.Hour),
		StreamAvailable: true,
		ExpiringSince:   base.Add(-30 * time.Minute),
	}
	assert.Equal(t, StateActive, Evaluate(StateExpiring, base, cond, cfg))
}

func TestDeletedIsTerminal(t *testing.T) {
	cfg := DefaultTimingConfig()
	cond := Conditions{StreamAvailable: true, EventStart: base.Add(time.Hour)}
	assert.Equal(t, StateDeleted, Evaluate(StateDeleted, base, cond, cfg))
}

func TestMissedPassCatchesUp(t *testing.T) {
	// No runs happened between event end and now; a single evaluation
	// lands in the right state anyway.
	cfg := TimingConfig{Create: CreateOnStreamAvailable, Delete: DeleteAtEnd, GracePeriod: time.Hour}
	cond := Conditions{
		EventEnd:      base.Add(-48 * time.Hour),
		ExpiringSince: base.Add(-47 * time.Hour),
	}
	assert.Equal(t, StateDeleted, Evaluate(StateExpiring, base, cond, cfg))
}

func record(fp, eventID, name string, start time.Time) *match.Record {
	return &match.Record{
		Fingerprint:   fp,
		EventID:       eventID,
		StreamRawName: name,
		Sport:         "football",
		League:        "nfl",
		EventStart:    start,
		Confidence:    0.9,
	}
}

func TestManagerCreatesAndActivates(t *testing.T) {
	m := NewManager(DefaultTimingConfig())
	start := base.Add(4 * time.Hour)
	events := map[string]sched.Event{
		"100": {ID: "100", Start: start, End: start.Add(3 * time.Hour), Status: sched.StatusScheduled},
	}

	got := m.Advance("g1", nil, []*match.Record{record("fp1", "100", "Lions vs Packers", start)}, events, base)
	require.Len(t, got, 1)
	assert.Equal(t, StateActive, got[0].State, "on_stream_available activates in the same pass")
	assert.NotEmpty(t, got[0].Ref)
	assert.Equal(t, "g1", got[0].GroupID)
	assert.Equal(t, "100", got[0].EntityRef)
}

func TestManagerExpiresWhenStreamGone(t *testing.T) {
	cfg := TimingConfig{Create: CreateOnStreamAvailable, Delete: DeleteOnStreamRemoved, GracePeriod: time.Hour}
	m := NewManager(cfg)
	prior := []Channel{{
		Ref: "ch1", GroupID: "g1", EntityRef: "100", Fingerprint: "fp1",
		State: StateActive, EventStart: base.Add(2 * time.Hour), Number: 101,
	}}

	got := m.Advance("g1", prior, nil, nil, base)
	require.Len(t, got, 1)
	assert.Equal(t, StateExpiring, got[0].State)
	assert.Equal(t, base, got[0].ExpiringSince)
	assert.Equal(t, base.Add(time.Hour), got[0].ExpiresAt)

	// Grace elapses on a later pass with the stream still gone.
	got = m.Advance("g1", got, nil, nil, base.Add(2*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, StateDeleted, got[0].State)
	assert.Zero(t, got[0].Number, "deleted channels hold no number")
}

func TestManagerDeletedPairingDoesNotResurrect(t *testing.T) {
	m := NewManager(DefaultTimingConfig())
	prior := []Channel{{Ref: "ch1", GroupID: "g1", EntityRef: "100", Fingerprint: "fp1", State: StateDeleted}}
	start := base.Add(3 * time.Hour)

	got := m.Advance("g1", prior, []*match.Record{record("fp1", "100", "Lions vs Packers", start)}, nil, base)
	require.Len(t, got, 1)
	assert.Equal(t, StateDeleted, got[0].State)
}

func TestManagerIgnoresStaleRecords(t *testing.T) {
	m := NewManager(DefaultTimingConfig())
	rec := record("fp1", "100", "Lions vs Packers", base)
	rec.Stale = true

	got := m.Advance("g1", nil, []*match.Record{rec}, nil, base)
	assert.Empty(t, got)
}
