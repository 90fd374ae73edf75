// SPDX-License-Identifier: MIT

package lifecycle

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/sched"
)

// Channel is a managed channel as this system wants it to exist. It is
// mirrored, never owned, by the external registry.
type Channel struct {
	Ref     string `json:"ref"`
	GroupID string `json:"group_id"`
	// RegistryRef is the external registry's identifier, set once the
	// reconciler has created the channel there.
	RegistryRef string    `json:"registry_ref,omitempty"`
	EntityRef   string    `json:"entity_ref"`
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	Sport       string    `json:"sport"`
	League      string    `json:"league"`
	EventStart  time.Time `json:"event_start"`
	State       State     `json:"state"`
	// Number is assigned by the reconciler; zero means unassigned. A
	// deleted channel never holds a number.
	Number        int       `json:"number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiringSince time.Time `json:"expiring_since,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// Manager advances the managed channel set one pass at a time.
type Manager struct {
	cfg    TimingConfig
	logger zerolog.Logger
}

func NewManager(cfg TimingConfig) *Manager {
	return &Manager{cfg: cfg, logger: log.WithComponent("lifecycle")}
}

// Advance computes the desired channel set for one group from the
// prior set, this pass's live match records and the known events.
// Channels are keyed by fingerprint: a live record without a prior
// channel creates a fresh Pending one, a prior channel without a live
// record is evaluated with the stream considered gone. Deleted
// channels stay in the result once so the reconciler can free them.
func (m *Manager) Advance(groupID string, prior []Channel, records []*match.Record, events map[string]sched.Event, now time.Time) []Channel {
	byFP := make(map[string]Channel, len(prior))
	for _, ch := range prior {
		byFP[ch.Fingerprint] = ch
	}

	live := make(map[string]*match.Record, len(records))
	for _, rec := range records {
		if rec.Stale {
			continue
		}
		live[rec.Fingerprint] = rec
	}

	out := make([]Channel, 0, len(byFP)+len(live))
	seen := make(map[string]bool, len(byFP))

	for fp, ch := range byFP {
		seen[fp] = true
		rec := live[fp]
		if ch.State.Terminal() {
			// Terminal pairings do not resurrect; a still-live record
			// for a deleted pairing is dropped here and a new pairing
			// only forms under a new fingerprint.
			out = append(out, ch)
			continue
		}
		out = append(out, m.step(ch, rec, events, now))
	}

	for fp, rec := range live {
		if seen[fp] {
			continue
		}
		ch := Channel{
			Ref:         uuid.NewString(),
			GroupID:     groupID,
			EntityRef:   rec.EventID,
			Fingerprint: fp,
			Name:        rec.StreamRawName,
			Sport:       rec.Sport,
			League:      rec.League,
			EventStart:  rec.EventStart,
			State:       StatePending,
			CreatedAt:   now,
		}
		out = append(out, m.step(ch, rec, events, now))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

func (m *Manager) step(ch Channel, rec *match.Record, events map[string]sched.Event, now time.Time) Channel {
	cond := Conditions{
		StreamAvailable: rec != nil,
		ExpiringSince:   ch.ExpiringSince,
	}
	if ev, ok := events[ch.EntityRef]; ok {
		cond.EventStart = ev.Start
		cond.EventEnd = ev.End
		cond.EventFinal = ev.Status.Terminal()
	} else {
		cond.EventStart = ch.EventStart
	}

	next := Evaluate(ch.State, now, cond, m.cfg)
	if next == ch.State {
		return ch
	}

	m.logger.Info().
		Str("event", "lifecycle.transition").
		Str("channel", ch.Ref).
		Str("fingerprint", ch.Fingerprint).
		Str("from", string(ch.State)).
		Str("to", string(next)).
		Msg("channel state changed")

	ch.State = next
	switch next {
	case StateExpiring:
		ch.ExpiringSince = now
		ch.ExpiresAt = now.Add(m.cfg.GracePeriod)
	case StateActive:
		ch.ExpiringSince = time.Time{}
		ch.ExpiresAt = time.Time{}
	case StateDeleted:
		ch.Number = 0
	}
	return ch
}
