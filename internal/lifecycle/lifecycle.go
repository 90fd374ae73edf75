// SPDX-License-Identifier: MIT

// Package lifecycle decides when managed channels come into existence
// and when they go away, relative to event timing and stream
// availability. Transitions are pure functions of the current state,
// the clock and the pass inputs; nothing here runs timers, so a missed
// pass simply catches up on the next one.
package lifecycle

import "time"

// State is a managed channel's position in its lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateExpiring State = "expiring"
	StateDeleted  State = "deleted"
)

// Terminal reports whether the channel is finished for its
// entity/fingerprint pairing. A new pairing starts a fresh channel.
func (s State) Terminal() bool { return s == StateDeleted }

// CreateTiming selects when a pending channel activates.
type CreateTiming string

const (
	// CreateOnStreamAvailable activates as soon as a live, matched
	// stream backs the channel.
	CreateOnStreamAvailable CreateTiming = "on_stream_available"
	// CreateLeadBefore activates a configured lead duration before the
	// event start. The lead comes from TimingConfig.CreateLead and
	// covers both hours-before and days-before rules.
	CreateLeadBefore CreateTiming = "lead_before_start"
	// CreateSameDay activates at local midnight on the event day.
	CreateSameDay CreateTiming = "same_day"
)

// DeleteTiming selects when an active channel starts expiring.
type DeleteTiming string

const (
	DeleteAtEnd         DeleteTiming = "at_event_end"
	DeleteDelayAfterEnd DeleteTiming = "delay_after_end"
	DeleteDayAfter      DeleteTiming = "day_after"
	// DeleteOnStreamRemoved expires the channel the moment its backing
	// stream disappears, regardless of event timing.
	DeleteOnStreamRemoved DeleteTiming = "on_stream_removed"
)

// TimingConfig is a group's lifecycle tuning.
type TimingConfig struct {
	Create      CreateTiming  `yaml:"create"`
	CreateLead  time.Duration `yaml:"create_lead"`
	Delete      DeleteTiming  `yaml:"delete"`
	DeleteDelay time.Duration `yaml:"delete_delay"`
	// GracePeriod is how long an expiring channel waits for its stream
	// to reappear before deletion.
	GracePeriod time.Duration `yaml:"grace_period"`
}

// DefaultTimingConfig matches the conservative defaults: create when a
// stream shows up, delete the day after, one hour of grace.
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		Create:      CreateOnStreamAvailable,
		Delete:      DeleteDayAfter,
		GracePeriod: time.Hour,
	}
}

// defaultEventDuration stands in for events whose provider reports no
// end time.
const defaultEventDuration = 3 * time.Hour

// Conditions are the per-channel facts observed this pass.
type Conditions struct {
	EventStart time.Time
	EventEnd   time.Time
	// EventFinal is true once the provider reports the event finished
	// or postponed.
	EventFinal bool
	// StreamAvailable is true when a live, non-stale match record backs
	// the channel this pass.
	StreamAvailable bool
	// ExpiringSince is when the channel entered Expiring, zero
	// otherwise.
	ExpiringSince time.Time
}

func (c Conditions) end() time.Time {
	if !c.EventEnd.IsZero() {
		return c.EventEnd
	}
	if c.EventStart.IsZero() {
		return time.Time{}
	}
	return c.EventStart.Add(defaultEventDuration)
}

// Evaluate computes the next state from the current one. It never
// skips Expiring on the way down: a channel whose delete condition is
// already met still passes through the grace window.
func Evaluate(state State, now time.Time, cond Conditions, cfg TimingConfig) State {
	switch state {
	case StatePending:
		if createDue(now, cond, cfg) {
			return StateActive
		}
		return StatePending

	case StateActive:
		if deleteDue(now, cond, cfg) {
			return StateExpiring
		}
		return StateActive

	case StateExpiring:
		// A reappearing stream rescues the channel unless the delete
		// rule still holds on its own.
		if cond.StreamAvailable && !deleteDue(now, cond, cfg) {
			return StateActive
		}
		if cond.ExpiringSince.IsZero() {
			return StateExpiring
		}
		if now.Sub(cond.ExpiringSince) >= cfg.GracePeriod {
			return StateDeleted
		}
		return StateExpiring

	case StateDeleted:
		return StateDeleted

	default:
		return state
	}
}

func createDue(now time.Time, cond Conditions, cfg TimingConfig) bool {
	switch cfg.Create {
	case CreateLeadBefore:
		return !cond.EventStart.IsZero() && !now.Before(cond.EventStart.Add(-cfg.CreateLead))
	case CreateSameDay:
		if cond.EventStart.IsZero() {
			return false
		}
		y1, m1, d1 := now.Date()
		y2, m2, d2 := cond.EventStart.Date()
		return y1 == y2 && m1 == m2 && d1 == d2 || now.After(cond.EventStart)
	default: // CreateOnStreamAvailable
		return cond.StreamAvailable
	}
}

func deleteDue(now time.Time, cond Conditions, cfg TimingConfig) bool {
	if cfg.Delete == DeleteOnStreamRemoved {
		return !cond.StreamAvailable
	}

	end := cond.end()
	if end.IsZero() {
		return false
	}
	// A reported Final counts as the event having ended even when the
	// clock has not reached the scheduled end yet.
	ended := now.After(end) || cond.EventFinal

	switch cfg.Delete {
	case DeleteAtEnd:
		return ended
	case DeleteDelayAfterEnd:
		return now.After(end.Add(cfg.DeleteDelay))
	case DeleteDayAfter:
		next := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
		return !now.Before(next)
	default:
		return ended
	}
}
