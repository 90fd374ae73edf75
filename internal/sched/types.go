// SPDX-License-Identifier: MIT

// Package sched models scheduled sporting events and fetches them from
// the upstream schedule provider. Events are read-only to the rest of
// the system.
package sched

import "time"

// Status is the provider-reported state of an event.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusFinal      Status = "final"
	StatusPostponed  Status = "postponed"
)

// Terminal reports whether the event can no longer back a live channel.
func (s Status) Terminal() bool {
	return s == StatusFinal || s == StatusPostponed
}

// Team identifies one participant of an event.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	Abbreviation string `json:"abbreviation"`
}

// Event is a single scheduled game or card.
type Event struct {
	ID     string    `json:"id"`
	Sport  string    `json:"sport"`
	League string    `json:"league"`
	Name   string    `json:"name"`
	Home   Team      `json:"home"`
	Away   Team      `json:"away"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status Status    `json:"status"`
}
