// SPDX-License-Identifier: MIT

// Package jobs runs the generation pass: classify streams, match them
// to scheduled events, advance channel lifecycles and reconcile the
// result into the external registry. One pass at a time; a trigger
// while a pass is in flight is rejected, never interleaved.
package jobs

import (
	"errors"
	"time"

	"github.com/sportarr/sportarr/internal/reconcile"
)

// ErrPassInFlight is returned when a trigger arrives while a pass is
// still running.
var ErrPassInFlight = errors.New("jobs: generation pass already in flight")

// GroupStats summarizes one group's pass.
type GroupStats struct {
	GroupID    string         `json:"group_id"`
	Streams    int            `json:"streams"`
	Categories map[string]int `json:"categories"`
	Matched    int            `json:"matched"`
	Unmatched  int            `json:"unmatched"`
	Channels   map[string]int `json:"channels"`
}

// Status is the result of one pass, also served by the API.
type Status struct {
	PassID     string           `json:"pass_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Groups     []GroupStats     `json:"groups"`
	Reconcile  reconcile.Report `json:"reconcile"`
	Error      string           `json:"error,omitempty"`
}
