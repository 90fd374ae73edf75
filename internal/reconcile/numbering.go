// SPDX-License-Identifier: MIT

// Package reconcile diffs the desired managed-channel set against the
// external registry's actual state and assigns channel numbers under
// configurable gap/drift tradeoffs.
package reconcile

import (
	"sort"

	"github.com/sportarr/sportarr/internal/lifecycle"
)

// Mode selects how numbering trades reserved gaps against renumber
// churn when group sizes change.
type Mode string

const (
	// StrictBlock reserves a fixed block per group sized to the
	// group's total stream count. Large stable gaps; group growth
	// never collides with the next group.
	StrictBlock Mode = "strict_block"
	// RationalBlock reserves a block sized to the actual channel
	// count, rounded up to the nearest 10. Small gaps; occasional
	// renumbers only on large count changes.
	RationalBlock Mode = "rational_block"
	// StrictCompact assigns sequentially with no reserved gaps. Any
	// change in an earlier group renumbers everything after it.
	StrictCompact Mode = "strict_compact"
)

// Scope selects whether groups number independently or share one
// global range.
type Scope string

const (
	ScopePerGroup Scope = "per_group"
	ScopeGlobal   Scope = "global"
)

// SortBy is the secondary ordering key inside a group.
type SortBy string

const (
	SortSportLeagueTime SortBy = "sport_league_time"
	SortTime            SortBy = "time"
	SortStreamOrder     SortBy = "stream_order"
)

// NumberingConfig tunes one allocation pass.
type NumberingConfig struct {
	Start  int    `yaml:"start"`
	Max    int    `yaml:"max"`
	Mode   Mode   `yaml:"mode"`
	Scope  Scope  `yaml:"scope"`
	SortBy SortBy `yaml:"sort_by"`
}

// SortPriority ranks a sport or a specific league for ordering. An
// empty League means a sport-level entry, outranked by an exact
// sport+league entry.
type SortPriority struct {
	Sport    string `yaml:"sport"`
	League   string `yaml:"league"`
	Priority int    `yaml:"priority"`
}

// Group is one allocation unit: its desired channels in stream order
// plus the stream count that sizes StrictBlock reservations.
type Group struct {
	ID string
	// Start overrides NumberingConfig.Start under ScopePerGroup.
	Start        int
	Channels     []lifecycle.Channel
	TotalStreams int
}

// Allocation is the result of one numbering pass.
type Allocation struct {
	// Numbers maps channel Ref to its assigned number.
	Numbers map[string]int
	// Unassigned lists refs that could not receive a number, e.g. the
	// configured maximum was reached.
	Unassigned []string
}

const rationalBlockStep = 10

// Allocate assigns numbers to every live desired channel. Pinned
// channels keep their pin; pinned and externally occupied numbers are
// skipped, never overwritten. Within a group channels are ordered by
// cfg.SortBy against the priority list; numbers are unique and
// non-decreasing in that order.
func Allocate(groups []Group, priorities []SortPriority, cfg NumberingConfig, pins map[string]int, occupied map[int]bool) Allocation {
	alloc := Allocation{Numbers: make(map[string]int)}

	taken := make(map[int]bool, len(occupied)+len(pins))
	for n := range occupied {
		taken[n] = true
	}
	for ref, n := range pins {
		taken[n] = true
		alloc.Numbers[ref] = n
	}

	if cfg.Start <= 0 {
		cfg.Start = 1
	}

	cursor := cfg.Start
	for _, g := range groups {
		if cfg.Scope == ScopePerGroup {
			cursor = g.Start
			if cursor <= 0 {
				cursor = cfg.Start
			}
		}
		blockBase := cursor

		chans := orderChannels(g.Channels, priorities, cfg.SortBy)
		assigned := 0
		for _, ch := range chans {
			if ch.State.Terminal() {
				continue
			}
			if _, pinned := pins[ch.Ref]; pinned {
				assigned++
				continue
			}
			n := nextFree(cursor, taken)
			if cfg.Max > 0 && n > cfg.Max {
				alloc.Unassigned = append(alloc.Unassigned, ch.Ref)
				continue
			}
			taken[n] = true
			alloc.Numbers[ch.Ref] = n
			cursor = n + 1
			assigned++
		}

		if cfg.Scope == ScopeGlobal {
			cursor = nextBlockBase(cfg.Mode, blockBase, cursor, assigned, g.TotalStreams)
		}
	}
	return alloc
}

// nextBlockBase advances the global cursor past the current group's
// reservation.
func nextBlockBase(mode Mode, base, cursor, assigned, totalStreams int) int {
	switch mode {
	case StrictBlock:
		size := totalStreams
		if assigned > size {
			size = assigned
		}
		return base + size
	case RationalBlock:
		size := ((assigned + rationalBlockStep - 1) / rationalBlockStep) * rationalBlockStep
		if size == 0 {
			size = rationalBlockStep
		}
		return base + size
	default: // StrictCompact
		return cursor
	}
}

func nextFree(from int, taken map[int]bool) int {
	n := from
	for taken[n] {
		n++
	}
	return n
}

// orderChannels sorts a group's channels for assignment. The sort is
// stable so SortStreamOrder preserves the incoming stream order.
func orderChannels(chans []lifecycle.Channel, priorities []SortPriority, by SortBy) []lifecycle.Channel {
	out := make([]lifecycle.Channel, len(chans))
	copy(out, chans)

	switch by {
	case SortTime:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].EventStart.Equal(out[j].EventStart) {
				return out[i].EventStart.Before(out[j].EventStart)
			}
			return out[i].Name < out[j].Name
		})
	case SortStreamOrder:
		// Incoming order is the stream order.
	default: // SortSportLeagueTime
		rank := priorityRank(priorities)
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := rank(out[i]), rank(out[j])
			if ri != rj {
				return ri < rj
			}
			if out[i].League != out[j].League {
				return out[i].League < out[j].League
			}
			if !out[i].EventStart.Equal(out[j].EventStart) {
				return out[i].EventStart.Before(out[j].EventStart)
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

// priorityRank resolves a channel to its configured priority: an exact
// sport+league entry wins over a sport-level entry; channels without
// any entry sort last.
func priorityRank(priorities []SortPriority) func(lifecycle.Channel) int {
	const unranked = 1 << 30
	exact := make(map[[2]string]int)
	sport := make(map[string]int)
	for _, p := range priorities {
		if p.League != "" {
			exact[[2]string{p.Sport, p.League}] = p.Priority
		} else {
			sport[p.Sport] = p.Priority
		}
	}
	return func(ch lifecycle.Channel) int {
		if p, ok := exact[[2]string{ch.Sport, ch.League}]; ok {
			return p
		}
		if p, ok := sport[ch.Sport]; ok {
			return p
		}
		return unranked
	}
}
