// SPDX-License-Identifier: MIT

package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportarr/sportarr/internal/lifecycle"
)

func chans(prefix string, n int) []lifecycle.Channel {
	out := make([]lifecycle.Channel, n)
	for i := range out {
		out[i] = lifecycle.Channel{
			Ref:        fmt.Sprintf("%s-%d", prefix, i),
			Name:       fmt.Sprintf("%s %d", prefix, i),
			State:      lifecycle.StateActive,
			EventStart: time.Date(2026, 3, 14, 10+i, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestStrictBlockReservesStreamCount(t *testing.T) {
	groups := []Group{
		{ID: "g1", Channels: chans("a", 3), TotalStreams: 50},
		{ID: "g2", Channels: chans("b", 2), TotalStreams: 20},
	}
	cfg := NumberingConfig{Start: 100, Mode: StrictBlock, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	assert.Equal(t, 100, alloc.Numbers["a-0"])
	assert.Equal(t, 102, alloc.Numbers["a-2"])
	assert.Equal(t, 150, alloc.Numbers["b-0"], "second group starts past the first group's stream count")
}

func TestRationalBlockRoundsToTen(t *testing.T) {
	groups := []Group{
		{ID: "g1", Channels: chans("a", 13), TotalStreams: 13},
		{ID: "g2", Channels: chans("b", 1), TotalStreams: 1},
	}
	cfg := NumberingConfig{Start: 1, Mode: RationalBlock, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	assert.Equal(t, 1, alloc.Numbers["a-0"])
	assert.Equal(t, 13, alloc.Numbers["a-12"])
	assert.Equal(t, 21, alloc.Numbers["b-0"], "13 channels round up to a block of 20")
}

func TestStrictCompactLeavesNoGaps(t *testing.T) {
	groups := []Group{
		{ID: "g1", Channels: chans("a", 3), TotalStreams: 50},
		{ID: "g2", Channels: chans("b", 2), TotalStreams: 20},
	}
	cfg := NumberingConfig{Start: 1, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	assert.Equal(t, 3, alloc.Numbers["a-2"])
	assert.Equal(t, 4, alloc.Numbers["b-0"])
}

func TestPerGroupScopeIndependentRanges(t *testing.T) {
	groups := []Group{
		{ID: "g1", Start: 100, Channels: chans("a", 2)},
		{ID: "g2", Start: 500, Channels: chans("b", 2)},
	}
	cfg := NumberingConfig{Start: 1, Mode: StrictCompact, Scope: ScopePerGroup, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	assert.Equal(t, 100, alloc.Numbers["a-0"])
	assert.Equal(t, 500, alloc.Numbers["b-0"])
}

func TestOccupiedAndPinnedSkipped(t *testing.T) {
	groups := []Group{{ID: "g1", Channels: chans("a", 3)}}
	cfg := NumberingConfig{Start: 100, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	pins := map[string]int{"a-1": 101}
	occupied := map[int]bool{100: true}

	alloc := Allocate(groups, nil, cfg, pins, occupied)
	assert.Equal(t, 101, alloc.Numbers["a-1"], "pin kept")
	assert.Equal(t, 102, alloc.Numbers["a-0"], "100 occupied externally, 101 pinned")
	assert.Equal(t, 103, alloc.Numbers["a-2"])
}

func TestMaxNumberLeavesOverflowUnassigned(t *testing.T) {
	groups := []Group{{ID: "g1", Channels: chans("a", 3)}}
	cfg := NumberingConfig{Start: 99, Max: 100, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	assert.Equal(t, 99, alloc.Numbers["a-0"])
	assert.Equal(t, 100, alloc.Numbers["a-1"])
	_, ok := alloc.Numbers["a-2"]
	assert.False(t, ok)
	assert.Equal(t, []string{"a-2"}, alloc.Unassigned)
}

func TestDeletedChannelsGetNoNumber(t *testing.T) {
	cs := chans("a", 2)
	cs[0].State = lifecycle.StateDeleted
	groups := []Group{{ID: "g1", Channels: cs}}
	cfg := NumberingConfig{Start: 1, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortStreamOrder}

	alloc := Allocate(groups, nil, cfg, nil, nil)
	_, ok := alloc.Numbers["a-0"]
	assert.False(t, ok)
	assert.Equal(t, 1, alloc.Numbers["a-1"])
}

func TestMonotonicInPriorityOrder(t *testing.T) {
	cs := []lifecycle.Channel{
		{Ref: "soccer", Sport: "soccer", League: "epl", State: lifecycle.StateActive},
		{Ref: "nfl", Sport: "football", League: "nfl", State: lifecycle.StateActive},
		{Ref: "nhl", Sport: "hockey", League: "nhl", State: lifecycle.StateActive},
	}
	priorities := []SortPriority{
		{Sport: "football", League: "nfl", Priority: 1},
		{Sport: "hockey", Priority: 2},
		{Sport: "soccer", League: "epl", Priority: 3},
	}
	cfg := NumberingConfig{Start: 1, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortSportLeagueTime}

	alloc := Allocate([]Group{{ID: "g1", Channels: cs}}, priorities, cfg, nil, nil)
	require.Len(t, alloc.Numbers, 3)
	assert.Less(t, alloc.Numbers["nfl"], alloc.Numbers["nhl"])
	assert.Less(t, alloc.Numbers["nhl"], alloc.Numbers["soccer"])
}

func TestSortByTime(t *testing.T) {
	early := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	cs := []lifecycle.Channel{
		{Ref: "late", State: lifecycle.StateActive, EventStart: late},
		{Ref: "early", State: lifecycle.StateActive, EventStart: early},
	}
	cfg := NumberingConfig{Start: 1, Mode: StrictCompact, Scope: ScopeGlobal, SortBy: SortTime}

	alloc := Allocate([]Group{{ID: "g1", Channels: cs}}, nil, cfg, nil, nil)
	assert.Less(t, alloc.Numbers["early"], alloc.Numbers["late"])
}
