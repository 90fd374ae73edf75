// SPDX-License-Identifier: MIT

package classify

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportarr/sportarr/internal/patterns"
)

func newClassifier() *Classifier {
	return New(patterns.NewProvider())
}

func TestClassifyTeamVsTeamScenario(t *testing.T) {
	c := newClassifier()

	cl, err := c.Classify(context.Background(), "NFL: Lions vs Packers 1:00 PM", nil)
	require.NoError(t, err)

	assert.Equal(t, CategoryTeamVsTeam, cl.Category)
	assert.Equal(t, "nfl", cl.Field(FieldLeague))
	assert.Equal(t, "Lions", cl.Field(FieldTeam1))
	assert.Equal(t, "Packers", cl.Field(FieldTeam2))
	assert.Equal(t, "1:00 PM", cl.Field(FieldTime))
}

func TestClassifyCategories(t *testing.T) {
	c := newClassifier()
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
		want Category
	}{
		{"placeholder_slate", "Channel Slate - No Events Scheduled", CategoryPlaceholder},
		{"combat_card", "UFC 300: Pereira vs Hill", CategoryEventCard},
		{"boxing_sanctioning_body", "WBO Championship: Usyk v Dubois", CategoryEventCard},
		{"team_vs_team", "Bruins @ Maple Leafs", CategoryTeamVsTeam},
		{"combat_exclusion", "UFC 300 Weigh-In Show", CategoryExcluded},
		{"nothing_recognised", "SportsCenter", CategoryUnknown},
		{"cowboys_not_combat", "Cowboys at Eagles", CategoryTeamVsTeam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := c.Classify(ctx, tt.raw, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cl.Category, "raw=%q", tt.raw)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := newClassifier()
	ctx := context.Background()

	first, err := c.Classify(ctx, "NHL: Bruins vs Rangers 7:30 PM", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := c.Classify(ctx, "NHL: Bruins vs Rangers 7:30 PM", nil)
		require.NoError(t, err)
		assert.Equal(t, first.Category, again.Category)
		assert.Equal(t, first.Extracted, again.Extracted)
	}
}

func TestGroupExcludeWinsOverEverything(t *testing.T) {
	c := newClassifier()

	rules := &GroupRules{Exclude: regexp.MustCompile(`(?i)packers`)}
	cl, err := c.Classify(context.Background(), "NFL: Lions vs Packers", rules)
	require.NoError(t, err)
	assert.Equal(t, CategoryExcluded, cl.Category)
}

func TestSkipBuiltinFilterScenario(t *testing.T) {
	c := newClassifier()
	ctx := context.Background()

	// Without the skip, an unsupported feed with no separator falls
	// through to Unknown but exclusion patterns still apply.
	rules := &GroupRules{
		SkipBuiltinFilter: true,
		Include:           regexp.MustCompile(`(?i)pga`),
	}

	cl, err := c.Classify(ctx, "PGA Tour Main Feed", rules)
	require.NoError(t, err)
	assert.Equal(t, CategoryUnknown, cl.Category,
		"included stream must pass through, not be discarded")

	// The skip also bypasses placeholder detection.
	cl, err = c.Classify(ctx, "Channel Slate - Coming Soon", rules)
	require.NoError(t, err)
	assert.NotEqual(t, CategoryPlaceholder, cl.Category)
}

func TestConfiguredLeaguesPinHints(t *testing.T) {
	c := newClassifier()
	ctx := context.Background()

	// Detection agreeing with the configuration narrows the set.
	cl, err := c.Classify(ctx, "NFL: Lions vs Packers", &GroupRules{
		Leagues: []string{"nfl", "college-football"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nfl"}, cl.LeagueHints)

	// A detected hint outside the configured set gives way to the
	// configuration, so the group never matches foreign leagues.
	cl, err = c.Classify(ctx, "NFL: Lions vs Packers", &GroupRules{
		Leagues: []string{"college-football"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"college-football"}, cl.LeagueHints)
	assert.Equal(t, "college-football", cl.Field(FieldLeague))
}

func TestCustomExtractionOverridesBuiltin(t *testing.T) {
	c := newClassifier()

	rules := &GroupRules{
		Extract: map[string]*regexp.Regexp{
			FieldTeam1:  regexp.MustCompile(`(?i)^\[\w+\]\s*(?P<team1>[\w .]+?)\s+vs`),
			FieldLeague: regexp.MustCompile(`(?i)^\[(?P<league>\w+)\]`),
		},
	}

	cl, err := c.Classify(context.Background(), "[NHL] Boston Bruins vs New York Rangers", rules)
	require.NoError(t, err)

	assert.Equal(t, CategoryTeamVsTeam, cl.Category)
	assert.Equal(t, "Boston Bruins", cl.Field(FieldTeam1))
	assert.Equal(t, "NHL", cl.Field(FieldLeague))
	// Built-in extraction still fills what customs did not touch.
	assert.Equal(t, "New York Rangers", cl.Field(FieldTeam2))
}

func TestCustomExtractionMissingFieldIsAbsent(t *testing.T) {
	c := newClassifier()

	rules := &GroupRules{
		Extract: map[string]*regexp.Regexp{
			FieldDate: regexp.MustCompile(`(?P<date>\d{4}-\d{2}-\d{2})`),
		},
	}

	cl, err := c.Classify(context.Background(), "Lions vs Packers", rules)
	require.NoError(t, err)
	assert.Empty(t, cl.Field(FieldDate), "unmatched custom field must be absent")
}

func TestEventCardExtraction(t *testing.T) {
	c := newClassifier()

	cl, err := c.Classify(context.Background(), "UFC 300: Pereira vs Hill (Main Card)", nil)
	require.NoError(t, err)

	assert.Equal(t, CategoryEventCard, cl.Category)
	assert.Equal(t, "UFC 300", cl.Field(FieldEventName))
	assert.Equal(t, "Pereira vs Hill", cl.Field(FieldFighters))
	assert.Equal(t, "main_card", cl.Field(FieldCardSegment))
}
