// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sportarr/sportarr/internal/classify"
	"github.com/sportarr/sportarr/internal/lifecycle"
)

// Group is one stream group's settings as declared in the groups YAML
// file.
type Group struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Sport and Leagues select which schedules are fetched for this
	// group.
	Sport   string   `yaml:"sport"`
	Leagues []string `yaml:"leagues"`

	SkipBuiltinFilter bool              `yaml:"skip_builtin_filter"`
	Exclude           string            `yaml:"exclude"`
	Include           string            `yaml:"include"`
	Extract           map[string]string `yaml:"extract"`

	Create      string        `yaml:"create_timing"`
	CreateLead  time.Duration `yaml:"create_lead"`
	Delete      string        `yaml:"delete_timing"`
	DeleteDelay time.Duration `yaml:"delete_delay"`
	GracePeriod time.Duration `yaml:"grace_period"`

	// NumberStart overrides the global start under per-group scope.
	NumberStart int `yaml:"number_start"`
}

// Groups is the parsed groups file.
type Groups struct {
	Groups []Group `yaml:"groups"`
}

// LoadGroups reads and validates the groups YAML file. Regex fields
// are compiled here so a broken pattern fails the load, not a pass.
func LoadGroups(path string) (Groups, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Groups{}, fmt.Errorf("config: read groups file: %w", err)
	}
	var g Groups
	if err := yaml.Unmarshal(buf, &g); err != nil {
		return Groups{}, fmt.Errorf("config: parse groups file: %w", err)
	}

	seen := make(map[string]bool, len(g.Groups))
	for i, grp := range g.Groups {
		if grp.ID == "" {
			return Groups{}, fmt.Errorf("config: group %d has no id", i)
		}
		if seen[grp.ID] {
			return Groups{}, fmt.Errorf("config: duplicate group id %q", grp.ID)
		}
		seen[grp.ID] = true
		if _, err := grp.Rules(); err != nil {
			return Groups{}, err
		}
	}
	return g, nil
}

// Rules compiles the group's classification overrides.
func (g Group) Rules() (classify.GroupRules, error) {
	rules := classify.GroupRules{
		SkipBuiltinFilter: g.SkipBuiltinFilter,
		Leagues:           g.Leagues,
	}

	var err error
	if g.Exclude != "" {
		if rules.Exclude, err = regexp.Compile("(?i)" + g.Exclude); err != nil {
			return rules, fmt.Errorf("config: group %q exclude: %w", g.ID, err)
		}
	}
	if g.Include != "" {
		if rules.Include, err = regexp.Compile("(?i)" + g.Include); err != nil {
			return rules, fmt.Errorf("config: group %q include: %w", g.ID, err)
		}
	}
	if len(g.Extract) > 0 {
		rules.Extract = make(map[string]*regexp.Regexp, len(g.Extract))
		for field, expr := range g.Extract {
			re, err := regexp.Compile(expr)
			if err != nil {
				return rules, fmt.Errorf("config: group %q extract %q: %w", g.ID, field, err)
			}
			rules.Extract[field] = re
		}
	}
	return rules, nil
}

// Timing resolves the group's lifecycle tuning, defaulting anything
// unset.
func (g Group) Timing() lifecycle.TimingConfig {
	cfg := lifecycle.DefaultTimingConfig()
	if g.Create != "" {
		cfg.Create = lifecycle.CreateTiming(g.Create)
	}
	if g.CreateLead > 0 {
		cfg.CreateLead = g.CreateLead
	}
	if g.Delete != "" {
		cfg.Delete = lifecycle.DeleteTiming(g.Delete)
	}
	if g.DeleteDelay > 0 {
		cfg.DeleteDelay = g.DeleteDelay
	}
	if g.GracePeriod > 0 {
		cfg.GracePeriod = g.GracePeriod
	}
	return cfg
}
