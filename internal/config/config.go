// SPDX-License-Identifier: MIT

// Package config loads daemon configuration from the environment and
// per-group settings from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/reconcile"
)

// App is the daemon-level configuration, read once at startup.
type App struct {
	// DataDir holds the SQLite database, the Badger record store and
	// exported reports.
	DataDir    string
	ListenAddr string

	// GroupsFile is the YAML file defining stream groups. It is
	// watched for changes at runtime.
	GroupsFile string

	RegistryURL     string
	RegistryRPS     float64
	ScheduleURL     string
	AutoFix         bool
	PassInterval    time.Duration
	ExportDir       string
	RedisAddr       string
	RedisPassword   string
	MatchThreshold  float64
	MatchLookahead  time.Duration
	MatchLookbehind time.Duration
	NumberingStart  int
	NumberingMax    int
	NumberingMode   reconcile.Mode
	NumberingScope  reconcile.Scope
	NumberingSortBy reconcile.SortBy
}

// FromEnv reads the full daemon configuration from SPORTARR_*
// environment variables.
func FromEnv() App {
	return App{
		DataDir:         ParseString("SPORTARR_DATA_DIR", "/data"),
		ListenAddr:      ParseString("SPORTARR_LISTEN", ":8080"),
		GroupsFile:      ParseString("SPORTARR_GROUPS_FILE", "/data/groups.yaml"),
		RegistryURL:     ParseString("SPORTARR_REGISTRY_URL", ""),
		RegistryRPS:     ParseFloat("SPORTARR_REGISTRY_RPS", 5),
		ScheduleURL:     ParseString("SPORTARR_SCHEDULE_URL", ""),
		AutoFix:         ParseBool("SPORTARR_AUTOFIX", false),
		PassInterval:    ParseDuration("SPORTARR_PASS_INTERVAL", 15*time.Minute),
		ExportDir:       ParseString("SPORTARR_EXPORT_DIR", ""),
		RedisAddr:       ParseString("SPORTARR_REDIS_ADDR", ""),
		RedisPassword:   ParseString("SPORTARR_REDIS_PASSWORD", ""),
		MatchThreshold:  ParseFloat("SPORTARR_MATCH_THRESHOLD", 0.60),
		MatchLookahead:  ParseDuration("SPORTARR_MATCH_LOOKAHEAD", 72*time.Hour),
		MatchLookbehind: ParseDuration("SPORTARR_MATCH_LOOKBEHIND", 6*time.Hour),
		NumberingStart:  ParseInt("SPORTARR_NUMBERING_START", 100),
		NumberingMax:    ParseInt("SPORTARR_NUMBERING_MAX", 0),
		NumberingMode:   reconcile.Mode(ParseString("SPORTARR_NUMBERING_MODE", string(reconcile.RationalBlock))),
		NumberingScope:  reconcile.Scope(ParseString("SPORTARR_NUMBERING_SCOPE", string(reconcile.ScopeGlobal))),
		NumberingSortBy: reconcile.SortBy(ParseString("SPORTARR_NUMBERING_SORT", string(reconcile.SortSportLeagueTime))),
	}
}

// Validate rejects configurations the daemon cannot run with.
func (a App) Validate() error {
	if a.RegistryURL != "" {
		if _, err := url.Parse(a.RegistryURL); err != nil {
			return fmt.Errorf("config: invalid registry URL: %w", err)
		}
	}
	if a.ScheduleURL == "" {
		return fmt.Errorf("config: SPORTARR_SCHEDULE_URL is required")
	}
	if a.MatchThreshold < 0 || a.MatchThreshold > 1 {
		return fmt.Errorf("config: match threshold %v outside [0,1]", a.MatchThreshold)
	}
	switch a.NumberingMode {
	case reconcile.StrictBlock, reconcile.RationalBlock, reconcile.StrictCompact:
	default:
		return fmt.Errorf("config: unknown numbering mode %q", a.NumberingMode)
	}
	switch a.NumberingScope {
	case reconcile.ScopePerGroup, reconcile.ScopeGlobal:
	default:
		return fmt.Errorf("config: unknown numbering scope %q", a.NumberingScope)
	}
	switch a.NumberingSortBy {
	case reconcile.SortSportLeagueTime, reconcile.SortTime, reconcile.SortStreamOrder:
	default:
		return fmt.Errorf("config: unknown sort key %q", a.NumberingSortBy)
	}
	return nil
}

// MatchConfig builds the matching engine tuning.
func (a App) MatchConfig() match.Config {
	cfg := match.DefaultConfig()
	cfg.Threshold = a.MatchThreshold
	cfg.Lookahead = a.MatchLookahead
	cfg.Lookbehind = a.MatchLookbehind
	return cfg
}

// NumberingConfig builds the allocator tuning.
func (a App) NumberingConfig() reconcile.NumberingConfig {
	return reconcile.NumberingConfig{
		Start:  a.NumberingStart,
		Max:    a.NumberingMax,
		Mode:   a.NumberingMode,
		Scope:  a.NumberingScope,
		SortBy: a.NumberingSortBy,
	}
}
