// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/api"
	"github.com/sportarr/sportarr/internal/cache"
	"github.com/sportarr/sportarr/internal/classify"
	"github.com/sportarr/sportarr/internal/config"
	"github.com/sportarr/sportarr/internal/jobs"
	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/patterns"
	"github.com/sportarr/sportarr/internal/persistence/sqlite"
	"github.com/sportarr/sportarr/internal/reconcile"
	"github.com/sportarr/sportarr/internal/registry"
	"github.com/sportarr/sportarr/internal/sched"
	"github.com/sportarr/sportarr/internal/store"
	"github.com/sportarr/sportarr/internal/streams"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	playlist := flag.String("playlist", "", "M3U playlist path or URL (overrides SPORTARR_PLAYLIST)")
	verifyDB := flag.String("verify-db", "", "verify channel database integrity (quick or full) and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "sportarr"})
	logger := log.WithComponent("main")

	app := config.FromEnv()
	if err := app.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if *verifyDB != "" {
		path := filepath.Join(app.DataDir, "sportarr.db")
		problems, err := sqlite.VerifyIntegrity(path, *verifyDB)
		if err != nil {
			logger.Fatal().Err(err).Str("db", path).Msg("integrity check failed to run")
		}
		if len(problems) > 0 {
			for _, p := range problems {
				logger.Error().Str("db", path).Msg(p)
			}
			os.Exit(1)
		}
		logger.Info().Str("db", path).Str("mode", *verifyDB).Msg("database integrity ok")
		os.Exit(0)
	}

	playlistLoc := *playlist
	if playlistLoc == "" {
		playlistLoc = config.ParseString("SPORTARR_PLAYLIST", "")
	}
	if playlistLoc == "" {
		logger.Fatal().Msg("no playlist configured (flag -playlist or SPORTARR_PLAYLIST)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app, playlistLoc, logger); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run(ctx context.Context, app config.App, playlist string, logger zerolog.Logger) error {
	st, err := store.Open(filepath.Join(app.DataDir, "sportarr.db"))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	records, err := match.OpenBadgerStore(filepath.Join(app.DataDir, "records"))
	if err != nil {
		return err
	}
	defer func() { _ = records.Close() }()

	listCache, err := buildListCache(app, logger)
	if err != nil {
		return err
	}

	// User patterns in the database shadow the built-in defaults.
	provider := patterns.NewProvider(st)
	if counts, err := provider.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("pattern warmup failed, compiled lazily instead")
	} else {
		logger.Info().Interface("counts", counts).Msg("patterns compiled")
	}

	groupHolder, err := newGroupHolder(app.GroupsFile)
	if err != nil {
		return err
	}

	runner := jobs.NewRunner(
		app,
		classify.New(provider),
		match.NewEngine(app.MatchConfig(), records),
		sched.NewClient(app.ScheduleURL),
		streams.NewM3USource(playlist),
		st,
		reconcile.New(
			registry.NewClient(app.RegistryURL, listCache, registry.WithRateLimit(app.RegistryRPS, 10)),
			app.NumberingConfig(),
		),
		groupHolder.Get,
	)

	watcherDone, err := watchGroups(ctx, app.GroupsFile, groupHolder, provider, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              app.ListenAddr,
		Handler:           api.NewServer(runner, provider).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", app.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go passLoop(ctx, runner, app.PassInterval, logger)

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	<-watcherDone
	return nil
}

func buildListCache(app config.App, logger zerolog.Logger) (cache.Cache, error) {
	if app.RedisAddr == "" {
		return cache.NewMemoryCache(time.Minute), nil
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     app.RedisAddr,
		Password: app.RedisPassword,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// passLoop triggers a pass on the configured interval. ErrPassInFlight
// means a manual trigger is still running; the tick is simply skipped.
func passLoop(ctx context.Context, runner *jobs.Runner, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := runner.Run(ctx); err != nil && !errors.Is(err, jobs.ErrPassInFlight) {
				logger.Error().Err(err).Msg("scheduled pass failed")
			}
		}
	}
}

// groupHolder hands the current groups configuration to the runner and
// swaps it atomically on reload.
type groupHolder struct {
	path string
	mu   sync.RWMutex
	cur  config.Groups
}

func newGroupHolder(path string) (*groupHolder, error) {
	g, err := config.LoadGroups(path)
	if err != nil {
		return nil, err
	}
	return &groupHolder{path: path, cur: g}, nil
}

func (h *groupHolder) Get() config.Groups {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

func (h *groupHolder) reload() error {
	g, err := config.LoadGroups(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cur = g
	h.mu.Unlock()
	return nil
}

// watchGroups reloads group config and invalidates the pattern cache
// when the groups file changes. A broken edit keeps the previous
// configuration running.
func watchGroups(ctx context.Context, path string, holder *groupHolder, provider *patterns.Provider, logger zerolog.Logger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	// Watch the directory: editors replace files, which drops a watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	done := make(chan struct{})
	target := filepath.Base(path)
	go func() {
		defer close(done)
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := holder.reload(); err != nil {
					logger.Error().Err(err).Msg("groups reload failed, keeping previous configuration")
					continue
				}
				provider.Invalidate()
				logger.Info().Str("file", path).Msg("groups reloaded, pattern cache invalidated")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("groups watcher error")
			}
		}
	}()
	return done, nil
}
