// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/sportarr/sportarr/internal/log"
	"github.com/sportarr/sportarr/internal/match"
	"github.com/sportarr/sportarr/internal/sched"
)

// exportedMatch is one entry of the matches export: the match record
// joined with its event, for the EPG exporter downstream.
type exportedMatch struct {
	Record *match.Record `json:"record"`
	Event  *sched.Event  `json:"event,omitempty"`
}

// export writes the pass report and the match/event pairs. Writes are
// atomic, so a reader never observes a half-written export even if
// the daemon dies mid-pass.
func (r *Runner) export(ctx context.Context, winners []*match.Record, events map[string]sched.Event, status *Status) error {
	matches := make([]exportedMatch, 0, len(winners))
	for _, rec := range winners {
		m := exportedMatch{Record: rec}
		if ev, ok := events[rec.EventID]; ok {
			m.Event = &ev
		}
		matches = append(matches, m)
	}

	if err := writeJSON(ctx, filepath.Join(r.app.ExportDir, "matches.json"), matches); err != nil {
		return err
	}
	return writeJSON(ctx, filepath.Join(r.app.ExportDir, "report.json"), status)
}

func writeJSON(ctx context.Context, path string, v any) error {
	logger := log.WithComponentFromContext(ctx, "jobs")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending export file")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
