// SPDX-License-Identifier: MIT

// Package store is the SQLite persistence layer: managed channels,
// sort priorities, manual number pins and user detection patterns.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sportarr/sportarr/internal/lifecycle"
	"github.com/sportarr/sportarr/internal/patterns"
	"github.com/sportarr/sportarr/internal/persistence/sqlite"
	"github.com/sportarr/sportarr/internal/reconcile"
)

const schemaVersion = 1

// Store wraps the SQLite database.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) migrate() error {
	var current int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		ref TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_channels_group ON channels(group_id);

	CREATE TABLE IF NOT EXISTS sort_priorities (
		sport TEXT NOT NULL,
		league TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL,
		PRIMARY KEY (sport, league)
	);

	CREATE TABLE IF NOT EXISTS number_pins (
		channel_ref TEXT PRIMARY KEY,
		number INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS detection_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		expr TEXT NOT NULL,
		is_regex BOOLEAN NOT NULL DEFAULT 0,
		target TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_patterns_kind ON detection_patterns(kind);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveChannels replaces a group's channel set atomically. Channels are
// stored as JSON payloads; the group and ref columns exist for lookup.
func (s *Store) SaveChannels(ctx context.Context, groupID string, chans []lifecycle.Channel) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE group_id = ?`, groupID); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, ch := range chans {
		buf, err := json.Marshal(ch)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (ref, group_id, payload, updated_at) VALUES (?, ?, ?, ?)`,
			ch.Ref, groupID, string(buf), now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Channels returns a group's stored channel set.
func (s *Store) Channels(ctx context.Context, groupID string) ([]lifecycle.Channel, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT payload FROM channels WHERE group_id = ? ORDER BY ref`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lifecycle.Channel
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ch lifecycle.Channel
		if err := json.Unmarshal([]byte(payload), &ch); err != nil {
			return nil, fmt.Errorf("store: corrupt channel payload: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SortPriorities returns all configured ordering entries.
func (s *Store) SortPriorities(ctx context.Context) ([]reconcile.SortPriority, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT sport, league, priority FROM sort_priorities ORDER BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.SortPriority
	for rows.Next() {
		var p reconcile.SortPriority
		if err := rows.Scan(&p.Sport, &p.League, &p.Priority); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetSortPriority upserts one ordering entry.
func (s *Store) SetSortPriority(ctx context.Context, p reconcile.SortPriority) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sort_priorities (sport, league, priority) VALUES (?, ?, ?)
		ON CONFLICT(sport, league) DO UPDATE SET priority = excluded.priority`,
		p.Sport, p.League, p.Priority)
	return err
}

// Pins returns all manual number pins, keyed by channel ref.
func (s *Store) Pins(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT channel_ref, number FROM number_pins`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var ref string
		var n int
		if err := rows.Scan(&ref, &n); err != nil {
			return nil, err
		}
		out[ref] = n
	}
	return out, rows.Err()
}

// SetPin pins a channel to a fixed number.
func (s *Store) SetPin(ctx context.Context, channelRef string, number int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO number_pins (channel_ref, number) VALUES (?, ?)
		ON CONFLICT(channel_ref) DO UPDATE SET number = excluded.number`,
		channelRef, number)
	return err
}

// RemovePin frees a pinned number.
func (s *Store) RemovePin(ctx context.Context, channelRef string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM number_pins WHERE channel_ref = ?`, channelRef)
	return err
}

// AddPattern stores one user detection pattern.
func (s *Store) AddPattern(ctx context.Context, kind patterns.Kind, raw patterns.Raw) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO detection_patterns (kind, expr, is_regex, target, priority)
		VALUES (?, ?, ?, ?, ?)`,
		string(kind), raw.Expr, raw.IsRegex, raw.Target, raw.Priority)
	return err
}

// DeletePattern removes a user detection pattern by id.
func (s *Store) DeletePattern(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM detection_patterns WHERE id = ?`, id)
	return err
}

// Load implements patterns.Source: user patterns stored in the
// database shadow the built-in defaults.
func (s *Store) Load(ctx context.Context, kind patterns.Kind) ([]patterns.Raw, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT expr, is_regex, target, priority FROM detection_patterns
		WHERE kind = ? ORDER BY priority, id`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []patterns.Raw
	for rows.Next() {
		var r patterns.Raw
		if err := rows.Scan(&r.Expr, &r.IsRegex, &r.Target, &r.Priority); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
