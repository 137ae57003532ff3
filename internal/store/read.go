package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/dexbench/internal/bisect"
)

// RecentSearches returns the newest completed searches, most recent first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, build, app, version, type,
		       not_working, working, range_size, attempts, created_at
		FROM searches
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read searches: %w", err)
	}
	defer rows.Close()

	var recs []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var createdAt string
		if err := rows.Scan(
			&rec.ID,
			&rec.Target.Tool,
			&rec.Target.Build,
			&rec.Target.App,
			&rec.Target.Version,
			&rec.Target.Type,
			&rec.Interval.NotWorking,
			&rec.Interval.Working,
			&rec.RangeSize,
			&rec.Attempts,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RunsForTarget returns the attempt history for one target, most recent
// first.
func (s *Store) RunsForTarget(ctx context.Context, target Target, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ceiling_mb, status, exit_code, wall_ms, peak_rss
		FROM runs
		WHERE tool = ? AND build = ? AND app = ? AND version = ? AND type = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, target.Tool, target.Build, target.App, target.Version, target.Type, limit)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		rec := RunRecord{Target: target}
		var status string
		var wallMS int64
		if err := rows.Scan(&rec.ID, &rec.CeilingMB, &status, &rec.ExitCode, &wallMS, &rec.PeakRSS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		parsed, err := bisect.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", rec.ID, err)
		}
		rec.Status = parsed
		rec.Wall = time.Duration(wallMS) * time.Millisecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
