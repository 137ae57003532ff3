package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dexbench/internal/bisect"
)

// Target identifies what was compiled and with what.
type Target struct {
	Tool    string
	Build   string
	App     string
	Version string
	Type    string
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s %s %s %s", t.Tool, t.Build, t.App, t.Version, t.Type)
}

// RunRecord is one compiler attempt.
type RunRecord struct {
	ID        string
	Target    Target
	CeilingMB int
	Status    bisect.Status
	ExitCode  int
	Wall      time.Duration
	PeakRSS   int64
}

// SearchRecord is one completed minimum-Xmx search.
type SearchRecord struct {
	ID        string
	Target    Target
	Interval  bisect.Interval
	RangeSize int
	Attempts  int
	CreatedAt time.Time
}

// WriteRun inserts one attempt record. The record's ID is generated when
// empty; the stored ID is returned.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, tool, build, app, version, type, ceiling_mb, status, exit_code, wall_ms, peak_rss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Target.Tool,
		rec.Target.Build,
		rec.Target.App,
		rec.Target.Version,
		rec.Target.Type,
		rec.CeilingMB,
		rec.Status.String(),
		rec.ExitCode,
		rec.Wall.Milliseconds(),
		rec.PeakRSS,
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	return rec.ID, nil
}

// WriteSearch inserts one completed search result.
func (s *Store) WriteSearch(ctx context.Context, rec SearchRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches
		(id, tool, build, app, version, type, not_working, working, range_size, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Target.Tool,
		rec.Target.Build,
		rec.Target.App,
		rec.Target.Version,
		rec.Target.Type,
		rec.Interval.NotWorking,
		rec.Interval.Working,
		rec.RangeSize,
		rec.Attempts,
	)
	if err != nil {
		return "", fmt.Errorf("write search: %w", err)
	}
	return rec.ID, nil
}
