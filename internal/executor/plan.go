package executor

import (
	"context"
	"time"

	"github.com/kenyafarmiot/farmdb/internal/migration"
	"github.com/kenyafarmiot/farmdb/internal/tracker"
)

// Plan states.
const (
	StateApplied    = "applied"
	StatePending    = "pending"
	StateRolledBack = "rolled_back"
	StateModified   = "modified" // applied, but the body changed since
	StateMissing    = "missing"  // recorded, but absent from the source
)

// PlanEntry describes where one version stands against the bookkeeping table.
type PlanEntry struct {
	Version   string
	Name      string
	State     string
	AppliedAt time.Time
	HasDown   bool
}

// Summary counts plan entries by state.
type Summary struct {
	Applied int
	Pending int
	Other   int
}

// Plan reports the state of every migration without executing anything.
// Entries follow version order; recorded versions missing from the source
// are included so drift is visible.
func (e *Executor) Plan(ctx context.Context, migrations []migration.Migration) ([]PlanEntry, error) {
	if err := e.tracker.EnsureTable(ctx); err != nil {
		return nil, err
	}

	records, err := e.tracker.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return BuildPlan(migration.Sort(migrations), records), nil
}

// BuildPlan merges sorted migrations with bookkeeping records.
func BuildPlan(sorted []migration.Migration, records []tracker.AppliedMigration) []PlanEntry {
	byVersion := make(map[string]tracker.AppliedMigration, len(records))
	for _, r := range records {
		byVersion[r.Version] = r
	}

	entries := make([]PlanEntry, 0, len(sorted)+len(records))
	known := make(map[string]bool, len(sorted))

	for i := range sorted {
		m := &sorted[i]
		known[m.Version] = true

		entry := PlanEntry{Version: m.Version, Name: m.Name, State: StatePending, HasDown: m.HasDown()}

		if r, ok := byVersion[m.Version]; ok {
			entry.AppliedAt = r.AppliedAt

			switch {
			case r.Status == tracker.StatusRolledBack:
				entry.State = StateRolledBack
			case r.Checksum != "" && r.Checksum != m.Checksum:
				entry.State = StateModified
			default:
				entry.State = StateApplied
			}
		}

		entries = append(entries, entry)
	}

	for _, r := range records {
		if known[r.Version] || r.Status != tracker.StatusApplied {
			continue
		}

		entries = append(entries, PlanEntry{
			Version:   r.Version,
			Name:      r.Filename,
			State:     StateMissing,
			AppliedAt: r.AppliedAt,
		})
	}

	return entries
}

// Summarize counts entries by state.
func Summarize(entries []PlanEntry) Summary {
	var s Summary

	for _, e := range entries {
		switch e.State {
		case StateApplied:
			s.Applied++
		case StatePending, StateRolledBack:
			s.Pending++
		default:
			s.Other++
		}
	}

	return s
}
