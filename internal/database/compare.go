package database

import (
	"github.com/nao1215/bilicrawl/internal/model"
)

// RecordChange is a record present in both runs whose content differs.
type RecordChange struct {
	Key string
	Old model.SearchRecord
	New model.SearchRecord
}

// ChangedColumns returns the names of the columns that differ.
func (c RecordChange) ChangedColumns() []string {
	names := model.ColumnNames()
	oldCols := c.Old.Columns()
	newCols := c.New.Columns()

	changed := make([]string, 0)
	for i := range names {
		if oldCols[i] != newCols[i] {
			changed = append(changed, names[i])
		}
	}
	return changed
}

// RunDiff is the difference between two record sets.
type RunDiff struct {
	// Added holds records only in the newer run, in its order.
	Added []model.SearchRecord

	// Removed holds records only in the older run, in its order.
	Removed []model.SearchRecord

	// Changed holds records whose fingerprint differs, in newer-run order.
	Changed []RecordChange

	// Unchanged counts records identical in both runs.
	Unchanged int
}

// HasChanges reports whether the runs differ.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// CompareRuns compares the records of an older and a newer run. Records
// are matched by dedupe key and compared by fingerprint; records without
// a key are ignored.
func CompareRuns(older, newer []model.SearchRecord) *RunDiff {
	diff := &RunDiff{
		Added:   make([]model.SearchRecord, 0),
		Removed: make([]model.SearchRecord, 0),
		Changed: make([]RecordChange, 0),
	}

	oldByKey := make(map[string]model.SearchRecord, len(older))
	for _, r := range older {
		if key := r.DedupeKey(); key != "" {
			oldByKey[key] = r
		}
	}

	seen := make(map[string]bool, len(newer))
	for _, r := range newer {
		key := r.DedupeKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		prev, ok := oldByKey[key]
		switch {
		case !ok:
			diff.Added = append(diff.Added, r)
		case prev.Fingerprint() != r.Fingerprint():
			diff.Changed = append(diff.Changed, RecordChange{Key: key, Old: prev, New: r})
		default:
			diff.Unchanged++
		}
	}

	removed := make(map[string]bool)
	for _, r := range older {
		key := r.DedupeKey()
		if key == "" || seen[key] || removed[key] {
			continue
		}
		removed[key] = true
		diff.Removed = append(diff.Removed, oldByKey[key])
	}

	return diff
}
