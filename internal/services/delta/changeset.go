package delta

import (
	"expense-reconciliation-backend/internal/models"
)

type ChangeKind int

const (
	ChangeNew ChangeKind = iota
	ChangeModified
	ChangeUnchanged
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangeModified:
		return "modified"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// FieldDiff records one differing field between a current record and its
// baseline counterpart. Delta is only meaningful for numeric fields.
type FieldDiff struct {
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
	Delta float64     `json:"delta,omitempty"`
}

type ChangeEntry struct {
	Kind       ChangeKind
	Current    *models.EmployeeRecord
	Baseline   *models.EmployeeRecord
	FieldDiffs map[string]FieldDiff
}

// ChangeSet partitions a current snapshot against a baseline. Every current
// record appears in exactly one entry.
type ChangeSet struct {
	Entries          []ChangeEntry
	Total            int
	New              int
	Modified         int
	Unchanged        int
	ChangePercentage float64
}

func (cs *ChangeSet) Changed() int {
	return cs.New + cs.Modified
}

// ToProcess returns the current records that need reprocessing (new plus
// modified), in snapshot order.
func (cs *ChangeSet) ToProcess() []*models.EmployeeRecord {
	out := make([]*models.EmployeeRecord, 0, cs.Changed())
	for _, e := range cs.Entries {
		switch e.Kind {
		case ChangeNew, ChangeModified:
			out = append(out, e.Current)
		case ChangeUnchanged:
		}
	}
	return out
}

// UnchangedEntries returns the entries eligible for the bulk-copy path.
func (cs *ChangeSet) UnchangedEntries() []ChangeEntry {
	out := make([]ChangeEntry, 0, cs.Unchanged)
	for _, e := range cs.Entries {
		if e.Kind == ChangeUnchanged {
			out = append(out, e)
		}
	}
	return out
}
