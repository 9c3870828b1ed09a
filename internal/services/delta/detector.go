package delta

import (
	"math"

	"expense-reconciliation-backend/internal/models"
	"expense-reconciliation-backend/internal/services/matching"
)

// Detector partitions a current snapshot into new/modified/unchanged records
// relative to a baseline snapshot, using the identity matcher to align records
// whose identity keys do not line up exactly.
type Detector struct {
	matcher                 *matching.Matcher
	amountThreshold         float64
	forceReprocessValidated bool
}

func NewDetector(matcher *matching.Matcher, amountThreshold float64, forceReprocessValidationIssues bool) *Detector {
	return &Detector{
		matcher:                 matcher,
		amountThreshold:         amountThreshold,
		forceReprocessValidated: forceReprocessValidationIssues,
	}
}

// Detect never mutates its inputs; it only reads both snapshots.
func (d *Detector) Detect(current, baseline []*models.EmployeeRecord) *ChangeSet {
	byKey := make(map[string]*models.EmployeeRecord, len(baseline))
	pool := make([]matching.Candidate, 0, len(baseline))
	for _, rec := range baseline {
		if _, ok := byKey[rec.IdentityKey]; !ok {
			byKey[rec.IdentityKey] = rec
		}
		pool = append(pool, matching.Candidate{
			Key:        rec.IdentityKey,
			Name:       rec.RawName,
			ExternalID: rec.ExternalID,
		})
	}

	cs := &ChangeSet{Total: len(current)}
	for _, rec := range current {
		base := byKey[rec.IdentityKey]
		if base == nil {
			if m := d.matcher.BestMatch(rec.RawName, rec.ExternalID, pool); m != nil {
				base = byKey[m.Key]
			}
		}

		if base == nil {
			cs.New++
			cs.Entries = append(cs.Entries, ChangeEntry{Kind: ChangeNew, Current: rec})
			continue
		}

		diffs := d.compareFields(rec, base)
		if len(diffs) == 0 {
			cs.Unchanged++
			cs.Entries = append(cs.Entries, ChangeEntry{Kind: ChangeUnchanged, Current: rec, Baseline: base})
			continue
		}
		cs.Modified++
		cs.Entries = append(cs.Entries, ChangeEntry{
			Kind:       ChangeModified,
			Current:    rec,
			Baseline:   base,
			FieldDiffs: diffs,
		})
	}

	if cs.Total > 0 {
		cs.ChangePercentage = 100 * float64(cs.New+cs.Modified) / float64(cs.Total)
	}
	return cs
}

func (d *Detector) compareFields(current, baseline *models.EmployeeRecord) map[string]FieldDiff {
	diffs := make(map[string]FieldDiff)

	// strictly greater than: a delta of exactly the threshold is tolerated
	if math.Abs(current.CardAmount-baseline.CardAmount) > d.amountThreshold {
		diffs["card_amount"] = FieldDiff{
			Old:   baseline.CardAmount,
			New:   current.CardAmount,
			Delta: current.CardAmount - baseline.CardAmount,
		}
	}
	if math.Abs(current.ReportAmount-baseline.ReportAmount) > d.amountThreshold {
		diffs["report_amount"] = FieldDiff{
			Old:   baseline.ReportAmount,
			New:   current.ReportAmount,
			Delta: current.ReportAmount - baseline.ReportAmount,
		}
	}

	// Previously flagged records get reprocessed even when the amounts agree,
	// so stale needs_attention rows never ride the copy-forward path.
	if d.forceReprocessValidated && baseline.ValidationStatus != models.ValidationValid {
		diffs["validation_status"] = FieldDiff{
			Old: baseline.ValidationStatus,
			New: current.ValidationStatus,
		}
	}

	return diffs
}
