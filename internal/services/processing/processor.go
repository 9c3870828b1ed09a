package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"time"

	"expense-reconciliation-backend/internal/config"
	"expense-reconciliation-backend/internal/models"
	"expense-reconciliation-backend/internal/services/delta"
	"expense-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	progressInterval = 10 // emit a progress checkpoint every N reprocessed records
	gcChunkInterval  = 4
	largeCopyCount   = 5000
)

// Processor orchestrates one delta-aware processing run per session: acquire
// the session guard, detect changes against the baseline, bulk-copy unchanged
// records, reprocess the rest in chunks, commit or roll back.
type Processor struct {
	repo        SessionRepository
	activity    ActivityLogger
	guard       *SessionGuard
	matcher     *matching.Matcher
	detector    *delta.Detector
	opts        config.ProcessingOptions
	controllers sync.Map // uuid.UUID -> *Controller
}

func NewProcessor(repo SessionRepository, activity ActivityLogger, opts config.ProcessingOptions) *Processor {
	matcher := matching.NewMatcher(opts.SimilarityThreshold)
	return &Processor{
		repo:     repo,
		activity: activity,
		guard:    NewSessionGuard(),
		matcher:  matcher,
		detector: delta.NewDetector(matcher, opts.AmountChangeThreshold, opts.ForceReprocessValidationIssues),
		opts:     opts,
	}
}

// Active reports whether a run is currently in flight for the session.
func (p *Processor) Active(sessionID uuid.UUID) bool {
	_, ok := p.controllers.Load(sessionID)
	return ok
}

// Pause requests a cooperative pause of the session's in-flight run.
func (p *Processor) Pause(sessionID uuid.UUID) error {
	ctrl, ok := p.controllers.Load(sessionID)
	if !ok {
		return ErrNoActiveRun
	}
	ctrl.(*Controller).Pause()
	return nil
}

// Resume lets a paused run continue with the next unprocessed record.
func (p *Processor) Resume(sessionID uuid.UUID) error {
	ctrl, ok := p.controllers.Load(sessionID)
	if !ok {
		return ErrNoActiveRun
	}
	ctrl.(*Controller).Resume()
	return nil
}

// Cancel requests a cooperative cancel; the run stops before its next record.
func (p *Processor) Cancel(sessionID uuid.UUID) error {
	ctrl, ok := p.controllers.Load(sessionID)
	if !ok {
		return ErrNoActiveRun
	}
	ctrl.(*Controller).Cancel()
	return nil
}

// Process runs the full pipeline for one session. Contention and missing
// sessions surface before any mutation; storage errors roll back every record
// written for the run.
func (p *Processor) Process(ctx context.Context, sessionID uuid.UUID, extracted []ExtractedEmployee) (*ProcessingResult, error) {
	start := time.Now()

	// 1. Non-blocking guard acquire: concurrent runs for the same session
	// fail immediately instead of queuing.
	if !p.guard.Acquire(sessionID) {
		return nil, ErrProcessingInProgress
	}
	defer p.guard.Release(sessionID)

	session, err := p.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ctrl := NewController()
	p.controllers.Store(sessionID, ctrl)
	defer p.controllers.Delete(sessionID)

	current := p.buildRecords(sessionID, extracted)

	now := time.Now()
	session.Status = models.SessionProcessing
	session.TotalEmployees = len(current)
	session.ProcessedEmployees = 0
	session.StartedAt = &now
	if err := p.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	p.activity.Log(sessionID, "processing_started", fmt.Sprintf("processing %d employees", len(current)))

	// 2. Change detection against the baseline session, when one exists and
	// delta processing is enabled.
	var changeSet *delta.ChangeSet
	if session.BaselineSessionID != nil && p.opts.EnableDeltaProcessing {
		changeSet, err = p.detectChanges(ctx, session, current)
		if err != nil {
			p.failSession(ctx, session, err)
			return nil, err
		}
	}

	// 3. Skip-unchanged gate: a near-empty changed set usually means the
	// extraction went wrong, so an overwhelmingly unchanged snapshot is
	// reprocessed in full instead.
	toProcess := current
	optimizationUsed := false
	if changeSet != nil && p.opts.SkipUnchangedEmployees && changeSet.Total > 0 {
		skipRatio := float64(changeSet.Unchanged) / float64(changeSet.Total)
		if skipRatio <= p.opts.MaxUnchangedSkipPercentage {
			optimizationUsed = true
			toProcess = changeSet.ToProcess()
		} else {
			log.Printf("session %s: unchanged ratio %.2f exceeds %.2f, reprocessing all records",
				sessionID, skipRatio, p.opts.MaxUnchangedSkipPercentage)
		}
	}

	result := &ProcessingResult{TotalEmployees: len(current)}
	if changeSet != nil {
		result.DeltaStats = &DeltaStats{
			BaseSessionID:      *session.BaselineSessionID,
			ChangedEmployees:   changeSet.Changed(),
			UnchangedEmployees: changeSet.Unchanged,
			ChangePercentage:   changeSet.ChangePercentage,
			OptimizationUsed:   optimizationUsed,
		}
	}

	// 4. Apply inside one transaction: bulk copy first, then the reprocess
	// loop. Errors roll back both phases.
	tx, err := p.repo.Begin(ctx)
	if err != nil {
		p.failSession(ctx, session, err)
		return nil, err
	}

	copied := 0
	if optimizationUsed {
		copied, err = p.copyUnchanged(tx, sessionID, changeSet)
		if err != nil {
			tx.Rollback()
			p.failSession(ctx, session, err)
			return nil, err
		}
		p.activity.Log(sessionID, "bulk_copy", fmt.Sprintf("copied %d unchanged employees from baseline", copied))
	}

	processed, recordErrs, cancelled, err := p.reprocess(ctx, ctrl, tx, session, toProcess, copied)
	if err != nil {
		tx.Rollback()
		p.failSession(ctx, session, err)
		return nil, err
	}

	// Cancellation commits what was already applied; only errors discard work.
	if err := tx.Commit(); err != nil {
		p.failSession(ctx, session, err)
		return nil, err
	}

	done := time.Now()
	session.ProcessedEmployees = processed + copied
	session.CompletedAt = &done
	if cancelled {
		session.Status = models.SessionCancelled
		recordErrs = append(recordErrs, "processing cancelled by request")
		p.activity.Log(sessionID, "processing_cancelled", fmt.Sprintf("cancelled after %d of %d records", processed, len(toProcess)))
	} else {
		session.Status = models.SessionCompleted
		p.activity.Log(sessionID, "processing_completed",
			fmt.Sprintf("reprocessed %d, copied %d, %d errors", processed, copied, len(recordErrs)))
	}
	if err := p.repo.UpdateSession(ctx, session); err != nil {
		// records are already committed; losing the status update is not
		// worth failing the run over
		log.Printf("session %s: final status update failed: %v", sessionID, err)
	}

	result.Success = !cancelled
	result.ProcessedCount = processed
	result.SkippedCount = copied
	result.Errors = recordErrs
	result.ProcessingTime = time.Since(start)
	return result, nil
}

// detectChanges loads the baseline snapshot and diffs the current snapshot
// against it. A missing baseline session degrades to full reprocessing with a
// warning rather than failing the run.
func (p *Processor) detectChanges(ctx context.Context, session *models.ProcessingSession, current []*models.EmployeeRecord) (*delta.ChangeSet, error) {
	baselineID := *session.BaselineSessionID
	if _, err := p.repo.GetSession(ctx, baselineID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			log.Printf("session %s: baseline session %s not found, reprocessing all records", session.ID, baselineID)
			p.activity.Log(session.ID, "warning", "baseline session not found, delta processing skipped")
			return nil, nil
		}
		return nil, err
	}

	baseline, err := p.repo.GetRecords(ctx, baselineID)
	if err != nil {
		return nil, err
	}

	cs := p.detector.Detect(current, baseline)
	p.activity.Log(session.ID, "delta_detected",
		fmt.Sprintf("%d new, %d modified, %d unchanged (%.1f%% changed)", cs.New, cs.Modified, cs.Unchanged, cs.ChangePercentage))
	return cs, nil
}

// copyUnchanged writes baseline copies for the unchanged identity set in
// fixed-size chunks. The baseline rows were already resolved in one batched
// read by detectChanges.
func (p *Processor) copyUnchanged(tx RecordTx, sessionID uuid.UUID, cs *delta.ChangeSet) (int, error) {
	entries := cs.UnchangedEntries()
	copies := make([]*models.EmployeeRecord, 0, len(entries))
	for _, e := range entries {
		copies = append(copies, p.copyFromBaseline(sessionID, e.Baseline))
	}

	chunk := p.opts.BulkChunkSize
	for i, batch := 0, 0; i < len(copies); i += chunk {
		end := min(i+chunk, len(copies))
		if err := tx.BulkInsert(copies[i:end]); err != nil {
			return 0, err
		}
		batch++
		// nudge the collector on very large copy sets
		if batch%gcChunkInterval == 0 && len(copies) > largeCopyCount {
			runtime.GC()
		}
	}
	return len(copies), nil
}

// reprocess validates changed and new records one at a time, batching the
// writes. Pause and cancel take effect only between records. Per-record
// failures are collected and the loop continues.
func (p *Processor) reprocess(ctx context.Context, ctrl *Controller, tx RecordTx, session *models.ProcessingSession, records []*models.EmployeeRecord, copied int) (int, []string, bool, error) {
	var errs []string
	processed := 0
	pending := make([]*models.EmployeeRecord, 0, p.opts.BulkChunkSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := tx.BulkInsert(pending); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	cancelled := false
	for _, rec := range records {
		if ctrl.Cancelled() || ctx.Err() != nil {
			cancelled = true
			break
		}
		if ctrl.Paused() {
			session.Status = models.SessionPaused
			if err := p.repo.UpdateSession(ctx, session); err != nil {
				return processed, errs, false, err
			}
			p.activity.Log(session.ID, "processing_paused", fmt.Sprintf("paused after %d records", processed))
			if !ctrl.wait(ctx) {
				cancelled = true
				break
			}
			session.Status = models.SessionProcessing
			if err := p.repo.UpdateSession(ctx, session); err != nil {
				return processed, errs, false, err
			}
			p.activity.Log(session.ID, "processing_resumed", "resuming reprocessing")
		}

		if err := p.processRecord(rec); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", rec.RawName, err))
			p.activity.Log(session.ID, "record_error", fmt.Sprintf("%s: %v", rec.RawName, err))
			continue
		}
		pending = append(pending, rec)
		processed++

		if len(pending) >= p.opts.BulkChunkSize {
			if err := flush(); err != nil {
				return processed, errs, false, err
			}
		}
		if processed%progressInterval == 0 {
			p.emitCheckpoint(ctx, session, copied+processed)
		}
	}

	if err := flush(); err != nil {
		return processed, errs, false, err
	}
	return processed, errs, cancelled, nil
}

func (p *Processor) emitCheckpoint(ctx context.Context, session *models.ProcessingSession, processedCount int) {
	session.ProcessedEmployees = processedCount
	if err := p.repo.UpdateSession(ctx, session); err != nil {
		log.Printf("session %s: progress update failed: %v", session.ID, err)
	}
	cp := Checkpoint{
		BatchNumber:    processedCount / progressInterval,
		ProcessedCount: processedCount,
		TotalCount:     session.TotalEmployees,
	}
	msg, _ := json.Marshal(cp)
	p.activity.Log(session.ID, "progress", string(msg))
}

// processRecord validates the two source amounts against each other. This is
// the per-record work the delta optimization avoids for unchanged employees.
func (p *Processor) processRecord(rec *models.EmployeeRecord) error {
	if rec.RawName == "" && rec.ExternalID == "" {
		return errors.New("record has no name or employee id")
	}
	diff := rec.CardAmount - rec.ReportAmount
	if math.Abs(diff) <= p.opts.AmountChangeThreshold {
		rec.ValidationStatus = models.ValidationValid
		rec.ValidationNotes = ""
	} else {
		rec.ValidationStatus = models.ValidationNeedsAttention
		rec.ValidationNotes = fmt.Sprintf("card and report totals differ by %.2f", diff)
	}
	return nil
}

func (p *Processor) buildRecords(sessionID uuid.UUID, extracted []ExtractedEmployee) []*models.EmployeeRecord {
	records := make([]*models.EmployeeRecord, 0, len(extracted))
	for _, e := range extracted {
		key := e.EmployeeID
		if key == "" {
			key = p.matcher.Normalize(e.RawName)
		}
		var meta []byte
		if len(e.Metadata) > 0 {
			meta, _ = json.Marshal(e.Metadata)
		}
		records = append(records, &models.EmployeeRecord{
			ID:               uuid.New(),
			SessionID:        sessionID,
			IdentityKey:      key,
			RawName:          e.RawName,
			ExternalID:       e.EmployeeID,
			CardAmount:       e.CardAmount,
			ReportAmount:     e.ReportAmount,
			ValidationStatus: models.ValidationValid,
			SourceMetadata:   datatypes.JSON(meta),
			CreatedAt:        time.Now(),
		})
	}
	return records
}

func (p *Processor) copyFromBaseline(sessionID uuid.UUID, baseline *models.EmployeeRecord) *models.EmployeeRecord {
	meta, _ := json.Marshal(map[string]interface{}{
		"copied_from_baseline": true,
		"baseline_record_id":   baseline.ID.String(),
		"note":                 "copied from baseline, unchanged",
	})
	return &models.EmployeeRecord{
		ID:                 uuid.New(),
		SessionID:          sessionID,
		IdentityKey:        baseline.IdentityKey,
		RawName:            baseline.RawName,
		ExternalID:         baseline.ExternalID,
		CardAmount:         baseline.CardAmount,
		ReportAmount:       baseline.ReportAmount,
		ValidationStatus:   baseline.ValidationStatus,
		ValidationNotes:    baseline.ValidationNotes,
		SourceMetadata:     datatypes.JSON(meta),
		CopiedFromBaseline: true,
		CreatedAt:          time.Now(),
	}
}

// failSession is the best-effort terminal update after a storage error; even
// this update failing only gets logged.
func (p *Processor) failSession(ctx context.Context, session *models.ProcessingSession, cause error) {
	done := time.Now()
	session.Status = models.SessionFailed
	session.ErrorMessage = cause.Error()
	session.CompletedAt = &done
	if err := p.repo.UpdateSession(ctx, session); err != nil {
		log.Printf("session %s: failed to mark session failed: %v", session.ID, err)
	}
	p.activity.Log(session.ID, "processing_failed", cause.Error())
}
