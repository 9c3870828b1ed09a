package processing

import (
	"time"

	"github.com/google/uuid"
)

// Checkpoint is a progress snapshot emitted at chunk boundaries. Reporting
// only; a failed batch is rolled back wholesale, never resumed from here.
type Checkpoint struct {
	BatchNumber    int `json:"batch_number"`
	ProcessedCount int `json:"processed_count"`
	TotalCount     int `json:"total_count"`
}

type DeltaStats struct {
	BaseSessionID      uuid.UUID `json:"base_session_id"`
	ChangedEmployees   int       `json:"changed_employees"`
	UnchangedEmployees int       `json:"unchanged_employees"`
	ChangePercentage   float64   `json:"change_percentage"`
	OptimizationUsed   bool      `json:"optimization_used"`
}

type ProcessingResult struct {
	Success        bool          `json:"success"`
	ProcessingTime time.Duration `json:"processing_time"`
	ProcessedCount int           `json:"processed_count"`
	SkippedCount   int           `json:"skipped_count"`
	TotalEmployees int           `json:"total_employees"`
	Errors         []string      `json:"errors"`
	DeltaStats     *DeltaStats   `json:"delta_stats,omitempty"`
}
