package models

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses. completed, failed and cancelled are terminal.
const (
	SessionPending    = "pending"
	SessionProcessing = "processing"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
	SessionCancelled  = "cancelled"
	SessionPaused     = "paused"
)

type ProcessingSession struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status             string    `gorm:"index"`
	TotalEmployees     int
	ProcessedEmployees int
	BaselineSessionID  *uuid.UUID
	ErrorMessage       string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
}
