package models

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingActivity struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID `gorm:"index"`
	ActivityType string
	Message      string
	CreatedAt    time.Time
}
