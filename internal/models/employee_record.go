package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Validation statuses for an EmployeeRecord.
const (
	ValidationValid          = "valid"
	ValidationNeedsAttention = "needs_attention"
	ValidationResolved       = "resolved"
)

type EmployeeRecord struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID          uuid.UUID `gorm:"index"`
	IdentityKey        string    `gorm:"index"`
	RawName            string
	ExternalID         string  `gorm:"index"`
	CardAmount         float64 // total from the card statement
	ReportAmount       float64 // total from the expense report
	ValidationStatus   string  `gorm:"index"`
	ValidationNotes    string
	SourceMetadata     datatypes.JSON
	CopiedFromBaseline bool
	CreatedAt          time.Time
}
