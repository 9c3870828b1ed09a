package repository

import (
	"log"
	"time"

	"expense-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityRepository persists the processing event stream. Log is
// fire-and-forget: a write failure is logged and swallowed so it can never
// abort a run.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Log(sessionID uuid.UUID, activityType, message string) {
	activity := &models.ProcessingActivity{
		ID:           uuid.New(),
		SessionID:    sessionID,
		ActivityType: activityType,
		Message:      message,
		CreatedAt:    time.Now(),
	}
	if err := r.db.Create(activity).Error; err != nil {
		log.Printf("failed to log activity for session %s: %v", sessionID, err)
	}
}

// ListBySession returns the most recent activity entries, newest first.
func (r *ActivityRepository) ListBySession(sessionID uuid.UUID, limit int) ([]models.ProcessingActivity, error) {
	var activities []models.ProcessingActivity
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
