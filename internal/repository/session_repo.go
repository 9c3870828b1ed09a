package repository

import (
	"context"
	"errors"

	"expense-reconciliation-backend/internal/models"
	"expense-reconciliation-backend/internal/services/processing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository is the gorm implementation of the engine's persistence
// boundary.
type SessionRepository struct {
	db        *gorm.DB
	chunkSize int
}

func NewSessionRepository(db *gorm.DB, chunkSize int) *SessionRepository {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &SessionRepository{db: db, chunkSize: chunkSize}
}

// Expose DB if needed
func (r *SessionRepository) DB() *gorm.DB {
	return r.db
}

func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.ProcessingSession, error) {
	var session models.ProcessingSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, processing.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *models.ProcessingSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *SessionRepository) UpdateSession(ctx context.Context, session *models.ProcessingSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// GetRecords returns the full snapshot for a session in insertion order.
func (r *SessionRepository) GetRecords(ctx context.Context, sessionID uuid.UUID) ([]*models.EmployeeRecord, error) {
	var records []*models.EmployeeRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

// ListRecords pages through a session's records for the API.
func (r *SessionRepository) ListRecords(ctx context.Context, sessionID uuid.UUID, status, cursor string, limit int) ([]models.EmployeeRecord, string, bool) {
	var records []models.EmployeeRecord
	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("validation_status = ?", status)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	query.Find(&records)

	hasMore := false
	var nextCursor string
	if len(records) > limit {
		hasMore = true
		nextCursor = records[limit-1].ID.String()
		records = records[:limit]
	}
	return records, nextCursor, hasMore
}

// Begin opens the transaction all record writes for one run go through.
func (r *SessionRepository) Begin(ctx context.Context) (processing.RecordTx, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &recordTx{tx: tx, chunkSize: r.chunkSize}, nil
}

type recordTx struct {
	tx        *gorm.DB
	chunkSize int
}

func (t *recordTx) BulkInsert(records []*models.EmployeeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return t.tx.CreateInBatches(records, t.chunkSize).Error
}

func (t *recordTx) Commit() error {
	return t.tx.Commit().Error
}

func (t *recordTx) Rollback() error {
	return t.tx.Rollback().Error
}
