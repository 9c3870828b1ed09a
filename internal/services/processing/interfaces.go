package processing

import (
	"context"
	"errors"

	"expense-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrProcessingInProgress means another operation holds the session lock.
	ErrProcessingInProgress = errors.New("processing already in progress for this session")
	// ErrSessionNotFound means the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoActiveRun means pause/resume/cancel was requested for a session
	// with no in-flight processing operation.
	ErrNoActiveRun = errors.New("no active processing run for this session")
)

// SessionRepository is the persistence boundary of the engine. The gorm
// implementation lives in internal/repository.
type SessionRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.ProcessingSession, error)
	UpdateSession(ctx context.Context, session *models.ProcessingSession) error
	GetRecords(ctx context.Context, sessionID uuid.UUID) ([]*models.EmployeeRecord, error)
	Begin(ctx context.Context) (RecordTx, error)
}

// RecordTx scopes record writes to one transaction. Commit or Rollback must
// be called exactly once.
type RecordTx interface {
	BulkInsert(records []*models.EmployeeRecord) error
	Commit() error
	Rollback() error
}

// ActivityLogger receives the progress/event stream. Implementations must be
// fire-and-forget: a failed log never aborts processing.
type ActivityLogger interface {
	Log(sessionID uuid.UUID, activityType, message string)
}

// ExtractedEmployee is one already-parsed entity from the extraction
// collaborator: a name, an optional employee id, and the totals from the two
// source documents.
type ExtractedEmployee struct {
	EmployeeID   string                 `json:"employee_id"`
	RawName      string                 `json:"name"`
	CardAmount   float64                `json:"card_amount"`
	ReportAmount float64                `json:"report_amount"`
	Metadata     map[string]interface{} `json:"metadata"`
}
