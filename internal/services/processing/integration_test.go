package processing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"expense-reconciliation-backend/internal/config"
	"expense-reconciliation-backend/internal/models"
	"expense-reconciliation-backend/internal/repository"
	"expense-reconciliation-backend/internal/services/processing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) (*repository.SessionRepository, *repository.ActivityRepository, *processing.Processor) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.New())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ProcessingSession{},
		&models.EmployeeRecord{},
		&models.ProcessingActivity{},
	))

	opts := config.DefaultProcessingOptions()
	sessions := repository.NewSessionRepository(db, opts.BulkChunkSize)
	activities := repository.NewActivityRepository(db)
	return sessions, activities, processing.NewProcessor(sessions, activities, opts)
}

func createSession(t *testing.T, repo *repository.SessionRepository, baselineID *uuid.UUID) uuid.UUID {
	t.Helper()
	session := &models.ProcessingSession{
		ID:                uuid.New(),
		Status:            models.SessionPending,
		BaselineSessionID: baselineID,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, repo.CreateSession(context.Background(), session))
	return session.ID
}

// Runs two consecutive sessions end to end against a real database: the
// first processes everything, the second diffs against it and copies the
// unchanged employee forward.
func TestEngine_ConsecutiveSessions(t *testing.T) {
	sessions, _, processor := setup(t)
	ctx := context.Background()

	first := createSession(t, sessions, nil)
	result, err := processor.Process(ctx, first, []processing.ExtractedEmployee{
		{RawName: "Alice Cooper", CardAmount: 100, ReportAmount: 100},
		{RawName: "Bob Smith", CardAmount: 50, ReportAmount: 80},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Nil(t, result.DeltaStats)

	// Bob's totals disagreed, so he was flagged; that alone forces his
	// reprocessing next run even though his amounts did not move.
	firstRecords, err := sessions.GetRecords(ctx, first)
	require.NoError(t, err)
	require.Len(t, firstRecords, 2)

	second := createSession(t, sessions, &first)
	result, err = processor.Process(ctx, second, []processing.ExtractedEmployee{
		{RawName: "Alice Cooper", CardAmount: 100, ReportAmount: 100},
		{RawName: "Bob Smith", CardAmount: 50, ReportAmount: 80},
		{RawName: "Carol Danvers", CardAmount: 75, ReportAmount: 75},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.DeltaStats)
	assert.Equal(t, first, result.DeltaStats.BaseSessionID)
	assert.Equal(t, 2, result.DeltaStats.ChangedEmployees)
	assert.Equal(t, 1, result.DeltaStats.UnchangedEmployees)
	assert.True(t, result.DeltaStats.OptimizationUsed)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.SkippedCount)

	secondRecords, err := sessions.GetRecords(ctx, second)
	require.NoError(t, err)
	require.Len(t, secondRecords, 3)

	var aliceCopied bool
	for _, rec := range secondRecords {
		if rec.RawName == "Alice Cooper" {
			aliceCopied = rec.CopiedFromBaseline
		}
	}
	assert.True(t, aliceCopied, "unchanged employee must ride the copy path")

	got, err := sessions.GetSession(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, 3, got.ProcessedEmployees)
}

// A renamed-but-same employee (concatenated extraction artifact) still
// aligns to the baseline through the fuzzy matcher.
func TestEngine_FuzzyAlignmentAcrossRuns(t *testing.T) {
	sessions, _, processor := setup(t)
	ctx := context.Background()

	first := createSession(t, sessions, nil)
	_, err := processor.Process(ctx, first, []processing.ExtractedEmployee{
		{RawName: "William Burt", CardAmount: 200, ReportAmount: 200},
	})
	require.NoError(t, err)

	second := createSession(t, sessions, &first)
	result, err := processor.Process(ctx, second, []processing.ExtractedEmployee{
		{RawName: "WILLIAMBURT", EmployeeID: "E-77", CardAmount: 200, ReportAmount: 200},
	})
	require.NoError(t, err)

	require.NotNil(t, result.DeltaStats)
	assert.Equal(t, 1, result.DeltaStats.UnchangedEmployees)
	assert.Equal(t, 0, result.DeltaStats.ChangedEmployees)
}

func TestEngine_ActivityFeed(t *testing.T) {
	sessions, activities, processor := setup(t)
	ctx := context.Background()

	id := createSession(t, sessions, nil)
	_, err := processor.Process(ctx, id, []processing.ExtractedEmployee{
		{RawName: "Alice Cooper", CardAmount: 100, ReportAmount: 100},
	})
	require.NoError(t, err)

	feed, err := activities.ListBySession(id, 100)
	require.NoError(t, err)

	var types []string
	for _, a := range feed {
		types = append(types, a.ActivityType)
	}
	assert.Contains(t, types, "processing_started")
	assert.Contains(t, types, "processing_completed")
}
