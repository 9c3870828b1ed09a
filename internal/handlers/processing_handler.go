package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"expense-reconciliation-backend/internal/models"
	"expense-reconciliation-backend/internal/repository"
	"expense-reconciliation-backend/internal/services/processing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProcessingHandler struct {
	processor    *processing.Processor
	sessionRepo  *repository.SessionRepository
	activityRepo *repository.ActivityRepository
}

func NewProcessingHandler(p *processing.Processor, sessions *repository.SessionRepository, activities *repository.ActivityRepository) *ProcessingHandler {
	return &ProcessingHandler{processor: p, sessionRepo: sessions, activityRepo: activities}
}

// CreateSession registers a new processing session, optionally referencing a
// baseline session to diff against.
func (h *ProcessingHandler) CreateSession(c *gin.Context) {
	var payload struct {
		BaselineSessionID string `json:"baseline_session_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	session := &models.ProcessingSession{
		ID:        uuid.New(),
		Status:    models.SessionPending,
		CreatedAt: time.Now(),
	}
	if payload.BaselineSessionID != "" {
		baselineID, err := uuid.Parse(payload.BaselineSessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid baseline session ID"})
			return
		}
		session.BaselineSessionID = &baselineID
	}

	if err := h.sessionRepo.CreateSession(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// StartProcessing accepts the extraction result for a session and kicks off
// processing in the background.
func (h *ProcessingHandler) StartProcessing(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	var payload struct {
		Employees []processing.ExtractedEmployee `json:"employees"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	// Fail fast on contention and missing sessions before going async. The
	// guard inside Process stays authoritative; this check just gives the
	// caller a synchronous 409.
	if h.processor.Active(sessionID) {
		c.JSON(http.StatusConflict, gin.H{"error": processing.ErrProcessingInProgress.Error()})
		return
	}
	if _, err := h.sessionRepo.GetSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, processing.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		result, err := h.processor.Process(context.Background(), sessionID, payload.Employees)
		if err != nil {
			log.Printf("session %s: processing failed: %v", sessionID, err)
			return
		}
		log.Printf("session %s: processed=%d skipped=%d errors=%d in %s",
			sessionID, result.ProcessedCount, result.SkippedCount, len(result.Errors), result.ProcessingTime)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": sessionID.String(),
		"status":     "processing",
	})
}

func (h *ProcessingHandler) GetSessionProgress(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	session, err := h.sessionRepo.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              session.Status,
		"total_employees":     session.TotalEmployees,
		"processed_employees": session.ProcessedEmployees,
		"error_message":       session.ErrorMessage,
	})
}

func (h *ProcessingHandler) ListRecords(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	status := c.Query("status")
	cursor := c.Query("cursor")
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	records, nextCursor, hasMore := h.sessionRepo.ListRecords(c.Request.Context(), sessionID, status, cursor, limit)
	c.JSON(http.StatusOK, gin.H{
		"items":       records,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *ProcessingHandler) ListActivities(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	activities, err := h.activityRepo.ListBySession(sessionID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": activities})
}

func (h *ProcessingHandler) PauseProcessing(c *gin.Context) {
	h.control(c, h.processor.Pause, "pause requested")
}

func (h *ProcessingHandler) ResumeProcessing(c *gin.Context) {
	h.control(c, h.processor.Resume, "resume requested")
}

func (h *ProcessingHandler) CancelProcessing(c *gin.Context) {
	h.control(c, h.processor.Cancel, "cancel requested")
}

func (h *ProcessingHandler) control(c *gin.Context, op func(uuid.UUID) error, message string) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}
	if err := op(sessionID); err != nil {
		if errors.Is(err, processing.ErrNoActiveRun) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
