package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"expense-reconciliation-backend/internal/config"
	handler "expense-reconciliation-backend/internal/handlers"
	"expense-reconciliation-backend/internal/repository"
	"expense-reconciliation-backend/internal/services/processing"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, opts config.ProcessingOptions) {
	sessionRepo := repository.NewSessionRepository(db, opts.BulkChunkSize)
	activityRepo := repository.NewActivityRepository(db)

	processor := processing.NewProcessor(sessionRepo, activityRepo, opts)
	processingHandler := handler.NewProcessingHandler(processor, sessionRepo, activityRepo)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	sessions := api.Group("/sessions")
	sessions.POST("", processingHandler.CreateSession)
	sessions.POST("/:sessionId/process", processingHandler.StartProcessing)
	sessions.GET("/:sessionId", processingHandler.GetSessionProgress)
	sessions.GET("/:sessionId/records", processingHandler.ListRecords)
	sessions.GET("/:sessionId/activities", processingHandler.ListActivities)
	sessions.POST("/:sessionId/pause", processingHandler.PauseProcessing)
	sessions.POST("/:sessionId/resume", processingHandler.ResumeProcessing)
	sessions.POST("/:sessionId/cancel", processingHandler.CancelProcessing)
}
