package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/studyforge/srs-service/internal/services"
	"github.com/studyforge/srs-service/internal/utils"
)

type HandlerManager struct {
	progressHandler  *ProgressHandler
	sessionHandler   *SessionHandler
	analyticsHandler *AnalyticsHandler
	authMiddleware   *AuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *AuthMiddleware,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		progressHandler:  NewProgressHandler(serviceManager.Progress(), validator, logger),
		sessionHandler:   NewSessionHandler(serviceManager.Session(), validator, logger),
		analyticsHandler: NewAnalyticsHandler(serviceManager.Analytics(), serviceManager.Export(), logger),
		authMiddleware:   authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "srs-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.RequireAuth())
	{
		// Progress routes
		progress := v1.Group("/progress")
		{
			progress.POST("/answers", hm.progressHandler.RecordAnswer)
			progress.GET("", hm.progressHandler.ListProgress)
			progress.GET("/due", hm.progressHandler.GetDueCards)
			progress.GET("/cards/:flashcard_id", hm.progressHandler.GetProgress)
		}

		// Session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/active", hm.sessionHandler.GetActiveSessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/end", hm.sessionHandler.EndSession)
		}

		// Analytics routes
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/statistics", hm.analyticsHandler.GetStatistics)
			analytics.GET("/history", hm.analyticsHandler.GetSessionHistory)
			analytics.GET("/srs-overview", hm.analyticsHandler.GetSRSOverview)
			analytics.GET("/decks/:deck_id/mastery", hm.analyticsHandler.GetDeckMastery)
			analytics.GET("/export", hm.analyticsHandler.ExportProgressReport)
		}
	}
}
