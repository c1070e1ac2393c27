package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/srs-service/internal/services"
	"github.com/studyforge/srs-service/internal/utils"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
	exportService    services.ExportService
}

func NewAnalyticsHandler(
	analyticsService services.AnalyticsService,
	exportService services.ExportService,
	logger utils.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
		exportService:    exportService,
	}
}

// GetStatistics returns aggregated study statistics
// @Summary Get user statistics
// @Description Aggregates session outcomes over the requested period
// @Tags analytics
// @Produce json
// @Param days query int false "Period in days" default(30)
// @Success 200 {object} services.UserStatistics
// @Router /analytics/statistics [get]
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	days := parseIntQuery(c, "days", 30)

	stats, err := h.analyticsService.GetUserStatistics(c.Request.Context(), userID, days, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetSessionHistory lists recent sessions with per-session summaries
// @Summary Get session history
// @Description Lists the caller's sessions over the requested period
// @Tags analytics
// @Produce json
// @Param days query int false "Period in days" default(30)
// @Success 200 {object} services.SessionHistoryResponse
// @Router /analytics/history [get]
func (h *AnalyticsHandler) GetSessionHistory(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	days := parseIntQuery(c, "days", 30)

	history, err := h.analyticsService.GetSessionHistory(c.Request.Context(), userID, days, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetSRSOverview returns the review load breakdown
// @Summary Get SRS overview
// @Description Counts cards by review urgency (overdue, today, this week)
// @Tags analytics
// @Produce json
// @Success 200 {object} repositories.SRSOverview
// @Router /analytics/srs-overview [get]
func (h *AnalyticsHandler) GetSRSOverview(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	overview, err := h.analyticsService.GetSRSOverview(c.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetDeckMastery returns per-deck mastery statistics
// @Summary Get deck mastery
// @Description Summarizes the caller's mastery of one deck
// @Tags analytics
// @Produce json
// @Param deck_id path string true "Deck ID"
// @Success 200 {object} repositories.DeckProgressStats
// @Failure 404 {object} ErrorResponse
// @Router /analytics/decks/{deck_id}/mastery [get]
func (h *AnalyticsHandler) GetDeckMastery(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	deckID := ParseStringIDParam(c, "deck_id")
	if deckID == "" {
		return
	}

	stats, err := h.analyticsService.GetDeckMastery(c.Request.Context(), userID, deckID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportProgressReport downloads the progress report workbook
// @Summary Export progress report
// @Description Renders the caller's progress into an XLSX workbook
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /analytics/export [get]
func (h *AnalyticsHandler) ExportProgressReport(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	now := time.Now().UTC()
	h.LogRequest(c, "Exporting progress report")

	report, err := h.exportService.ExportProgressReport(c.Request.Context(), userID, now)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("progress-report-%s.xlsx", now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		report)
}
