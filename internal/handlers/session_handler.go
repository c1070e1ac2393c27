package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/srs-service/internal/models"
	"github.com/studyforge/srs-service/internal/repositories"
	"github.com/studyforge/srs-service/internal/services"
	"github.com/studyforge/srs-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *utils.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *utils.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// StartSession starts a new study session over a deck
// @Summary Start session
// @Description Starts a study session and freezes its scheduled card set
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session parameters"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting study session", "deck_id", req.DeckID, "study_mode", req.StudyMode)

	session, err := h.sessionService.Start(c.Request.Context(), userID, &req, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a study session by ID
// @Summary Get session
// @Description Retrieves one of the caller's study sessions
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists the caller's sessions with optional filters
// @Summary List sessions
// @Description Lists sessions filtered by status, mode or deck, newest first
// @Tags sessions
// @Produce json
// @Param status query string false "Filter by status"
// @Param study_mode query string false "Filter by study mode"
// @Param deck_id query string false "Filter by deck"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} SuccessResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := repositories.SessionFilters{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.SessionStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("study_mode"); raw != "" {
		mode := models.StudyMode(raw)
		filters.StudyMode = &mode
	}
	if raw := c.Query("deck_id"); raw != "" {
		filters.DeckID = &raw
	}

	sessions, total, err := h.sessionService.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Sessions retrieved",
		Data: gin.H{
			"sessions": sessions,
			"total":    total,
			"limit":    filters.Limit,
			"offset":   filters.Offset,
		},
	})
}

// GetActiveSessions lists the caller's active sessions
// @Summary Get active sessions
// @Description Lists sessions that have not reached a terminal status
// @Tags sessions
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /sessions/active [get]
func (h *SessionHandler) GetActiveSessions(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	sessions, err := h.sessionService.GetActive(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Active sessions retrieved",
		Data: gin.H{
			"sessions": sessions,
			"count":    len(sessions),
		},
	})
}

// SubmitAnswer records one answer inside a session
// @Summary Submit answer
// @Description Records a per-card outcome and updates the card's schedule
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.SubmitAnswerRequest true "Answer data"
// @Success 200 {object} services.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting session answer",
		"session_id", sessionID,
		"flashcard_id", req.FlashcardID,
		"quality", req.Quality)

	answer, err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, userID, &req, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// EndSession finishes a study session
// @Summary End session
// @Description Completes or abandons a session; ending twice is a no-op
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionCompletionResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Ending study session", "session_id", sessionID)

	summary, err := h.sessionService.End(c.Request.Context(), sessionID, userID, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
