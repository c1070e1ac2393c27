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

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	validator       *utils.Validator
}

// RecordAnswerBody is the wire form of an answer submission; the user id
// comes from the verified token, never from the payload.
type RecordAnswerBody struct {
	FlashcardID  string  `json:"flashcard_id" validate:"required"`
	Quality      int     `json:"quality" validate:"min=0,max=5"`
	ResponseTime float64 `json:"response_time" validate:"gte=0"`
}

func NewProgressHandler(
	progressService services.ProgressService,
	validator *utils.Validator,
	logger utils.Logger,
) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		validator:       validator,
	}
}

// RecordAnswer applies one quality submission to a card's schedule
// @Summary Record answer
// @Description Records a recall quality score and reschedules the card
// @Tags progress
// @Accept json
// @Produce json
// @Param answer body RecordAnswerBody true "Answer data"
// @Success 200 {object} services.ProgressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /progress/answers [post]
func (h *ProgressHandler) RecordAnswer(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	var body RecordAnswerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Validate(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Recording answer", "flashcard_id", body.FlashcardID, "quality", body.Quality)

	progress, err := h.progressService.RecordAnswer(c.Request.Context(), &services.RecordAnswerRequest{
		UserID:       userID,
		FlashcardID:  body.FlashcardID,
		Quality:      body.Quality,
		ResponseTime: body.ResponseTime,
	}, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetProgress retrieves a card's scheduling state
// @Summary Get card progress
// @Description Retrieves the caller's progress for one flashcard
// @Tags progress
// @Produce json
// @Param flashcard_id path string true "Flashcard ID"
// @Success 200 {object} services.ProgressResponse
// @Failure 400 {object} ErrorResponse
// @Router /progress/cards/{flashcard_id} [get]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	flashcardID := ParseStringIDParam(c, "flashcard_id")
	if flashcardID == "" {
		return
	}

	progress, err := h.progressService.GetProgress(c.Request.Context(), userID, flashcardID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetDueCards lists cards currently due for review
// @Summary Get due cards
// @Description Lists due cards, earliest first, hardest first on ties
// @Tags progress
// @Produce json
// @Param limit query int false "Maximum cards to return" default(50)
// @Success 200 {object} SuccessResponse
// @Router /progress/due [get]
func (h *ProgressHandler) GetDueCards(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}
	limit := parseIntQuery(c, "limit", 50)

	due, err := h.progressService.GetDueCards(c.Request.Context(), userID, time.Now().UTC(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Due cards retrieved",
		Data: gin.H{
			"cards": due,
			"count": len(due),
		},
	})
}

// ListProgress lists the caller's progress records
// @Summary List progress
// @Description Lists progress records with optional mastery filter and paging
// @Tags progress
// @Produce json
// @Param mastery_level query string false "Filter by mastery level"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} SuccessResponse
// @Router /progress [get]
func (h *ProgressHandler) ListProgress(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := repositories.ProgressFilters{
		Limit:     parseIntQuery(c, "limit", 50),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "next_review"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}
	if raw := c.Query("mastery_level"); raw != "" {
		level := models.MasteryLevel(raw)
		filters.MasteryLevel = &level
	}

	records, total, err := h.progressService.ListProgress(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Progress records retrieved",
		Data: gin.H{
			"records": records,
			"total":   total,
			"limit":   filters.Limit,
			"offset":  filters.Offset,
		},
	})
}
