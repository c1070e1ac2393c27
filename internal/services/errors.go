package services

import (
	"errors"
	"fmt"

	apperrors "github.com/studyforge/srs-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")

	// Review/progress errors
	ErrInvalidQuality      = errors.New("quality score out of range")
	ErrProgressNotFound    = errors.New("progress record not found")
	ErrFlashcardNotFound   = errors.New("flashcard not found")
	ErrConcurrencyConflict = errors.New("progress record was modified concurrently - retry with fresh state")

	// Session errors
	ErrSessionNotFound     = errors.New("study session not found")
	ErrSessionNotActive    = errors.New("study session is not active")
	ErrSessionAccessDenied = errors.New("access denied to study session")
	ErrCardNotScheduled    = errors.New("flashcard is not scheduled in this session or already answered")
	ErrNoCardsAvailable    = errors.New("no cards available for the requested study mode")

	// Deck errors
	ErrDeckNotFound     = errors.New("deck not found")
	ErrDeckAccessDenied = errors.New("access denied to deck")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrFlashcardNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrDeckNotFound)
}

// IsUnauthorized checks if error represents an access control failure
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSessionAccessDenied) ||
		errors.Is(err, ErrDeckAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents rejected input
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidQuality) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsInvalidState checks if error represents an operation attempted on an
// entity in the wrong lifecycle state
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrCardNotScheduled)
}

// IsConflict checks if error represents a transient concurrency conflict;
// callers should retry with freshly loaded state
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
