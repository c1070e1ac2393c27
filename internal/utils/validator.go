package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/studyforge/srs-service/internal/errors"
	"github.com/studyforge/srs-service/internal/models"
)

// Validator wraps the struct validator with the service's custom rules.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate validates struct tags and converts failures into the shared
// ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// ===== CUSTOM VALIDATION FUNCTIONS =====

func ValidateStudyMode(fl validator.FieldLevel) bool {
	validModes := []models.StudyMode{
		models.ModeReview,
		models.ModePractice,
		models.ModeLearn,
		models.ModeTest,
		models.ModeCram,
	}

	value := fl.Field().String()
	for _, mode := range validModes {
		if string(mode) == value {
			return true
		}
	}
	return false
}

func ValidateSessionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SessionStatus{
		models.SessionActive,
		models.SessionCompleted,
		models.SessionAbandoned,
	}

	value := fl.Field().String()
	for _, status := range validStatuses {
		if string(status) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("study_mode", ValidateStudyMode)
	validate.RegisterValidation("session_status", ValidateSessionStatus)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
