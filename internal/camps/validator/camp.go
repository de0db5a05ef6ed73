package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"medibook/pkg/geo"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type CampValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCampValidator(log *logger.Logger) *CampValidator {
	v := validator.New()

	log.Info("Camp validator initialized successfully")

	return &CampValidator{
		validate: v,
		logger:   log,
	}
}

func (v *CampValidator) Validate(camp *model.HealthCamp) error {
	if err := v.validate.Struct(camp); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if camp.RegisteredCount != len(camp.Registrants) {
		return ValidationErrors{
			ValidationError{
				Field:   "RegisteredCount",
				Message: fmt.Sprintf("registered_count (%d) must equal registrant set size (%d)", camp.RegisteredCount, len(camp.Registrants)),
			},
		}
	}

	if len(camp.Registrants) > camp.Capacity {
		return ValidationErrors{
			ValidationError{
				Field:   "Registrants",
				Message: fmt.Sprintf("registrant count (%d) exceeds capacity (%d)", len(camp.Registrants), camp.Capacity),
			},
		}
	}

	if camp.Location != nil {
		if err := geo.Validate(*camp.Location); err != nil {
			return ValidationErrors{
				ValidationError{
					Field:   "Location",
					Message: fmt.Sprintf("invalid coordinate (%f, %f)", camp.Location.Latitude, camp.Location.Longitude),
				},
			}
		}
	}

	return nil
}

func (v *CampValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "unique":
			message = fmt.Sprintf("%s must not contain duplicates", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
