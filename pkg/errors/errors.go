package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	// Booking-core taxonomy. Each of these is an expected, recoverable
	// outcome surfaced verbatim to the caller; none is retried here.
	CodeAlreadyRegistered = "ALREADY_REGISTERED"
	CodeCampFull          = "CAMP_FULL"
	CodeNotRegistered     = "NOT_REGISTERED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStaleVersion      = "STALE_VERSION"
	CodePastDate          = "PAST_DATE"
	CodeInvalidLocation   = "INVALID_LOCATION"
	CodePaymentFailed     = "PAYMENT_SETTLEMENT_FAILED"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func AlreadyRegistered(campID, participantID string) *AppError {
	return &AppError{
		Code:       CodeAlreadyRegistered,
		Message:    "You are already registered for this camp",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"camp_id":        campID,
			"participant_id": participantID,
		},
	}
}

func CampFull(campID string) *AppError {
	return &AppError{
		Code:       CodeCampFull,
		Message:    "This camp is no longer available, please choose another",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"camp_id": campID},
	}
}

func NotRegistered(campID, participantID string) *AppError {
	return &AppError{
		Code:       CodeNotRegistered,
		Message:    "You are not registered for this camp",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"camp_id":        campID,
			"participant_id": participantID,
		},
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("Cannot move appointment from %s to %s", from, to),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"from": from,
			"to":   to,
		},
	}
}

func StaleVersion(id string, observed int64) *AppError {
	return &AppError{
		Code:       CodeStaleVersion,
		Message:    "The appointment changed since you last read it, please refresh and retry",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"id":               id,
			"observed_version": observed,
		},
	}
}

func PastDate(message string) *AppError {
	return &AppError{
		Code:       CodePastDate,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InvalidLocation(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidLocation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func PaymentSettlementFailed(appointmentID string, err error) *AppError {
	return &AppError{
		Code:       CodePaymentFailed,
		Message:    "Payment settlement failed, you may retry the payment",
		HTTPStatus: http.StatusPaymentRequired,
		Details:    map[string]any{"appointment_id": appointmentID},
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
