package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	enrollmentdomain "github.com/drivelane/drivelane/internal/enrollment/domain"
	sessiondomain "github.com/drivelane/drivelane/internal/session/domain"
)

// ErrNotFound is returned for routes or records that do not exist.
var ErrNotFound = errors.New("not_found")

type apiError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *apiError) Error() string {
	return e.Code
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

// AbortWithError maps domain errors onto HTTP responses. Unknown errors
// become opaque 500s so internals never leak to callers.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	var insufficient *enrollmentdomain.InsufficientHoursError
	if errors.As(err, &insufficient) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": &apiError{
			Code:    "insufficient_hours",
			Message: insufficient.Error(),
			Details: map[string]any{
				"requested": insufficient.Requested,
				"remaining": insufficient.Remaining,
			},
		}})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrSchoolNotFound),
		errors.Is(err, catalogdomain.ErrOfferNotFound),
		errors.Is(err, enrollmentdomain.ErrEnrollmentNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, bookingdomain.ErrInvoiceNotFound):
		status = http.StatusNotFound
		code = "not_found"
		message = err.Error()
	case errors.Is(err, sessiondomain.ErrInvalidTransition),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, bookingdomain.ErrInvoiceVoided):
		status = http.StatusConflict
		code = "invalid_transition"
		message = err.Error()
	case errors.Is(err, enrollmentdomain.ErrConflict),
		errors.Is(err, bookingdomain.ErrConflict):
		status = http.StatusConflict
		code = "conflict"
		message = "concurrent update, retry the request"
	case errors.Is(err, catalogdomain.ErrInvalidSchool),
		errors.Is(err, catalogdomain.ErrInvalidOffer),
		errors.Is(err, catalogdomain.ErrInvalidMonitor),
		errors.Is(err, enrollmentdomain.ErrInvalidEnrollment),
		errors.Is(err, sessiondomain.ErrInvalidSession),
		errors.Is(err, sessiondomain.ErrInvalidStatus),
		errors.Is(err, bookingdomain.ErrInvalidBooking),
		errors.Is(err, bookingdomain.ErrInvalidStatus):
		status = http.StatusBadRequest
		code = "invalid_request"
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{
		Code:    code,
		Message: message,
	}})
}
