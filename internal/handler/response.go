package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Auth
	case errors.Is(err, service.ErrAuthRequired):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotTripDriver),
		errors.Is(err, service.ErrNotBookingRider):
		return http.StatusForbidden

	// Gone entities
	case errors.Is(err, service.ErrTripGone),
		errors.Is(err, service.ErrBookingGone),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidDeparture),
		errors.Is(err, service.ErrInvalidRoute),
		errors.Is(err, service.ErrGeocodeFailed),
		errors.Is(err, service.ErrAddressAmbiguous):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrNoSeatsAvailable),
		errors.Is(err, service.ErrConcurrentBookingConflict),
		errors.Is(err, service.ErrTripAlreadyStarted),
		errors.Is(err, service.ErrTripBusy),
		errors.Is(err, service.ErrRequestSuperseded):
		return http.StatusConflict

	// Degraded geometry / external provider
	case errors.Is(err, service.ErrRouteGeometryUnavailable):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrDirectionsUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
