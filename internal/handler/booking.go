package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	coordinator *service.BookingCoordinator
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(coordinator *service.BookingCoordinator) *BookingHandler {
	return &BookingHandler{coordinator: coordinator}
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	BookingID             string  `json:"booking_id"`
	TripID                string  `json:"trip_id"`
	RiderID               string  `json:"rider_id"`
	PickupLat             float64 `json:"pickup_lat"`
	PickupLng             float64 `json:"pickup_lng"`
	WalkingDistanceMeters int     `json:"walking_distance_meters"`
	Status                string  `json:"status"`
	CreatedAt             string  `json:"created_at"`
}

func bookingToResponse(booking *domain.Booking) BookingResponse {
	return BookingResponse{
		BookingID:             booking.ID,
		TripID:                booking.TripID,
		RiderID:               booking.RiderID,
		PickupLat:             booking.PickupLat,
		PickupLng:             booking.PickupLng,
		WalkingDistanceMeters: booking.WalkingDistanceMeters,
		Status:                string(booking.Status),
		CreatedAt:             booking.CreatedAt.Format(timeLayout),
	}
}

// ReserveSeatRequest is the HTTP request body for reserving a seat.
type ReserveSeatRequest struct {
	TripID                string  `json:"trip_id" binding:"required"`
	PickupLat             float64 `json:"pickup_lat"`
	PickupLng             float64 `json:"pickup_lng"`
	WalkingDistanceMeters int     `json:"walking_distance_meters"`
}

// ReserveSeat handles POST /v1/bookings. A reservation that loses its race
// is retried once before the conflict surfaces as "seat just taken".
func (h *BookingHandler) ReserveSeat(c *gin.Context) {
	var req ReserveSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.coordinator.ReserveSeatWithRetry(c.Request.Context(), service.ReserveSeatRequest{
		TripID:                req.TripID,
		RiderID:               middleware.CurrentUserID(c),
		PickupPoint:           geo.LatLng{Lat: req.PickupLat, Lng: req.PickupLng},
		WalkingDistanceMeters: req.WalkingDistanceMeters,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, bookingToResponse(booking))
}

// ReleaseSeat handles DELETE /v1/bookings/:id
func (h *BookingHandler) ReleaseSeat(c *gin.Context) {
	err := h.coordinator.ReleaseSeat(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MyBookings handles GET /v1/bookings
func (h *BookingHandler) MyBookings(c *gin.Context) {
	bookings, err := h.coordinator.RiderBookings(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		response = append(response, bookingToResponse(booking))
	}
	c.JSON(http.StatusOK, response)
}

// TripBookings handles GET /v1/trips/:id/bookings. The driver's passenger
// list, ordered by booking time.
func (h *BookingHandler) TripBookings(c *gin.Context) {
	bookings, err := h.coordinator.TripBookings(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		response = append(response, bookingToResponse(booking))
	}
	c.JSON(http.StatusOK, response)
}
