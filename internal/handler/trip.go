package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

const timeLayout = time.RFC3339

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
	resolver    *service.MeetingPointResolver
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService, resolver *service.MeetingPointResolver) *TripHandler {
	return &TripHandler{tripService: tripService, resolver: resolver}
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	TripID               string  `json:"trip_id"`
	DriverID             string  `json:"driver_id"`
	Destination          string  `json:"destination"`
	StartLat             float64 `json:"start_lat"`
	StartLng             float64 `json:"start_lng"`
	Polyline             string  `json:"polyline"`
	DepartureTime        string  `json:"departure_time"`
	EstimatedArrivalTime string  `json:"estimated_arrival_time"`
	ActualStartTime      string  `json:"actual_start_time,omitempty"`
	TotalSeats           int     `json:"total_seats"`
	SeatsTaken           int     `json:"seats_taken"`
	AvailableSeats       int     `json:"available_seats"`
	Status               string  `json:"status"`
}

func tripToResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		TripID:               trip.ID,
		DriverID:             trip.DriverID,
		Destination:          string(trip.Destination),
		StartLat:             trip.StartLat,
		StartLng:             trip.StartLng,
		Polyline:             trip.Polyline,
		DepartureTime:        trip.DepartureTime.Format(timeLayout),
		EstimatedArrivalTime: trip.EstimatedArrivalTime.Format(timeLayout),
		TotalSeats:           trip.TotalSeats,
		SeatsTaken:           trip.SeatsTaken,
		AvailableSeats:       trip.AvailableSeats(),
		Status:               string(trip.Status),
	}
	if !trip.ActualStartTime.IsZero() {
		resp.ActualStartTime = trip.ActualStartTime.Format(timeLayout)
	}
	return resp
}

// PublishTripRequest is the HTTP request body for publishing a trip.
type PublishTripRequest struct {
	Destination          string  `json:"destination" binding:"required"`
	StartLat             float64 `json:"start_lat"`
	StartLng             float64 `json:"start_lng"`
	Polyline             string  `json:"polyline" binding:"required"`
	DepartureTime        string  `json:"departure_time" binding:"required"`
	RouteDurationSeconds int     `json:"route_duration_seconds" binding:"required"`
	TotalSeats           int     `json:"total_seats" binding:"required"`
}

// PublishTrip handles POST /v1/trips
func (h *TripHandler) PublishTrip(c *gin.Context) {
	var req PublishTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	departure, err := time.Parse(timeLayout, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "departure_time must be RFC3339"})
		return
	}

	trip, err := h.tripService.PublishTrip(c.Request.Context(), service.PublishTripRequest{
		DriverID:             middleware.CurrentUserID(c),
		Destination:          domain.Destination(req.Destination),
		StartLat:             req.StartLat,
		StartLng:             req.StartLng,
		Polyline:             req.Polyline,
		DepartureTime:        departure,
		RouteDurationSeconds: req.RouteDurationSeconds,
		TotalSeats:           req.TotalSeats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, tripToResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// TripOfferResponse is one discovery result enriched for the rider.
type TripOfferResponse struct {
	Trip                  TripResponse `json:"trip"`
	MeetingLat            float64      `json:"meeting_lat"`
	MeetingLng            float64      `json:"meeting_lng"`
	WalkingDistanceMeters int          `json:"walking_distance_meters"`
	WalkMinutes           int          `json:"walk_minutes"`
	MeetingETA            string       `json:"meeting_eta"`
}

// Discover handles GET /v1/trips. SCHEDULED trips ranked for the rider's
// position given as lat/lng query parameters.
func (h *TripHandler) Discover(c *gin.Context) {
	var query struct {
		Lat            float64 `form:"lat"`
		Lng            float64 `form:"lng"`
		Destination    string  `form:"destination"`
		MaxWalkMinutes int     `form:"max_walk_minutes"`
		RadiusKm       float64 `form:"radius_km"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	offers, err := h.tripService.DiscoverTrips(c.Request.Context(), service.DiscoverRequest{
		RiderLocation:  geo.LatLng{Lat: query.Lat, Lng: query.Lng},
		Destination:    domain.Destination(query.Destination),
		MaxWalkMinutes: query.MaxWalkMinutes,
		RadiusKm:       query.RadiusKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripOfferResponse, 0, len(offers))
	for _, offer := range offers {
		response = append(response, TripOfferResponse{
			Trip:                  tripToResponse(offer.Trip),
			MeetingLat:            offer.Plan.Point.Lat,
			MeetingLng:            offer.Plan.Point.Lng,
			WalkingDistanceMeters: offer.Plan.WalkingDistanceMeters,
			WalkMinutes:           offer.Plan.WalkMinutes,
			MeetingETA:            offer.Plan.MeetingETA.Format(timeLayout),
		})
	}

	c.JSON(http.StatusOK, response)
}

// MyTrips handles GET /v1/trips/mine
func (h *TripHandler) MyTrips(c *gin.Context) {
	trips, err := h.tripService.DriverTrips(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, tripToResponse(trip))
	}
	c.JSON(http.StatusOK, response)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	trip, err := h.tripService.StartTrip(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripToResponse(trip))
}

// EndTrip handles POST /v1/trips/:id/end
func (h *TripHandler) EndTrip(c *gin.Context) {
	if err := h.tripService.EndTrip(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	if err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MeetingPointRequest is the HTTP request body for resolving a meeting
// point against one trip.
type MeetingPointRequest struct {
	RiderLat float64 `json:"rider_lat"`
	RiderLng float64 `json:"rider_lng"`
	// Refine requests the accurate walking-route query, reserved for the
	// trip the rider actually selected.
	Refine bool `json:"refine"`
}

// MeetingPointResponse is the resolved meeting plan.
type MeetingPointResponse struct {
	MeetingLat            float64 `json:"meeting_lat"`
	MeetingLng            float64 `json:"meeting_lng"`
	WalkingDistanceMeters int     `json:"walking_distance_meters"`
	WalkMinutes           int     `json:"walk_minutes"`
	MeetingETA            string  `json:"meeting_eta"`

	WalkingRoutePolyline string `json:"walking_route_polyline,omitempty"`
	WalkingRouteSeconds  int    `json:"walking_route_seconds,omitempty"`
	WalkingRouteMeters   int    `json:"walking_route_meters,omitempty"`
}

// MeetingPoint handles POST /v1/trips/:id/meeting-point
func (h *TripHandler) MeetingPoint(c *gin.Context) {
	var req MeetingPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	riderLocation := geo.LatLng{Lat: req.RiderLat, Lng: req.RiderLng}
	plan, err := h.resolver.Resolve(riderLocation, trip)
	if err != nil {
		respondError(c, err)
		return
	}

	response := MeetingPointResponse{
		MeetingLat:            plan.Point.Lat,
		MeetingLng:            plan.Point.Lng,
		WalkingDistanceMeters: plan.WalkingDistanceMeters,
		WalkMinutes:           plan.WalkMinutes,
		MeetingETA:            plan.MeetingETA.Format(timeLayout),
	}

	if req.Refine {
		route, err := h.resolver.RefineWalkingRoute(c.Request.Context(), riderLocation, trip.ID, plan.Point)
		if err == nil {
			// Refinement failure keeps the straight-line estimate; it is
			// an enhancement, not a requirement.
			response.WalkingRoutePolyline = route.Polyline
			response.WalkingRouteSeconds = route.DurationSeconds
			response.WalkingRouteMeters = route.DistanceMeters
		}
	}

	respondJSON(c, http.StatusOK, response)
}

// WatchTrip handles GET /v1/trips/:id/watch, a server-sent event stream
// of the trip's authoritative state, re-fetched after every change-feed
// notification. The stream ends when the trip is deleted or the client
// disconnects.
func (h *TripHandler) WatchTrip(c *gin.Context) {
	updates, err := h.tripService.WatchTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		trip, open := <-updates
		if !open {
			return false
		}
		c.SSEvent("trip", tripToResponse(trip))
		return true
	})
}
