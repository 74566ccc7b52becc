package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/geo"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// RouteHandler handles HTTP requests for route computation and geocoding.
type RouteHandler struct {
	routeService *service.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routeService *service.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// RouteOptionsRequest is the HTTP request body for route alternatives.
// Coordinates deliberately carry no required binding: zero is a legal
// latitude and longitude, and range validation lives in the service.
type RouteOptionsRequest struct {
	OriginLat      float64 `json:"origin_lat"`
	OriginLng      float64 `json:"origin_lng"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLng float64 `json:"destination_lng"`
	Waypoints      []struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"waypoints"`
}

// RouteOptionResponse is one short-listed route candidate.
type RouteOptionResponse struct {
	Index           int    `json:"index"`
	Summary         string `json:"summary"`
	DurationSeconds int    `json:"duration_seconds"`
	DistanceMeters  int    `json:"distance_meters"`
	Polyline        string `json:"polyline"`
}

// Options handles POST /v1/routes/options
func (h *RouteHandler) Options(c *gin.Context) {
	var req RouteOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	waypoints := make([]geo.LatLng, 0, len(req.Waypoints))
	for _, w := range req.Waypoints {
		waypoints = append(waypoints, geo.LatLng{Lat: w.Lat, Lng: w.Lng})
	}

	candidates, err := h.routeService.ComputeRouteOptions(c.Request.Context(),
		geo.LatLng{Lat: req.OriginLat, Lng: req.OriginLng},
		geo.LatLng{Lat: req.DestinationLat, Lng: req.DestinationLng},
		waypoints,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RouteOptionResponse, 0, len(candidates))
	for _, candidate := range candidates {
		response = append(response, RouteOptionResponse{
			Index:           candidate.Index,
			Summary:         candidate.Summary,
			DurationSeconds: candidate.DurationSeconds,
			DistanceMeters:  candidate.DistanceMeters,
			Polyline:        candidate.Polyline,
		})
	}

	c.JSON(http.StatusOK, response)
}

// ReverseGeocodeRequest is the HTTP request body for reverse geocoding.
type ReverseGeocodeRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ReverseGeocodeResponse is a resolved address label.
type ReverseGeocodeResponse struct {
	Address string `json:"address"`
}

// ReverseGeocode handles POST /v1/geocode/reverse. Labels a
// device-located start position with a readable address.
func (h *RouteHandler) ReverseGeocode(c *gin.Context) {
	var req ReverseGeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	address, err := h.routeService.ReverseGeocode(c.Request.Context(), geo.LatLng{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ReverseGeocodeResponse{Address: address})
}

// GeocodeRequest is the HTTP request body for address geocoding.
type GeocodeRequest struct {
	Address string `json:"address" binding:"required"`
}

// GeocodeResponse is a resolved coordinate.
type GeocodeResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode handles POST /v1/geocode
func (h *RouteHandler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	point, err := h.routeService.GeocodeStart(c.Request.Context(), middleware.CurrentUserID(c), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, GeocodeResponse{Lat: point.Lat, Lng: point.Lng})
}
