package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	BookingHandler *handler.BookingHandler
	RouteHandler   *handler.RouteHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. Everything below requires an authenticated identity.
	v1 := router.Group("/v1")
	v1.Use(middleware.RequireUser())
	{
		// Route computation.
		routes := v1.Group("/routes")
		{
			routes.POST("/options", deps.RouteHandler.Options)
		}
		v1.POST("/geocode", deps.RouteHandler.Geocode)
		v1.POST("/geocode/reverse", deps.RouteHandler.ReverseGeocode)

		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.PublishTrip)
			trips.GET("", deps.TripHandler.Discover)
			trips.GET("/mine", deps.TripHandler.MyTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.GET("/:id/watch", deps.TripHandler.WatchTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/end", deps.TripHandler.EndTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/meeting-point", deps.TripHandler.MeetingPoint)
			trips.GET("/:id/bookings", deps.BookingHandler.TripBookings)
		}

		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.ReserveSeat)
			bookings.GET("", deps.BookingHandler.MyBookings)
			bookings.DELETE("/:id", deps.BookingHandler.ReleaseSeat)
		}
	}

	return router
}
