package repository

import (
	"context"

	"carpool/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// Delete removes a booking. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// ListByTripID retrieves all bookings on a trip, ordered by creation
	// time ascending.
	ListByTripID(ctx context.Context, tripID string) ([]*domain.Booking, error)

	// ListByRiderID retrieves a rider's bookings, newest first.
	ListByRiderID(ctx context.Context, riderID string) ([]*domain.Booking, error)
}
