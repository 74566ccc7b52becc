package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// ListScheduled retrieves trips open for discovery, optionally filtered
	// by destination (empty destination means any).
	ListScheduled(ctx context.Context, destination domain.Destination) ([]*domain.Trip, error)

	// ListByDriverID retrieves a driver's trips, soonest departure first.
	ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// IncrementSeatsTaken adds one to seats_taken only if the stored value
	// still equals expectedSeatsTaken. Returns false when the conditional
	// update affected no rows, which means either a lost race or a deleted
	// trip; callers distinguish the two by re-reading.
	IncrementSeatsTaken(ctx context.Context, tripID string, expectedSeatsTaken int) (bool, error)

	// DecrementSeatsTaken subtracts one from seats_taken with a floor at
	// zero. Deliberately not compare-and-swapped: a lost decrement only
	// biases toward over-availability.
	DecrementSeatsTaken(ctx context.Context, tripID string) error

	// MarkInProgress transitions a SCHEDULED trip to IN_PROGRESS, stamping
	// actualStartTime. Returns false if the trip was not in SCHEDULED
	// state or no longer exists.
	MarkInProgress(ctx context.Context, tripID string, actualStartTime time.Time) (bool, error)

	// Delete removes the trip and all of its bookings. Implementations
	// back both deletes with a single transaction where the store
	// supports one.
	Delete(ctx context.Context, tripID string) error
}
