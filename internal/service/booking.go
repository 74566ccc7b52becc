package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/repository"
)

// BookingCoordinator owns the seat-reservation protocol. Trip.seatsTaken is
// the only contended shared resource in the system, and every mutation of
// it goes through the compare-and-swap discipline implemented here.
type BookingCoordinator struct {
	tripRepo    repository.TripRepository
	bookingRepo repository.BookingRepository
}

// NewBookingCoordinator creates a new BookingCoordinator.
func NewBookingCoordinator(tripRepo repository.TripRepository, bookingRepo repository.BookingRepository) *BookingCoordinator {
	return &BookingCoordinator{
		tripRepo:    tripRepo,
		bookingRepo: bookingRepo,
	}
}

// ReserveSeatRequest contains the parameters for reserving a seat.
type ReserveSeatRequest struct {
	TripID                string
	RiderID               string
	PickupPoint           geo.LatLng
	WalkingDistanceMeters int
}

// ReserveSeat performs one pass of the optimistic reservation protocol:
//
//  1. Read the trip's current seat counts.
//  2. Fail with ErrNoSeatsAvailable if the trip is full.
//  3. Insert the booking row.
//  4. Conditionally increment seats_taken, keyed on the count read in 1.
//  5. If the conditional update lost a race, delete the booking inserted
//     in 3 and fail with ErrConcurrentBookingConflict.
//
// The compensating delete in step 5 keeps the invariant
// seatsTaken <= totalSeats and "live bookings <= totalSeats" under
// arbitrary concurrent callers. Callers may retry from step 1 on
// ErrConcurrentBookingConflict; ReserveSeatWithRetry does that once.
func (c *BookingCoordinator) ReserveSeat(ctx context.Context, req ReserveSeatRequest) (*domain.Booking, error) {
	if err := c.validateReserveRequest(req); err != nil {
		return nil, err
	}

	trip, err := c.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, err
	}

	if trip.SeatsTaken >= trip.TotalSeats {
		return nil, ErrNoSeatsAvailable
	}

	booking := &domain.Booking{
		ID:                    uuid.New().String(),
		TripID:                req.TripID,
		RiderID:               req.RiderID,
		PickupLat:             req.PickupPoint.Lat,
		PickupLng:             req.PickupPoint.Lng,
		WalkingDistanceMeters: req.WalkingDistanceMeters,
		Status:                domain.BookingStatusConfirmed,
		CreatedAt:             time.Now(),
	}

	if err := c.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	updated, err := c.tripRepo.IncrementSeatsTaken(ctx, req.TripID, trip.SeatsTaken)
	if err != nil {
		c.compensate(ctx, booking.ID)
		return nil, err
	}

	if !updated {
		// Lost the race, or the trip vanished between the read and the
		// conditional update. Either way the booking must not survive.
		c.compensate(ctx, booking.ID)

		if _, err := c.tripRepo.GetByID(ctx, req.TripID); errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, ErrConcurrentBookingConflict
	}

	return booking, nil
}

// ReserveSeatWithRetry runs the reservation protocol, retrying exactly once
// on a concurrent booking conflict before surfacing the failure. Contention
// is bounded by seat counts, so one retry resolves nearly every race; what
// remains is reported to the user as "seat just taken".
func (c *BookingCoordinator) ReserveSeatWithRetry(ctx context.Context, req ReserveSeatRequest) (*domain.Booking, error) {
	booking, err := c.ReserveSeat(ctx, req)
	if errors.Is(err, ErrConcurrentBookingConflict) {
		return c.ReserveSeat(ctx, req)
	}
	return booking, err
}

// ReleaseSeat deletes the rider's booking and releases its seat. The
// decrement is floored at zero and deliberately not compare-and-swapped: a
// lost decrement under concurrent releases only under-counts taken seats,
// which biases toward over-availability, the safe direction.
func (c *BookingCoordinator) ReleaseSeat(ctx context.Context, bookingID, riderID string) error {
	if bookingID == "" {
		return ErrInvalidBookingID
	}
	if riderID == "" {
		return ErrAuthRequired
	}

	booking, err := c.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingGone
		}
		return err
	}

	if booking.RiderID != riderID {
		return ErrNotBookingRider
	}

	if err := c.bookingRepo.Delete(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingGone
		}
		return err
	}

	if err := c.tripRepo.DecrementSeatsTaken(ctx, booking.TripID); err != nil {
		// The trip may already be gone (end/cancel cascades its bookings);
		// the seat no longer exists to release.
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	return nil
}

// RiderBookings retrieves a rider's bookings, newest first.
func (c *BookingCoordinator) RiderBookings(ctx context.Context, riderID string) ([]*domain.Booking, error) {
	if riderID == "" {
		return nil, ErrAuthRequired
	}
	return c.bookingRepo.ListByRiderID(ctx, riderID)
}

// TripBookings retrieves the passenger list for a trip, oldest booking
// first. Only the trip's driver may see it.
func (c *BookingCoordinator) TripBookings(ctx context.Context, tripID, callerID string) ([]*domain.Booking, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if callerID == "" {
		return nil, ErrAuthRequired
	}

	trip, err := c.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripGone
		}
		return nil, err
	}

	if trip.DriverID != callerID {
		return nil, ErrNotTripDriver
	}

	return c.bookingRepo.ListByTripID(ctx, tripID)
}

func (c *BookingCoordinator) validateReserveRequest(req ReserveSeatRequest) error {
	if req.TripID == "" {
		return ErrInvalidTripID
	}
	if req.RiderID == "" {
		return ErrAuthRequired
	}
	if !validLatitude(req.PickupPoint.Lat) || !validLongitude(req.PickupPoint.Lng) {
		return ErrInvalidLocation
	}
	return nil
}

// compensate removes a booking whose seat increment did not land. A failed
// compensation is not fatal here: the booking row is orphaned but the seat
// count stays correct, and the next trip reconciliation removes it.
func (c *BookingCoordinator) compensate(ctx context.Context, bookingID string) {
	_ = c.bookingRepo.Delete(ctx, bookingID)
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func validLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
