package service

import "errors"

var (
	// ErrAuthRequired is returned when no authenticated user is present.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNoSeatsAvailable is returned when a trip has no open seats.
	ErrNoSeatsAvailable = errors.New("no seats available")

	// ErrConcurrentBookingConflict is returned when the seat reservation
	// lost a race to a concurrent booking. Retryable.
	ErrConcurrentBookingConflict = errors.New("concurrent booking conflict")

	// ErrTripGone is returned when the trip was deleted out from under an
	// in-progress flow.
	ErrTripGone = errors.New("trip no longer exists")

	// ErrBookingGone is returned when the booking was deleted out from
	// under an in-progress flow.
	ErrBookingGone = errors.New("booking no longer exists")

	// ErrTripAlreadyStarted is returned when starting a trip that is
	// already IN_PROGRESS.
	ErrTripAlreadyStarted = errors.New("trip already started")

	// ErrTripBusy is returned when another lifecycle operation holds the
	// trip lock.
	ErrTripBusy = errors.New("trip operation already in progress")

	// ErrNotTripDriver is returned when a lifecycle operation is attempted
	// by someone other than the trip's driver.
	ErrNotTripDriver = errors.New("caller is not the trip driver")

	// ErrNotBookingRider is returned when a rider tries to release a seat
	// reserved by someone else.
	ErrNotBookingRider = errors.New("caller is not the booking rider")

	// ErrRouteGeometryUnavailable is returned when a trip's path is
	// missing, undecodable, or has fewer than 2 points.
	ErrRouteGeometryUnavailable = errors.New("route geometry unavailable")

	// ErrDirectionsUnavailable is returned when the directions provider
	// reports a non-OK status or zero routes.
	ErrDirectionsUnavailable = errors.New("directions provider unavailable")

	// ErrGeocodeFailed is returned when an address cannot be resolved to
	// a coordinate.
	ErrGeocodeFailed = errors.New("geocoding failed")

	// ErrAddressAmbiguous is returned when an address resolves to several
	// locations and the caller must disambiguate.
	ErrAddressAmbiguous = errors.New("address matches multiple locations")

	// ErrRequestSuperseded is returned when a geocode or route response
	// arrives after a newer request for the same field was issued.
	ErrRequestSuperseded = errors.New("request superseded by a newer one")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidDestination is returned when the destination is not a
	// known campus destination.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrInvalidSeatCount is returned when total seats is not positive.
	ErrInvalidSeatCount = errors.New("invalid seat count")

	// ErrInvalidDeparture is returned when the departure time is missing.
	ErrInvalidDeparture = errors.New("invalid departure time")

	// ErrInvalidRoute is returned when the confirmed route polyline is
	// missing or undecodable.
	ErrInvalidRoute = errors.New("invalid route")
)
