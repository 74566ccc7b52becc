package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `id, driver_id, destination, start_lat, start_lng, polyline,
		departure_time, estimated_arrival_time, actual_start_time, total_seats, seats_taken, status`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var actualStart sql.NullTime
	if !trip.ActualStartTime.IsZero() {
		actualStart = sql.NullTime{Time: trip.ActualStartTime, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		trip.ID,
		trip.DriverID,
		trip.Destination,
		trip.StartLat,
		trip.StartLng,
		trip.Polyline,
		trip.DepartureTime,
		trip.EstimatedArrivalTime,
		actualStart,
		trip.TotalSeats,
		trip.SeatsTaken,
		trip.Status,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// ListScheduled retrieves SCHEDULED trips, optionally filtered by destination.
func (r *TripRepository) ListScheduled(ctx context.Context, destination domain.Destination) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE status = $1`
	args := []any{domain.TripStatusScheduled}

	if destination != "" {
		query += ` AND destination = $2`
		args = append(args, destination)
	}
	query += ` ORDER BY departure_time ASC`

	return r.queryTrips(ctx, query, args...)
}

// ListByDriverID retrieves a driver's trips, soonest departure first.
func (r *TripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 ORDER BY departure_time ASC`
	return r.queryTrips(ctx, query, driverID)
}

// IncrementSeatsTaken performs the optimistic-concurrency seat increment:
// the update only applies while seats_taken still holds the value the
// caller previously observed.
func (r *TripRepository) IncrementSeatsTaken(ctx context.Context, tripID string, expectedSeatsTaken int) (bool, error) {
	query := `
		UPDATE trips
		SET seats_taken = seats_taken + 1
		WHERE id = $1 AND seats_taken = $2
	`

	result, err := r.db.ExecContext(ctx, query, tripID, expectedSeatsTaken)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// DecrementSeatsTaken releases one seat with a floor at zero.
func (r *TripRepository) DecrementSeatsTaken(ctx context.Context, tripID string) error {
	query := `
		UPDATE trips
		SET seats_taken = GREATEST(seats_taken - 1, 0)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, tripID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkInProgress transitions a SCHEDULED trip to IN_PROGRESS.
func (r *TripRepository) MarkInProgress(ctx context.Context, tripID string, actualStartTime time.Time) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1, actual_start_time = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.TripStatusInProgress, actualStartTime, tripID, domain.TripStatusScheduled)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

// Delete removes the trip and cascades to its bookings inside one
// transaction, so a partial failure never leaves bookings without seats
// accounting behind them.
func (r *TripRepository) Delete(ctx context.Context, tripID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE trip_id = $1`, tripID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit()
}

func (r *TripRepository) queryTrips(ctx context.Context, query string, args ...any) ([]*domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var actualStart sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.DriverID,
		&trip.Destination,
		&trip.StartLat,
		&trip.StartLng,
		&trip.Polyline,
		&trip.DepartureTime,
		&trip.EstimatedArrivalTime,
		&actualStart,
		&trip.TotalSeats,
		&trip.SeatsTaken,
		&trip.Status,
	)
	if err != nil {
		return nil, err
	}

	if actualStart.Valid {
		trip.ActualStartTime = actualStart.Time
	}

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
