package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const tripStartKey = "trips:starts"

// TripStart represents a trip's start position in the geo index.
type TripStart struct {
	TripID string
	Lat    float64
	Lng    float64
}

// LocationStore indexes trip start coordinates in Redis so discovery can
// be narrowed to trips departing near a rider.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// IndexTripStart stores a trip's start coordinate using GEOADD.
func (s *LocationStore) IndexTripStart(ctx context.Context, tripID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, tripStartKey, &redis.GeoLocation{
		Name:      tripID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyTrips returns trip IDs starting within the given radius (in
// kilometers), closest first.
func (s *LocationStore) FindNearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripStart, error) {
	results, err := s.client.GeoRadius(ctx, tripStartKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	starts := make([]TripStart, 0, len(results))
	for _, r := range results {
		starts = append(starts, TripStart{
			TripID: r.Name,
			Lat:    r.Latitude,
			Lng:    r.Longitude,
		})
	}

	return starts, nil
}

// RemoveTripStart removes a trip from the geo index.
func (s *LocationStore) RemoveTripStart(ctx context.Context, tripID string) error {
	return s.client.ZRem(ctx, tripStartKey, tripID).Err()
}
