package service

import (
	"context"
	"math"
	"time"

	"carpool/internal/directions"
	"carpool/internal/domain"
	"carpool/internal/geo"
	internalRedis "carpool/internal/redis"
)

// averageWalkSpeedMetersPerMinute is the fixed walking speed used to turn
// walking distance into minutes.
const averageWalkSpeedMetersPerMinute = 80.0

// MeetingPlan is the resolved placement of a rider on a trip's route: the
// meeting point, the rider's walk to it, and a proportional estimate of
// when the driver passes it.
type MeetingPlan struct {
	Point                 geo.LatLng
	WalkingDistanceMeters int
	WalkMinutes           int
	// RouteFraction is the share of the route covered before the meeting
	// point, in [0, 1].
	RouteFraction float64
	MeetingETA    time.Time
}

// MeetingPointResolver places a rider on a trip's path and derives a
// meeting time. Resolution is pure geometry over the decoded polyline; the
// optional walking-route refinement queries the directions provider and is
// reserved for a trip the rider has actually selected.
type MeetingPointResolver struct {
	provider directions.Provider
	cache    *internalRedis.CacheStore
}

// NewMeetingPointResolver creates a new MeetingPointResolver. cache may be
// nil, in which case every refinement hits the provider.
func NewMeetingPointResolver(provider directions.Provider, cache *internalRedis.CacheStore) *MeetingPointResolver {
	return &MeetingPointResolver{provider: provider, cache: cache}
}

// Resolve computes the meeting plan for a rider against one trip.
//
// Fails with ErrRouteGeometryUnavailable when the trip has no usable path
// (no confirmed route yet, undecodable polyline, or fewer than 2 points);
// callers exclude such trips from ranked lists instead of aborting.
func (r *MeetingPointResolver) Resolve(riderLocation geo.LatLng, trip *domain.Trip) (*MeetingPlan, error) {
	path := geo.DecodePolyline(trip.Polyline)
	if len(path) < 2 {
		return nil, ErrRouteGeometryUnavailable
	}

	position, ok := geo.NearestPointOnPath(riderLocation, path)
	if !ok {
		return nil, ErrRouteGeometryUnavailable
	}

	walkingDistance := geo.HaversineMeters(riderLocation, position.Point)
	walkMinutes := int(math.Round(walkingDistance / averageWalkSpeedMetersPerMinute))
	if walkMinutes < 1 {
		walkMinutes = 1
	}

	totalDistance := geo.PathDistanceMeters(path)
	ratio := 0.0
	if totalDistance > 0 {
		along := geo.DistanceAlongPath(path, position.SegmentIndex, position.T)
		ratio = along / totalDistance
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
	}

	return &MeetingPlan{
		Point:                 position.Point,
		WalkingDistanceMeters: int(math.Round(walkingDistance)),
		WalkMinutes:           walkMinutes,
		RouteFraction:         ratio,
		MeetingETA:            meetingETA(trip, ratio),
	}, nil
}

// meetingETA interpolates elapsed trip time linearly by the fraction of
// route distance covered, assuming roughly uniform speed. Once the trip is
// IN_PROGRESS both anchors shift by (actualStart - departure), preserving
// the leg duration but anchoring it to the real departure.
func meetingETA(trip *domain.Trip, ratio float64) time.Time {
	departure := trip.DepartureTime
	arrival := trip.EstimatedArrivalTime

	if trip.Status == domain.TripStatusInProgress && !trip.ActualStartTime.IsZero() {
		shift := trip.ActualStartTime.Sub(trip.DepartureTime)
		departure = departure.Add(shift)
		arrival = arrival.Add(shift)
	}

	if !arrival.After(departure) {
		return arrival
	}

	leg := time.Duration(ratio * float64(arrival.Sub(departure)))
	return departure.Add(leg)
}

// RefineWalkingRoute fetches an accurate pedestrian route from the rider
// to an already-resolved meeting point. Results are cached under a
// normalized rider-location key so repeated resolves for an unchanged
// position do not re-query the provider.
func (r *MeetingPointResolver) RefineWalkingRoute(ctx context.Context, riderLocation geo.LatLng, tripID string, meetingPoint geo.LatLng) (*directions.WalkingRoute, error) {
	key := internalRedis.WalkKey(tripID, riderLocation.Lat, riderLocation.Lng)

	if r.cache != nil {
		cached, err := r.cache.GetWalkingRoute(ctx, key)
		if err == nil && cached != nil {
			return &directions.WalkingRoute{
				DurationSeconds: cached.DurationSeconds,
				DistanceMeters:  cached.DistanceMeters,
				Polyline:        cached.Polyline,
			}, nil
		}
	}

	candidates, err := r.provider.Route(ctx, riderLocation, meetingPoint, nil, directions.ModeWalking)
	if err != nil || len(candidates) == 0 {
		return nil, ErrDirectionsUnavailable
	}

	best := candidates[0]
	route := &directions.WalkingRoute{
		DurationSeconds: best.DurationSeconds,
		DistanceMeters:  best.DistanceMeters,
		Polyline:        best.Polyline,
	}

	if r.cache != nil {
		_ = r.cache.SetWalkingRoute(ctx, key, &internalRedis.CachedWalkingRoute{
			DurationSeconds: route.DurationSeconds,
			DistanceMeters:  route.DistanceMeters,
			Polyline:        route.Polyline,
		})
	}

	return route, nil
}
