package geo

import "math"

const earthRadiusMeters = 6371000.0

// PathPosition locates a point on a polyline path: the coordinate itself,
// the index of the segment it falls on, and the clamp ratio within that
// segment (0 at the segment start, 1 at its end).
type PathPosition struct {
	Point        LatLng
	SegmentIndex int
	T            float64
}

// NearestPointOnPath projects query onto every segment of path and returns
// the closest projection. Projection treats coordinates as a flat local
// plane, which is accurate at campus scale; reported distances use the
// geodesic functions below instead.
//
// Returns ok == false for paths with fewer than 2 points. The result is
// deterministic: ties are broken by the first-encountered segment, and a
// query identical to an interior path vertex reports t=0 on the segment
// starting at that vertex.
func NearestPointOnPath(query LatLng, path []LatLng) (PathPosition, bool) {
	if len(path) < 2 {
		return PathPosition{}, false
	}

	best := PathPosition{}
	bestDist := math.Inf(1)

	for i := 0; i < len(path)-1; i++ {
		candidate, t := closestPointOnSegment(query, path[i], path[i+1])
		dist := squaredPlanarDistance(query, candidate)
		if dist < bestDist {
			bestDist = dist
			best = PathPosition{Point: candidate, SegmentIndex: i, T: t}
		}
	}

	// Normalize an interior segment endpoint to the start of the segment
	// that follows it, so vertex hits always report t=0.
	if best.T == 1 && best.SegmentIndex < len(path)-2 {
		best.SegmentIndex++
		best.T = 0
	}

	return best, true
}

// closestPointOnSegment projects query onto the segment [start, end] using
// the scalar projection formula with t clamped to [0, 1].
func closestPointOnSegment(query, start, end LatLng) (LatLng, float64) {
	dLat := end.Lat - start.Lat
	dLng := end.Lng - start.Lng
	lengthSquared := dLat*dLat + dLng*dLng

	if lengthSquared == 0 {
		return start, 0
	}

	t := ((query.Lat-start.Lat)*dLat + (query.Lng-start.Lng)*dLng) / lengthSquared
	t = clamp(t, 0, 1)

	return LatLng{
		Lat: start.Lat + t*dLat,
		Lng: start.Lng + t*dLng,
	}, t
}

func squaredPlanarDistance(a, b LatLng) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// HaversineMeters returns the great-circle distance between two coordinates
// in meters.
func HaversineMeters(a, b LatLng) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// PathDistanceMeters accumulates the geodesic length of the whole path.
func PathDistanceMeters(path []LatLng) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += HaversineMeters(path[i], path[i+1])
	}
	return total
}

// DistanceAlongPath returns the geodesic distance from the start of the
// path to the position (segmentIndex, t) on it: the full length of every
// segment before segmentIndex plus t times the winning segment's length.
func DistanceAlongPath(path []LatLng, segmentIndex int, t float64) float64 {
	if len(path) < 2 || segmentIndex < 0 || segmentIndex >= len(path)-1 {
		return 0
	}

	total := 0.0
	for i := 0; i < segmentIndex; i++ {
		total += HaversineMeters(path[i], path[i+1])
	}
	total += t * HaversineMeters(path[segmentIndex], path[segmentIndex+1])

	return total
}
