package geo

import (
	"math"
	"strings"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// polylineScale fixes coordinate precision at 5 decimal digits, the grid
// used by the encoded-polyline format.
const polylineScale = 1e5

// DecodePolyline decodes a delta-encoded polyline string into an ordered
// coordinate sequence. Empty or malformed input yields an empty sequence
// rather than an error, so callers can treat "no route yet" and "bad
// geometry" uniformly.
func DecodePolyline(encoded string) []LatLng {
	if encoded == "" {
		return nil
	}

	var points []LatLng
	lat, lng := 0, 0

	i := 0
	for i < len(encoded) {
		dLat, next, ok := decodeSignedValue(encoded, i)
		if !ok {
			return nil
		}
		i = next
		lat += dLat

		dLng, next, ok := decodeSignedValue(encoded, i)
		if !ok {
			return nil
		}
		i = next
		lng += dLng

		points = append(points, LatLng{
			Lat: float64(lat) / polylineScale,
			Lng: float64(lng) / polylineScale,
		})
	}

	return points
}

// EncodePolyline encodes an ordered coordinate sequence into the compact
// delta-encoded string form. Coordinates are rounded to the 1e-5 degree
// grid, so EncodePolyline and DecodePolyline round-trip losslessly at that
// precision.
func EncodePolyline(points []LatLng) string {
	var sb strings.Builder
	prevLat, prevLng := 0, 0

	for _, p := range points {
		lat := int(math.Round(p.Lat * polylineScale))
		lng := int(math.Round(p.Lng * polylineScale))

		encodeSignedValue(&sb, lat-prevLat)
		encodeSignedValue(&sb, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

// decodeSignedValue reads one zig-zag encoded value starting at index i.
// Returns the value, the index of the next unread byte, and whether the
// chunk sequence was well formed.
func decodeSignedValue(s string, i int) (int, int, bool) {
	result := 0
	shift := 0

	for {
		if i >= len(s) {
			return 0, 0, false
		}
		c := int(s[i]) - 63
		if c < 0 || c > 63 {
			return 0, 0, false
		}
		i++

		result |= (c & 0x1f) << shift
		shift += 5

		if c < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		result = ^(result >> 1)
	} else {
		result >>= 1
	}

	return result, i, true
}

func encodeSignedValue(sb *strings.Builder, v int) {
	v <<= 1
	if v < 0 {
		v = ^v
	}

	for v >= 0x20 {
		sb.WriteByte(byte((0x20 | (v & 0x1f)) + 63))
		v >>= 5
	}
	sb.WriteByte(byte(v + 63))
}
