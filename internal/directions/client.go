package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carpool/internal/geo"
)

// Client performs route and geocoding lookups against a Google-compatible
// directions HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a directions client for the given API endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ensure Client implements Provider.
var _ Provider = (*Client)(nil)

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Route queries the directions endpoint with alternatives enabled.
func (c *Client) Route(ctx context.Context, origin, destination geo.LatLng, waypoints []geo.LatLng, mode TravelMode) ([]RouteCandidate, error) {
	q := url.Values{}
	q.Set("origin", formatLatLng(origin))
	q.Set("destination", formatLatLng(destination))
	q.Set("mode", string(mode))
	q.Set("alternatives", "true")
	q.Set("key", c.apiKey)
	if len(waypoints) > 0 {
		parts := make([]string, len(waypoints))
		for i, w := range waypoints {
			parts[i] = formatLatLng(w)
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}

	var out directionsResponse
	if err := c.getJSON(ctx, "/maps/api/directions/json", q, &out); err != nil {
		return nil, err
	}

	// "OK with zero routes" and a non-OK status are the same failure to us.
	if out.Status != "OK" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, out.Status)
	}

	candidates := make([]RouteCandidate, 0, len(out.Routes))
	for i, route := range out.Routes {
		candidate := RouteCandidate{
			Index:    i,
			Summary:  route.Summary,
			Polyline: route.OverviewPolyline.Points,
		}
		if candidate.Summary == "" {
			candidate.Summary = fmt.Sprintf("Route %d", i+1)
		}
		// Waypointed routes come back as one leg per waypoint pair;
		// the candidate totals cover the whole route.
		for _, leg := range route.Legs {
			candidate.DurationSeconds += leg.Duration.Value
			candidate.DistanceMeters += leg.Distance.Value
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves an address to a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (geo.LatLng, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	var out geocodeResponse
	if err := c.getJSON(ctx, "/maps/api/geocode/json", q, &out); err != nil {
		return geo.LatLng{}, err
	}

	if out.Status != "OK" || len(out.Results) == 0 {
		return geo.LatLng{}, fmt.Errorf("%w: status %s", ErrNotFound, out.Status)
	}
	if len(out.Results) > 1 {
		return geo.LatLng{}, fmt.Errorf("%w: %d matches", ErrAmbiguous, len(out.Results))
	}

	loc := out.Results[0].Geometry.Location
	return geo.LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// ReverseGeocode resolves a coordinate to an address.
func (c *Client) ReverseGeocode(ctx context.Context, point geo.LatLng) (string, error) {
	q := url.Values{}
	q.Set("latlng", formatLatLng(point))
	q.Set("key", c.apiKey)

	var out geocodeResponse
	if err := c.getJSON(ctx, "/maps/api/geocode/json", q, &out); err != nil {
		return "", err
	}

	if out.Status != "OK" || len(out.Results) == 0 {
		return "", fmt.Errorf("%w: status %s", ErrNotFound, out.Status)
	}

	return out.Results[0].FormattedAddress, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func formatLatLng(p geo.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
