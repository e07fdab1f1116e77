package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
// Found is set whenever the provider returned a place; the address fields
// are optional.
type GeocodingResult struct {
	Found            bool
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-text place queries to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a single-location query to coordinates. An empty
	// result with a nil error means no match.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}

// GeocodeStatus distinguishes why a coordinate was chosen.
type GeocodeStatus string

const (
	GeocodeResolved       GeocodeStatus = "resolved"
	GeocodeNotFound       GeocodeStatus = "not_found"
	GeocodeTransientError GeocodeStatus = "transient_error"
)

// Resolution is the outcome of locating a place name. Coordinate is always
// usable; for anything but GeocodeResolved it is the configured fallback.
type Resolution struct {
	Coordinate Coordinate    `json:"coordinate"`
	Status     GeocodeStatus `json:"status"`
	Query      string        `json:"query"`
	Address    string        `json:"address,omitempty"`
}
