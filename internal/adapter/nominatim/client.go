// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/ice-news-geomap/internal/adapter/httpjson"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies the application as the usage policy requires.
	DefaultUserAgent = "ice_gis_app/1.0"
)

// Client implements domain.Geocoder using Nominatim.
type Client struct {
	baseURL     string
	userAgent   string
	countryCode string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Nominatim client. Empty baseURL and userAgent select the defaults.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:     baseURL,
		userAgent:   userAgent,
		countryCode: "us",
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// ForwardGeocode returns the best match for query, or an empty result when
// Nominatim finds nothing.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if c.countryCode != "" {
		params.Set("countrycodes", c.countryCode)
	}

	header := http.Header{
		"User-Agent": {c.userAgent},
		"Accept":     {"application/json"},
	}
	var places []place
	if err := httpjson.Get(ctx, c.httpClient, "nominatim", c.baseURL+"/search?"+params.Encode(), header, &places); err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(places) == 0 {
		c.logger.Debug("nominatim returned no results", "query", query)
		return domain.GeocodingResult{}, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.GeocodingResult{
		Found:            true,
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: p.DisplayName,
		PlaceName:        p.Name,
		Confidence:       p.Importance,
	}, nil
}

// Nominatim jsonv2 response types. Coordinates arrive as strings.

type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Importance  float64 `json:"importance"`
}
