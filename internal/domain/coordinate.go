package domain

import (
	"fmt"
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

const (
	earthRadiusKm    = 6371.0088
	geohashPrecision = 9
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the great-circle distance to other in kilometres.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	a := s2.LatLngFromDegrees(c.Lat, c.Lon)
	b := s2.LatLngFromDegrees(other.Lat, other.Lon)
	return a.Distance(b).Radians() * earthRadiusKm
}

// Geohash encodes the coordinate at roughly five-metre precision.
func (c Coordinate) Geohash() string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, geohashPrecision)
}

// Round snaps both axes to the given number of decimal places.
func (c Coordinate) Round(places int) Coordinate {
	p := math.Pow(10, float64(places))
	return Coordinate{
		Lat: math.Round(c.Lat*p) / p,
		Lon: math.Round(c.Lon*p) / p,
	}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}
