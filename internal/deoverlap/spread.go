// Package deoverlap nudges coincident map coordinates apart so every marker
// stays individually clickable.
package deoverlap

import "github.com/couchcryptid/ice-news-geomap/internal/domain"

// DefaultStep is the per-attempt offset in degrees, roughly one kilometre.
const DefaultStep = 0.01

// precision is the number of decimal places compared when testing uniqueness.
const precision = 6

// Spread returns a copy of coords in which no two points are equal. Points
// are processed in order; a point that collides with an earlier one is moved
// to orig + step*attempt on both axes for attempt = 1, 2, ... until free.
// The i-th output is therefore within step*len(coords) degrees of its input
// on each axis.
func Spread(coords []domain.Coordinate, step float64) []domain.Coordinate {
	if step <= 0 {
		step = DefaultStep
	}
	used := make(map[domain.Coordinate]struct{}, len(coords))
	out := make([]domain.Coordinate, len(coords))

	for i, orig := range coords {
		c := orig.Round(precision)
		for attempt := 1; ; attempt++ {
			if _, taken := used[c]; !taken {
				break
			}
			offset := step * float64(attempt)
			c = domain.Coordinate{Lat: orig.Lat + offset, Lon: orig.Lon + offset}.Round(precision)
		}
		used[c] = struct{}{}
		out[i] = c
	}
	return out
}
