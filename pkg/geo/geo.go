// Package geo implements great-circle distance and radius matching.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Located is anything that may carry coordinates.
type Located interface {
	Coordinates() (lat, lng float64, ok bool)
}

// Match is a candidate with its distance from the search origin.
type Match[T Located] struct {
	Item       T       `json:"item"`
	DistanceKm float64 `json:"distance_km"`
}

// Distance returns the haversine distance in kilometres.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push a slightly above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidCoordinates reports whether lat/lng are finite and within range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// FindNearby keeps candidates within radiusKm of the origin, nearest first.
// Candidates without valid coordinates are dropped.
func FindNearby[T Located](candidates []T, originLat, originLng, radiusKm float64) []Match[T] {
	matches := make([]Match[T], 0, len(candidates))
	if radiusKm < 0 || !ValidCoordinates(originLat, originLng) {
		return matches
	}

	for _, c := range candidates {
		lat, lng, ok := c.Coordinates()
		if !ok || !ValidCoordinates(lat, lng) {
			continue
		}
		d := Distance(originLat, originLng, lat, lng)
		if d <= radiusKm {
			matches = append(matches, Match[T]{Item: c, DistanceKm: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
