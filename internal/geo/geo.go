package geo

import (
	"math"
	"sync"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle math.
const EarthRadiusKm = 6371.0

// Valid reports whether lat/lng form a usable WGS84 coordinate. Out-of-range
// and NaN values are rejected, never clamped.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidCoords is Valid lifted to the Coordinates model.
func ValidCoords(c models.Coordinates) bool {
	return Valid(c.Lat, c.Lng)
}

// Haversine returns the great-circle distance between two points in
// kilometers. Symmetric; zero for identical points.
func Haversine(a, b models.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// WithinRadius reports whether point lies within radiusKm of center.
func WithinRadius(center, point models.Coordinates, radiusKm float64) bool {
	return Haversine(center, point) <= radiusKm
}

// Index is an in-memory mechanic location index used for local runs and
// tests. Production deployments use the Redis-backed index.
type Index struct {
	mu        sync.RWMutex
	mechanics map[string]models.Mechanic
}

func NewIndex() *Index {
	return &Index{mechanics: make(map[string]models.Mechanic)}
}

func (g *Index) Upsert(m models.Mechanic) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m.LocUpdatedAt = time.Now()
	g.mechanics[m.ID] = m
}

// Nearby returns up to limit mechanics ordered by distance from the given
// point. Naive scan; candidate pools here are small enough that a geohash
// layer is not worth its complexity.
func (g *Index) Nearby(lat, lng float64, limit int) []models.Mechanic {
	g.mu.RLock()
	defer g.mu.RUnlock()
	origin := models.Coordinates{Lat: lat, Lng: lng}
	type pair struct {
		m    models.Mechanic
		dist float64
	}
	arr := make([]pair, 0, len(g.mechanics))
	for _, m := range g.mechanics {
		arr = append(arr, pair{m, Haversine(origin, m.Loc)})
	}
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	// partial selection sort for top-N
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.Mechanic, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].m)
	}
	return out
}
