// Package geocode resolves coordinates to addresses and free-text queries
// to coordinates across several independent HTTP providers. The gateway
// never fails a caller: provider errors fall through to the next provider
// and finally to a coordinate-only degraded address.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/observability"
)

// Provider is one geocoding backend. Implementations own the mapping from
// their wire schema into models.Address.
type Provider interface {
	Name() string
	ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.Address, error)
	Search(ctx context.Context, query string, bias *models.Coordinates) ([]models.Address, error)
}

const (
	providerTimeout  = 3 * time.Second
	maxSearchResults = 5
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: providerTimeout}
}

// Gateway tries providers in order until one answers.
type Gateway struct {
	Providers []Provider
	Logger    *slog.Logger
}

func NewGateway(logger *slog.Logger, providers ...Provider) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{Providers: providers, Logger: logger}
}

// ReverseGeocode resolves coords to an address. A named preference moves
// that provider to the front of the fallback order. Never returns an error:
// total failure yields a degraded coordinate-only address.
func (g *Gateway) ReverseGeocode(ctx context.Context, coords models.Coordinates, preference string) models.Address {
	for _, p := range g.ordered(preference) {
		addr, err := p.ReverseGeocode(ctx, coords)
		if err != nil {
			observability.GeocodeFallbackTotal.WithLabelValues(p.Name()).Inc()
			g.Logger.Warn("reverse geocode provider failed", "provider", p.Name(), "error", err)
			continue
		}
		return addr
	}
	g.Logger.Warn("all geocode providers failed, degrading to coordinates",
		"lat", coords.Lat, "lng", coords.Lng)
	return DegradedAddress(coords)
}

// SearchAddresses forward-geocodes a free-text query, optionally biased
// toward a location. Returns an empty slice on total failure, never an
// error.
func (g *Gateway) SearchAddresses(ctx context.Context, query string, bias *models.Coordinates) []models.Address {
	for _, p := range g.ordered("") {
		results, err := p.Search(ctx, query, bias)
		if err != nil {
			observability.GeocodeFallbackTotal.WithLabelValues(p.Name()).Inc()
			g.Logger.Warn("address search provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if len(results) > 0 {
			return results
		}
	}
	return []models.Address{}
}

func (g *Gateway) ordered(preference string) []Provider {
	if preference == "" {
		return g.Providers
	}
	out := make([]Provider, 0, len(g.Providers))
	for _, p := range g.Providers {
		if p.Name() == preference {
			out = append(out, p)
		}
	}
	for _, p := range g.Providers {
		if p.Name() != preference {
			out = append(out, p)
		}
	}
	return out
}

// DegradedAddress builds the coordinate-only fallback returned when no
// provider can answer.
func DegradedAddress(coords models.Coordinates) models.Address {
	return models.Address{
		Formatted: fmt.Sprintf("%.6f, %.6f", coords.Lat, coords.Lng),
		Coords:    coords,
	}
}
