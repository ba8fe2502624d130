package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

type fakeProvider struct {
	name    string
	addr    models.Address
	results []models.Address
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.Address, error) {
	f.calls++
	return f.addr, f.err
}

func (f *fakeProvider) Search(ctx context.Context, query string, bias *models.Coordinates) ([]models.Address, error) {
	f.calls++
	return f.results, f.err
}

func TestReverseGeocodeFallsThroughToSecondProvider(t *testing.T) {
	broken := &fakeProvider{name: "a", err: errors.New("boom")}
	working := &fakeProvider{name: "b", addr: models.Address{Formatted: "Oxford St, Accra", Provider: "b"}}
	g := NewGateway(nil, broken, working)

	addr := g.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.6, Lng: -0.2}, "")
	if addr.Formatted != "Oxford St, Accra" {
		t.Fatalf("expected fallback result, got %+v", addr)
	}
	if broken.calls != 1 || working.calls != 1 {
		t.Fatalf("unexpected call counts: %d, %d", broken.calls, working.calls)
	}
}

func TestReverseGeocodeAllProvidersFailDegrades(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("down")}
	c := &fakeProvider{name: "c", err: errors.New("down")}
	g := NewGateway(nil, a, b, c)

	addr := g.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.6, Lng: -0.2}, "")
	if !strings.Contains(addr.Formatted, "5.600000") || !strings.Contains(addr.Formatted, "-0.200000") {
		t.Fatalf("degraded address should contain coordinates, got %q", addr.Formatted)
	}
	if addr.Coords.Lat != 5.6 || addr.Coords.Lng != -0.2 {
		t.Fatalf("degraded address should keep coords, got %+v", addr.Coords)
	}
}

func TestReverseGeocodePreferenceReorders(t *testing.T) {
	a := &fakeProvider{name: "a", addr: models.Address{Formatted: "from a"}}
	b := &fakeProvider{name: "b", addr: models.Address{Formatted: "from b"}}
	g := NewGateway(nil, a, b)

	addr := g.ReverseGeocode(context.Background(), models.Coordinates{Lat: 1, Lng: 1}, "b")
	if addr.Formatted != "from b" {
		t.Fatalf("expected preferred provider, got %q", addr.Formatted)
	}
	if a.calls != 0 {
		t.Fatal("non-preferred provider should not be called when preferred succeeds")
	}
}

func TestSearchAddressesTotalFailureReturnsEmpty(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	g := NewGateway(nil, a)
	got := g.SearchAddresses(context.Background(), "auto shop", nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestNominatimReverseParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"place_id": 12345,
			"lat": "5.6031", "lon": "-0.1870",
			"display_name": "Independence Ave, Osu, Accra, Greater Accra, Ghana",
			"address": {"road": "Independence Ave", "suburb": "Osu", "city": "Accra",
				"state": "Greater Accra", "country": "Ghana", "postcode": "GA-145"}
		}`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, "carcareapp-test")
	addr, err := n.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.6031, Lng: -0.187})
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if addr.City != "Accra" || addr.Street != "Independence Ave" || addr.PlaceID != "12345" {
		t.Fatalf("bad mapping: %+v", addr)
	}
	if addr.Provider != "nominatim" {
		t.Fatalf("provider not stamped: %q", addr.Provider)
	}
}

func TestLocationIQErrorStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid key"}`))
	}))
	defer srv.Close()

	l := NewLocationIQ(srv.URL, "bad-key")
	_, err := l.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.6, Lng: -0.2})
	if err == nil || !strings.Contains(err.Error(), "Invalid key") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestOpenCageReverseParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": {"code": 200, "message": "OK"},
			"results": [{
				"formatted": "Ring Road, Accra, Ghana",
				"geometry": {"lat": 5.58, "lng": -0.22},
				"components": {"road": "Ring Road", "town": "Accra", "country": "Ghana"},
				"annotations": {"geohash": "s0m3h4sh"}
			}]
		}`))
	}))
	defer srv.Close()

	o := NewOpenCage(srv.URL, "key")
	addr, err := o.ReverseGeocode(context.Background(), models.Coordinates{Lat: 5.58, Lng: -0.22})
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if addr.City != "Accra" || addr.Coords.Lng != -0.22 || addr.PlaceID != "s0m3h4sh" {
		t.Fatalf("bad mapping: %+v", addr)
	}
}
