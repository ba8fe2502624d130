package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// Nominatim is the OpenStreetMap geocoder. No API key; identified by
// User-Agent per the usage policy.
type Nominatim struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

func NewNominatim(endpoint, userAgent string) *Nominatim {
	if endpoint == "" {
		endpoint = "https://nominatim.openstreetmap.org"
	}
	return &Nominatim{Endpoint: endpoint, UserAgent: userAgent, Client: newHTTPClient()}
}

func (n *Nominatim) Name() string { return "nominatim" }

// nominatimPlace is Nominatim's jsonv2 response shape. Lat/lon arrive as
// strings.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Road     string `json:"road"`
		Suburb   string `json:"suburb"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Country  string `json:"country"`
		Postcode string `json:"postcode"`
	} `json:"address"`
	Error string `json:"error"`
}

func (n *Nominatim) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng, 'f', 6, 64))
	var place nominatimPlace
	if err := n.get(ctx, "/reverse", q, &place); err != nil {
		return models.Address{}, err
	}
	if place.Error != "" {
		return models.Address{}, fmt.Errorf("nominatim: %s", place.Error)
	}
	if place.DisplayName == "" {
		return models.Address{}, fmt.Errorf("nominatim: empty result")
	}
	return n.mapPlace(place), nil
}

func (n *Nominatim) Search(ctx context.Context, query string, bias *models.Coordinates) ([]models.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(maxSearchResults))
	q.Set("addressdetails", "1")
	if bias != nil {
		// ~0.5 degree box around the bias point
		q.Set("viewbox", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f",
			bias.Lng-0.25, bias.Lat+0.25, bias.Lng+0.25, bias.Lat-0.25))
	}
	var places []nominatimPlace
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	out := make([]models.Address, 0, len(places))
	for _, p := range places {
		out = append(out, n.mapPlace(p))
	}
	return out, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.Endpoint+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return err
	}
	if n.UserAgent != "" {
		req.Header.Set("User-Agent", n.UserAgent)
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (n *Nominatim) mapPlace(p nominatimPlace) models.Address {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lng, _ := strconv.ParseFloat(p.Lon, 64)
	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}
	return models.Address{
		Formatted:    p.DisplayName,
		Coords:       models.Coordinates{Lat: lat, Lng: lng},
		Street:       p.Address.Road,
		Neighborhood: p.Address.Suburb,
		City:         city,
		State:        p.Address.State,
		Country:      p.Address.Country,
		PostalCode:   p.Address.Postcode,
		PlaceID:      strconv.FormatInt(p.PlaceID, 10),
		Provider:     n.Name(),
	}
}
