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

// LocationIQ is a commercial geocoder with a Nominatim-derived but not
// identical schema: place_id is a string and the address block carries a
// separate name field.
type LocationIQ struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewLocationIQ(endpoint, apiKey string) *LocationIQ {
	if endpoint == "" {
		endpoint = "https://us1.locationiq.com/v1"
	}
	return &LocationIQ{Endpoint: endpoint, APIKey: apiKey, Client: newHTTPClient()}
}

func (l *LocationIQ) Name() string { return "locationiq" }

type locationIQPlace struct {
	PlaceID     string `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Name          string `json:"name"`
		HouseNumber   string `json:"house_number"`
		Road          string `json:"road"`
		Neighbourhood string `json:"neighbourhood"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		State         string `json:"state"`
		Country       string `json:"country"`
		Postcode      string `json:"postcode"`
	} `json:"address"`
}

type locationIQError struct {
	Error string `json:"error"`
}

func (l *LocationIQ) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.Address, error) {
	q := url.Values{}
	q.Set("key", l.APIKey)
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng, 'f', 6, 64))
	var place locationIQPlace
	if err := l.get(ctx, "/reverse", q, &place); err != nil {
		return models.Address{}, err
	}
	if place.DisplayName == "" {
		return models.Address{}, fmt.Errorf("locationiq: empty result")
	}
	return l.mapPlace(place), nil
}

func (l *LocationIQ) Search(ctx context.Context, query string, bias *models.Coordinates) ([]models.Address, error) {
	q := url.Values{}
	q.Set("key", l.APIKey)
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(maxSearchResults))
	q.Set("addressdetails", "1")
	var places []locationIQPlace
	if err := l.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	out := make([]models.Address, 0, len(places))
	for _, p := range places {
		out = append(out, l.mapPlace(p))
	}
	return out, nil
}

func (l *LocationIQ) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.Endpoint+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr locationIQError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("locationiq: %s", apiErr.Error)
		}
		return fmt.Errorf("locationiq: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (l *LocationIQ) mapPlace(p locationIQPlace) models.Address {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lng, _ := strconv.ParseFloat(p.Lon, 64)
	street := p.Address.Road
	if street != "" && p.Address.HouseNumber != "" {
		street = p.Address.HouseNumber + " " + street
	}
	neighborhood := p.Address.Neighbourhood
	if neighborhood == "" {
		neighborhood = p.Address.Suburb
	}
	return models.Address{
		Formatted:    p.DisplayName,
		Coords:       models.Coordinates{Lat: lat, Lng: lng},
		Street:       street,
		Neighborhood: neighborhood,
		City:         p.Address.City,
		State:        p.Address.State,
		Country:      p.Address.Country,
		PostalCode:   p.Address.Postcode,
		PlaceID:      p.PlaceID,
		Provider:     l.Name(),
	}
}
