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

// OpenCage wraps the OpenCage geocoding API. Unlike the Nominatim family it
// nests results under a results array with numeric geometry and a status
// block.
type OpenCage struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewOpenCage(endpoint, apiKey string) *OpenCage {
	if endpoint == "" {
		endpoint = "https://api.opencagedata.com/geocode/v1"
	}
	return &OpenCage{Endpoint: endpoint, APIKey: apiKey, Client: newHTTPClient()}
}

func (o *OpenCage) Name() string { return "opencage" }

type openCageResponse struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Results []openCageResult `json:"results"`
}

type openCageResult struct {
	Formatted string `json:"formatted"`
	Geometry  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
	Components struct {
		Road     string `json:"road"`
		Suburb   string `json:"suburb"`
		City     string `json:"city"`
		Town     string `json:"town"`
		State    string `json:"state"`
		Country  string `json:"country"`
		Postcode string `json:"postcode"`
	} `json:"components"`
	Annotations struct {
		Geohash string `json:"geohash"`
	} `json:"annotations"`
}

func (o *OpenCage) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.Address, error) {
	q := fmt.Sprintf("%.6f+%.6f", coords.Lat, coords.Lng)
	results, err := o.query(ctx, q)
	if err != nil {
		return models.Address{}, err
	}
	if len(results) == 0 {
		return models.Address{}, fmt.Errorf("opencage: no results")
	}
	return o.mapResult(results[0]), nil
}

func (o *OpenCage) Search(ctx context.Context, query string, bias *models.Coordinates) ([]models.Address, error) {
	results, err := o.query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]models.Address, 0, len(results))
	for _, r := range results {
		out = append(out, o.mapResult(r))
	}
	return out, nil
}

func (o *OpenCage) query(ctx context.Context, q string) ([]openCageResult, error) {
	vals := url.Values{}
	vals.Set("q", q)
	vals.Set("key", o.APIKey)
	vals.Set("limit", strconv.Itoa(maxSearchResults))
	vals.Set("no_annotations", "0")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		o.Endpoint+"/json?"+vals.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out openCageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Status.Code != http.StatusOK {
		return nil, fmt.Errorf("opencage: %d %s", out.Status.Code, out.Status.Message)
	}
	return out.Results, nil
}

func (o *OpenCage) mapResult(r openCageResult) models.Address {
	city := r.Components.City
	if city == "" {
		city = r.Components.Town
	}
	return models.Address{
		Formatted:    r.Formatted,
		Coords:       models.Coordinates{Lat: r.Geometry.Lat, Lng: r.Geometry.Lng},
		Street:       r.Components.Road,
		Neighborhood: r.Components.Suburb,
		City:         city,
		State:        r.Components.State,
		Country:      r.Components.Country,
		PostalCode:   r.Components.Postcode,
		PlaceID:      r.Annotations.Geohash,
		Provider:     o.Name(),
	}
}
