package scoring

import (
	"testing"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

var now = time.Date(2025, 6, 11, 10, 30, 0, 0, time.UTC)

func availableMechanic() models.Mechanic {
	return models.Mechanic{
		ID:            "m1",
		LocUpdatedAt:  now.Add(-5 * time.Minute),
		MaxActiveJobs: 3,
		ActiveJobs:    0,
		HourlyRate:    100,
		Rating:        4.5,
	}
}

func TestScoreAlwaysWithinBounds(t *testing.T) {
	var s Scorer
	cases := []struct {
		name string
		m    models.Mechanic
		dist float64
		req  models.MatchRequest
	}{
		{"far and stale", models.Mechanic{HourlyRate: 900}, 500, models.MatchRequest{Urgency: models.UrgencyLow}},
		{"perfect with bonus", func() models.Mechanic {
			m := availableMechanic()
			m.Rating = 5
			m.EmergencyService = true
			m.HourlyRate = 100
			return m
		}(), 0, models.MatchRequest{Urgency: models.UrgencyHigh}},
		{"negative-ish inputs", models.Mechanic{HourlyRate: -5, Rating: -1}, -1, models.MatchRequest{Urgency: models.UrgencyMedium}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total, _ := s.Score(tc.m, tc.dist, tc.req, now)
			if total < 0 || total > 100 {
				t.Fatalf("total %f out of [0,100]", total)
			}
		})
	}
}

func TestHighUrgencyEmergencyNearCeiling(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	m.Rating = 5.0
	m.EmergencyService = true
	m.ServiceTypes = []string{"engine repair"}
	m.VehicleBrands = []string{"Toyota"}
	req := models.MatchRequest{
		Origin:       models.Coordinates{Lat: 5.6, Lng: -0.2},
		Urgency:      models.UrgencyHigh,
		ServiceTypes: []string{"engine repair"},
		VehicleBrand: "Toyota",
	}
	total, b := s.Score(m, 5, req, now)
	if total < 99.5 {
		t.Fatalf("expected score at the ceiling, got %f (breakdown %+v)", total, b)
	}
	if b.UrgencyBonus != 20 {
		t.Fatalf("expected +20 urgency bonus, got %f", b.UrgencyBonus)
	}
}

func TestUrgencyBonusRequiresEmergencyService(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	m.EmergencyService = false
	_, b := s.Score(m, 5, models.MatchRequest{Urgency: models.UrgencyHigh}, now)
	if b.UrgencyBonus != 0 {
		t.Fatalf("no bonus without emergency service, got %f", b.UrgencyBonus)
	}
	m.EmergencyService = true
	_, b = s.Score(m, 5, models.MatchRequest{Urgency: models.UrgencyMedium}, now)
	if b.UrgencyBonus != 10 {
		t.Fatalf("expected +10 for medium urgency, got %f", b.UrgencyBonus)
	}
}

func TestSpecializationNoPreferenceFullCredit(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	_, b := s.Score(m, 5, models.MatchRequest{Urgency: models.UrgencyLow}, now)
	if b.Specialization != 100 {
		t.Fatalf("no preference should score 100, got %f", b.Specialization)
	}
}

func TestSpecializationUndeclaredIsNeutral(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	m.ServiceTypes = nil
	m.VehicleBrands = nil
	req := models.MatchRequest{Urgency: models.UrgencyLow, ServiceTypes: []string{"brakes"}}
	_, b := s.Score(m, 5, req, now)
	if b.Specialization != 50 {
		t.Fatalf("undeclared specializations should be neutral 50, got %f", b.Specialization)
	}
}

func TestSpecializationPartialOverlap(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	m.ServiceTypes = []string{"Brake Service"}
	m.VehicleBrands = []string{"other"}
	req := models.MatchRequest{
		Urgency:      models.UrgencyLow,
		ServiceTypes: []string{"brake", "transmission"},
		VehicleBrand: "Kia",
	}
	_, b := s.Score(m, 5, req, now)
	// half the types matched (0.7 * 50) plus "other" brand wildcard (0.3 * 100)
	if b.Specialization != 65 {
		t.Fatalf("expected 65, got %f", b.Specialization)
	}
}

func TestRatingDefaultsWhenUnrated(t *testing.T) {
	var s Scorer
	m := availableMechanic()
	m.Rating = 0
	_, b := s.Score(m, 5, models.MatchRequest{Urgency: models.UrgencyLow}, now)
	if b.Rating != 80 {
		t.Fatalf("unrated should default to 4.0 -> 80, got %f", b.Rating)
	}
}

func TestPriceScoreBands(t *testing.T) {
	cases := []struct {
		rate float64
		pr   *models.PriceRange
		want float64
	}{
		{100, nil, 100},
		{30, nil, 80},
		{250, nil, 90}, // 100 - (250-150)/10
		{100, &models.PriceRange{Min: 80, Max: 120}, 100},
		{50, &models.PriceRange{Min: 80, Max: 120}, 90},
		{150, &models.PriceRange{Min: 80, Max: 120}, 75}, // 25% over
	}
	for _, tc := range cases {
		if got := priceScore(tc.rate, tc.pr); got != tc.want {
			t.Fatalf("rate %f range %+v: expected %f, got %f", tc.rate, tc.pr, tc.want, got)
		}
	}
}

func TestEffectiveBounds(t *testing.T) {
	if d := EffectiveMaxDistanceKm(models.MatchRequest{}); d != 50 {
		t.Fatalf("default distance should be 50, got %f", d)
	}
	if d := EffectiveMaxDistanceKm(models.MatchRequest{MaxDistanceKm: 500}); d != 200 {
		t.Fatalf("distance should cap at 200, got %f", d)
	}
	if n := EffectiveMaxResults(models.MatchRequest{}); n != 20 {
		t.Fatalf("default results should be 20, got %d", n)
	}
	if n := EffectiveMaxResults(models.MatchRequest{MaxResults: 80}); n != 50 {
		t.Fatalf("results should cap at 50, got %d", n)
	}
}
