// Package scoring computes the 0-100 compatibility score ranking a
// mechanic's fit for one request.
package scoring

import (
	"strings"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/availability"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// Factor weights. They sum to 1.0; the urgency bonus is additive on top and
// the final total is clamped to 100.
const (
	weightProximity      = 0.30
	weightAvailability   = 0.25
	weightSpecialization = 0.20
	weightRating         = 0.15
	weightPrice          = 0.10

	bonusUrgencyHigh   = 20
	bonusUrgencyMedium = 10

	defaultRating = 4.0
)

type Scorer struct {
	Avail availability.Evaluator
}

// Score computes the weighted compatibility total and its per-factor
// breakdown for one candidate at a known distance.
func (s Scorer) Score(m models.Mechanic, distanceKm float64, req models.MatchRequest, now time.Time) (float64, models.ScoreBreakdown) {
	b := models.ScoreBreakdown{
		Proximity:      proximityScore(distanceKm, EffectiveMaxDistanceKm(req)),
		Specialization: specializationScore(m, req),
		Rating:         ratingScore(m.Rating),
		Price:          priceScore(m.HourlyRate, req.PriceRange),
	}
	if s.Avail.IsAvailable(m, now) {
		b.Availability = 100
	}
	if m.EmergencyService {
		switch req.Urgency {
		case models.UrgencyHigh:
			b.UrgencyBonus = bonusUrgencyHigh
		case models.UrgencyMedium:
			b.UrgencyBonus = bonusUrgencyMedium
		}
	}
	total := b.Proximity*weightProximity +
		b.Availability*weightAvailability +
		b.Specialization*weightSpecialization +
		b.Rating*weightRating +
		b.Price*weightPrice +
		b.UrgencyBonus
	return clamp(total, 0, 100), b
}

// Request bounds. Defaults and hard caps live here because scoring and the
// matcher share them.
const (
	DefaultMaxDistanceKm = 50.0
	HardMaxDistanceKm    = 200.0
	DefaultMaxResults    = 20
	HardMaxResults       = 50
)

func EffectiveMaxDistanceKm(req models.MatchRequest) float64 {
	d := req.MaxDistanceKm
	if d <= 0 {
		d = DefaultMaxDistanceKm
	}
	if d > HardMaxDistanceKm {
		d = HardMaxDistanceKm
	}
	return d
}

func EffectiveMaxResults(req models.MatchRequest) int {
	n := req.MaxResults
	if n <= 0 {
		n = DefaultMaxResults
	}
	if n > HardMaxResults {
		n = HardMaxResults
	}
	return n
}

func proximityScore(distanceKm, maxKm float64) float64 {
	if maxKm <= 0 {
		return 0
	}
	return clamp(100-(distanceKm/maxKm)*100, 0, 100)
}

// specializationScore blends service-type overlap (0.7) with vehicle-brand
// match (0.3). No stated preference earns full credit; a candidate with no
// declared specializations at all scores neutral, not zero.
func specializationScore(m models.Mechanic, req models.MatchRequest) float64 {
	if len(req.ServiceTypes) == 0 && req.VehicleBrand == "" {
		return 100
	}
	if len(m.ServiceTypes) == 0 && len(m.VehicleBrands) == 0 {
		return 50
	}

	typeScore := 100.0
	if len(req.ServiceTypes) > 0 {
		matched := 0
		for _, want := range req.ServiceTypes {
			if typeMatches(m.ServiceTypes, want) {
				matched++
			}
		}
		typeScore = float64(matched) / float64(len(req.ServiceTypes)) * 100
	}

	brandScore := 100.0
	if req.VehicleBrand != "" {
		brandScore = 0
		for _, brand := range m.VehicleBrands {
			if strings.EqualFold(brand, req.VehicleBrand) || strings.EqualFold(brand, "other") {
				brandScore = 100
				break
			}
		}
	}
	return typeScore*0.7 + brandScore*0.3
}

func typeMatches(declared []string, want string) bool {
	want = strings.ToLower(want)
	for _, have := range declared {
		have = strings.ToLower(have)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return true
		}
	}
	return false
}

func ratingScore(rating float64) float64 {
	if rating <= 0 {
		rating = defaultRating
	}
	return clamp(rating/5.0*100, 0, 100)
}

// priceScore rewards the 50-150 band when no range is given, is cautious
// about suspiciously cheap rates, and decays above the band. With an
// explicit range: in-range 100, below 90, above decays by overage percent.
func priceScore(rate float64, pr *models.PriceRange) float64 {
	if pr == nil {
		switch {
		case rate >= 50 && rate <= 150:
			return 100
		case rate < 50:
			return 80
		default:
			return clamp(100-(rate-150)/10, 0, 100)
		}
	}
	switch {
	case rate >= pr.Min && rate <= pr.Max:
		return 100
	case rate < pr.Min:
		return 90
	default:
		overagePct := (rate - pr.Max) / pr.Max * 100
		return clamp(100-overagePct, 0, 100)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
