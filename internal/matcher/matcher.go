// Package matcher ranks mechanic candidates for a service request.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/availability"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/geo"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/observability"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/scoring"
)

// ErrInvalidRequest flags malformed input, the one failure FindBestMatches
// surfaces to callers.
var ErrInvalidRequest = errors.New("matcher: invalid request")

// CandidateSource is the external profile store view: mechanics with
// location sharing enabled. Sources may pre-filter around the origin; the
// matcher re-checks distance either way. Read-only to the matcher.
type CandidateSource interface {
	Candidates(ctx context.Context, origin models.Coordinates, radiusKm float64) ([]models.Mechanic, error)
}

// Notifier delivers a match notice to one mechanic. Fire-and-forget.
type Notifier interface {
	NotifyMatch(ctx context.Context, mechanicID string, result models.MatchResult) error
}

// RequestStore records match outcomes.
type RequestStore interface {
	SaveRequest(r *models.ServiceRequest) error
	UpdateRequest(r *models.ServiceRequest) error
}

// Service is the matching orchestrator.
type Service struct {
	Source CandidateSource
	Scorer scoring.Scorer
	Avail  availability.Evaluator
	Notify Notifier
	Store  RequestStore
	Logger *slog.Logger
	Now    func() time.Time // test seam; defaults to time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// FindBestMatches validates the request, pulls the candidate pool,
// pre-filters by distance, scores and evaluates each survivor, then returns
// the top results sorted by score. Downstream failures degrade to an empty
// list; only malformed input is an error.
func (s *Service) FindBestMatches(ctx context.Context, req models.MatchRequest) ([]models.MatchResult, error) {
	if !geo.ValidCoords(req.Origin) {
		return nil, fmt.Errorf("%w: bad coordinates (%f, %f)", ErrInvalidRequest, req.Origin.Lat, req.Origin.Lng)
	}
	if !req.Urgency.Valid() {
		return nil, fmt.Errorf("%w: bad urgency %q", ErrInvalidRequest, req.Urgency)
	}

	start := time.Now()
	defer func() {
		observability.MatchesTotal.Inc()
		observability.MatchLatency.Observe(time.Since(start).Seconds())
	}()

	maxKm := scoring.EffectiveMaxDistanceKm(req)
	pool, err := s.Source.Candidates(ctx, req.Origin, maxKm)
	if err != nil {
		s.logger().Error("candidate pool fetch failed", "error", err)
		return []models.MatchResult{}, nil
	}

	now := s.now()
	results := make([]models.MatchResult, 0, len(pool))
	for _, m := range pool {
		dist := geo.Haversine(req.Origin, m.Loc)
		if dist > maxKm {
			continue
		}
		if req.EmergencyRequired && !m.EmergencyService {
			continue
		}
		if req.MinRating > 0 && m.Rating < req.MinRating {
			continue
		}
		available := s.Avail.IsAvailable(m, now)
		total, breakdown := s.Scorer.Score(m, dist, req, now)
		if total <= 0 || !available {
			continue
		}
		results = append(results, models.MatchResult{
			Mechanic:      m,
			DistanceKm:    dist,
			ArrivalMin:    EstimateArrival(dist, req.Urgency),
			Score:         total,
			PriceEstimate: priceEstimate(m.HourlyRate, dist, req.Urgency),
			Available:     available,
			Breakdown:     breakdown,
		})
	}
	observability.CandidatesConsidered.Observe(float64(len(results)))

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if max := scoring.EffectiveMaxResults(req); len(results) > max {
		results = results[:max]
	}

	s.logger().Info("match completed",
		"pool", len(pool), "matched", len(results),
		"max_distance_km", maxKm, "urgency", req.Urgency)
	return results, nil
}

// Travel speed assumptions by urgency, km/h, plus fixed prep minutes.
var (
	speedByUrgency = map[models.Urgency]float64{
		models.UrgencyLow:    40,
		models.UrgencyMedium: 50,
		models.UrgencyHigh:   60,
	}
	prepByUrgency = map[models.Urgency]float64{
		models.UrgencyLow:    15,
		models.UrgencyMedium: 15,
		models.UrgencyHigh:   5,
	}
)

// EstimateArrival converts a straight-line distance into minutes using the
// urgency speed table, rounded to the nearest minute.
func EstimateArrival(distanceKm float64, urgency models.Urgency) int {
	speed, ok := speedByUrgency[urgency]
	if !ok {
		speed = speedByUrgency[models.UrgencyLow]
	}
	travelMin := distanceKm / speed * 60
	return int(math.Round(travelMin + prepByUrgency[urgency]))
}

// priceEstimate quotes one nominal job hour plus a callout component that
// grows with distance; high urgency carries a surcharge.
func priceEstimate(hourlyRate, distanceKm float64, urgency models.Urgency) float64 {
	estimate := hourlyRate + distanceKm*1.5
	if urgency == models.UrgencyHigh {
		estimate *= 1.25
	}
	return math.Round(estimate*100) / 100
}

// RecordMatch persists the outcome of an accepted match. Best-effort: a
// store failure is logged, not surfaced.
func (s *Service) RecordMatch(req models.MatchRequest, requestID string, chosen models.MatchResult) {
	if s.Store == nil {
		return
	}
	rec := &models.ServiceRequest{
		ID:          requestID,
		UserID:      req.UserID,
		MechanicID:  chosen.Mechanic.ID,
		Origin:      req.Origin,
		Urgency:     req.Urgency,
		Status:      "matched",
		PriceQuoted: chosen.PriceEstimate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.Store.SaveRequest(rec); err != nil {
		s.logger().Error("service request save failed", "request_id", requestID, "error", err)
	}
}

const (
	notifySearchRadiusKm = 25
	notifyPoolSize       = 10
	notifyFanout         = 5
)

// NotifyNearbyMechanics runs a capped match around coords and notifies the
// top candidates. One mechanic's delivery failure never aborts the rest.
func (s *Service) NotifyNearbyMechanics(ctx context.Context, req models.MatchRequest, coords models.Coordinates, maxDistanceKm float64) error {
	if maxDistanceKm <= 0 {
		maxDistanceKm = notifySearchRadiusKm
	}
	search := req
	search.Origin = coords
	search.MaxDistanceKm = maxDistanceKm
	search.MaxResults = notifyPoolSize

	matches, err := s.FindBestMatches(ctx, search)
	if err != nil {
		return err
	}
	if s.Notify == nil {
		return nil
	}
	n := len(matches)
	if n > notifyFanout {
		n = notifyFanout
	}
	for _, m := range matches[:n] {
		if err := s.Notify.NotifyMatch(ctx, m.Mechanic.ID, m); err != nil {
			observability.NotificationsFailed.Inc()
			s.logger().Warn("mechanic notification failed",
				"mechanic_id", m.Mechanic.ID, "error", err)
			continue
		}
		observability.NotificationsSent.Inc()
	}
	return nil
}
