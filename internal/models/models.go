package models

import "time"

// Coordinates is a WGS84 position. Optional sensor fields are pointers so
// a missing reading is distinguishable from zero.
type Coordinates struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	Altitude *float64 `json:"altitude,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

// Position is a coordinate observation with its capture time.
type Position struct {
	Coords    Coordinates `json:"coords"`
	Timestamp time.Time   `json:"timestamp"`
}

// Address is the normalized output of the geocoding gateway. Immutable once
// returned; provider-specific response shapes are mapped into this one model.
type Address struct {
	Formatted    string      `json:"formatted_address"`
	Coords       Coordinates `json:"coords"`
	Street       string      `json:"street,omitempty"`
	Neighborhood string      `json:"neighborhood,omitempty"`
	City         string      `json:"city,omitempty"`
	State        string      `json:"state,omitempty"`
	Country      string      `json:"country,omitempty"`
	PostalCode   string      `json:"postal_code,omitempty"`
	PlaceID      string      `json:"place_id,omitempty"`
	Provider     string      `json:"provider,omitempty"`
}

// PermissionStatus classifies access to the platform location API.
type PermissionStatus string

const (
	PermissionGranted     PermissionStatus = "granted"
	PermissionDenied      PermissionStatus = "denied"
	PermissionPrompt      PermissionStatus = "prompt"
	PermissionUnavailable PermissionStatus = "unavailable"
)

// TrackingStatus is the lifecycle state of a tracking session.
type TrackingStatus string

const (
	TrackingActive    TrackingStatus = "active"
	TrackingCompleted TrackingStatus = "completed"
)

// TrackingSession records a bounded continuous-position period for one user.
// Owned exclusively by the tracking registry; history is append-only.
type TrackingSession struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	RequestID string         `json:"request_id,omitempty"`
	Status    TrackingStatus `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	History   []Position     `json:"history"`
}

// WeekSchedule maps weekday to a working-hours window. Hours are local,
// 0-23; a day absent from the map is a day off.
type WeekSchedule map[time.Weekday]HourWindow

type HourWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Mechanic is a candidate supplied by the profile store. Read-only to the
// matching core.
type Mechanic struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Loc              Coordinates  `json:"loc"`
	LocUpdatedAt     time.Time    `json:"loc_updated_at"`
	ServiceRadiusKm  float64      `json:"service_radius_km"`
	MaxActiveJobs    int          `json:"max_active_jobs"`
	ActiveJobs       int          `json:"active_jobs"`
	Schedule         WeekSchedule `json:"schedule,omitempty"`
	ScheduleEnabled  bool         `json:"schedule_enabled"`
	ServiceTypes     []string     `json:"service_types,omitempty"`
	VehicleBrands    []string     `json:"vehicle_brands,omitempty"`
	HourlyRate       float64      `json:"hourly_rate"`
	EmergencyService bool         `json:"emergency_service"`
	Rating           float64      `json:"rating"` // 0..5, 0 means unrated
}

// Urgency is the request priority tier.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// PriceRange bounds an acceptable hourly rate.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MatchRequest describes one search for mechanics around a location.
// Zero-valued optional fields mean "no preference".
type MatchRequest struct {
	UserID            string      `json:"user_id,omitempty"`
	Origin            Coordinates `json:"origin"`
	Urgency           Urgency     `json:"urgency"`
	ServiceTypes      []string    `json:"service_types,omitempty"`
	VehicleBrand      string      `json:"vehicle_brand,omitempty"`
	MaxDistanceKm     float64     `json:"max_distance_km,omitempty"`
	MaxResults        int         `json:"max_results,omitempty"`
	PriceRange        *PriceRange `json:"price_range,omitempty"`
	MinRating         float64     `json:"min_rating,omitempty"`
	EmergencyRequired bool        `json:"emergency_required,omitempty"`
}

// ScoreBreakdown is the per-factor decomposition of a compatibility score.
type ScoreBreakdown struct {
	Proximity      float64 `json:"proximity"`
	Availability   float64 `json:"availability"`
	Specialization float64 `json:"specialization"`
	Rating         float64 `json:"rating"`
	Price          float64 `json:"price"`
	UrgencyBonus   float64 `json:"urgency_bonus"`
}

// MatchResult is one ranked candidate. Computed fresh per request, never
// cached.
type MatchResult struct {
	Mechanic      Mechanic       `json:"mechanic"`
	DistanceKm    float64        `json:"distance_km"`
	ArrivalMin    int            `json:"estimated_arrival_min"`
	Score         float64        `json:"compatibility_score"`
	PriceEstimate float64        `json:"price_estimate"`
	Available     bool           `json:"available"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
}

// ServiceRequest is the persisted record of a match outcome.
type ServiceRequest struct {
	ID          string
	UserID      string
	MechanicID  string
	Origin      Coordinates
	Urgency     Urgency
	Status      string // requested, matched, accepted, ongoing, completed, canceled
	PriceQuoted float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
