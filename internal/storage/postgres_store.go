package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveRequest(r *models.ServiceRequest) error {
	_, err := p.db.Exec(`INSERT INTO service_requests(id, user_id, mechanic_id, origin_lat, origin_lng, urgency, status, price_quoted, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.UserID, r.MechanicID, r.Origin.Lat, r.Origin.Lng, r.Urgency, r.Status, r.PriceQuoted, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateRequest(r *models.ServiceRequest) error {
	_, err := p.db.Exec(`UPDATE service_requests SET mechanic_id=$1, status=$2, price_quoted=$3, updated_at=$4 WHERE id=$5`,
		r.MechanicID, r.Status, r.PriceQuoted, time.Now(), r.ID)
	return err
}

// Candidates implements the matcher's candidate source against the profile
// store. Only location-enabled, location-shareable mechanics are returned;
// the bounding-box filter keeps the scan cheap and the matcher applies the
// exact haversine check afterwards.
func (p *PostgresStore) Candidates(ctx context.Context, origin models.Coordinates, radiusKm float64) ([]models.Mechanic, error) {
	// ~1 degree of latitude per 111 km; longitude box widened the same way
	// (good enough near the equator where this deployment runs)
	delta := radiusKm / 111.0
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, lat, lng, loc_updated_at, service_radius_km,
		       max_active_jobs, active_jobs, schedule_enabled, schedule,
		       service_types, vehicle_brands, hourly_rate, emergency_service, rating
		FROM mechanic_profiles
		WHERE location_enabled AND location_shareable
		  AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`,
		origin.Lat-delta, origin.Lat+delta, origin.Lng-delta, origin.Lng+delta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Mechanic
	for rows.Next() {
		var m models.Mechanic
		var schedule, serviceTypes, vehicleBrands []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Loc.Lat, &m.Loc.Lng, &m.LocUpdatedAt,
			&m.ServiceRadiusKm, &m.MaxActiveJobs, &m.ActiveJobs, &m.ScheduleEnabled,
			&schedule, &serviceTypes, &vehicleBrands,
			&m.HourlyRate, &m.EmergencyService, &m.Rating); err != nil {
			return nil, err
		}
		if len(schedule) > 0 {
			_ = json.Unmarshal(schedule, &m.Schedule)
		}
		if len(serviceTypes) > 0 {
			_ = json.Unmarshal(serviceTypes, &m.ServiceTypes)
		}
		if len(vehicleBrands) > 0 {
			_ = json.Unmarshal(vehicleBrands, &m.VehicleBrands)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
