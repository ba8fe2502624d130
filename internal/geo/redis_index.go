package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// RedisIndex stores mechanic positions with Redis GEO commands plus a meta
// hash per mechanic. It is fed by the Kafka location consumer and queried
// by the matching service as a radius pre-filter.
type RedisIndex struct {
	client   *redis.Client
	key      string
	radiusKm float64
}

func NewRedisIndex(addr, password, key string, radiusKm float64) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if radiusKm <= 0 {
		radiusKm = 200
	}
	return &RedisIndex{client: c, key: key, radiusKm: radiusKm}
}

func (r *RedisIndex) Upsert(m models.Mechanic) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: m.Loc.Lng, Latitude: m.Loc.Lat, Name: m.ID,
	}).Result()
	_ = r.client.HSet(ctx, metaKey(m.ID), map[string]interface{}{
		"rating":      strconv.FormatFloat(m.Rating, 'f', -1, 64),
		"rate":        strconv.FormatFloat(m.HourlyRate, 'f', -1, 64),
		"emergency":   strconv.FormatBool(m.EmergencyService),
		"max_jobs":    strconv.Itoa(m.MaxActiveJobs),
		"active_jobs": strconv.Itoa(m.ActiveJobs),
		"updated":     time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Nearby(lat, lng float64, limit int) []models.Mechanic {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := r.client.GeoRadius(ctx, r.key, lng, lat, &redis.GeoRadiusQuery{
		Radius: r.radiusKm, Unit: "km",
		WithCoord: true, WithDist: true,
		Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.Mechanic, 0, len(res))
	for _, g := range res {
		m := models.Mechanic{ID: g.Name}
		m.Loc.Lat = g.Latitude
		m.Loc.Lng = g.Longitude
		if meta, err := r.client.HGetAll(ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := meta["rating"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					m.Rating = f
				}
			}
			if v, ok := meta["rate"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					m.HourlyRate = f
				}
			}
			if v, ok := meta["emergency"]; ok {
				m.EmergencyService = v == "true"
			}
			if v, ok := meta["max_jobs"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					m.MaxActiveJobs = n
				}
			}
			if v, ok := meta["active_jobs"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					m.ActiveJobs = n
				}
			}
			if v, ok := meta["updated"]; ok {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					m.LocUpdatedAt = ts
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func metaKey(id string) string { return "mechanic:meta:" + id }
