// Consumer drains mechanic location updates from Kafka into the Redis geo
// index that the matching server queries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/geo"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/logging"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total mechanic location messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

type consumerConfig struct {
	Brokers   []string
	Topic     string
	Group     string
	GeoKey    string
	RedisAddr string
}

func loadConsumerConfig() consumerConfig {
	cfg := consumerConfig{
		Brokers:   []string{"localhost:9092"},
		Topic:     "mechanic-locations",
		Group:     "mechanic-matching-consumer",
		GeoKey:    "mechanics_geo",
		RedisAddr: "localhost:6379",
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Brokers = cfg.Brokers[:0]
		for _, b := range strings.Split(v, ",") {
			if s := strings.TrimSpace(b); s != "" {
				cfg.Brokers = append(cfg.Brokers, s)
			}
		}
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Topic = v
	}
	if v := os.Getenv("KAFKA_GROUP"); v != "" {
		cfg.Group = v
	}
	if v := os.Getenv("REDIS_GEO_KEY"); v != "" {
		cfg.GeoKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	return cfg
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"))
	cfg := loadConsumerConfig()

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.Group,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer started", "topic", cfg.Topic, "brokers", cfg.Brokers, "group", cfg.Group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("consumer shutting down")
				return
			}
			logger.Warn("kafka read failed", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		var mech models.Mechanic
		if err := json.Unmarshal(m.Value, &mech); err != nil {
			msgsInvalid.Inc()
			logger.Warn("undecodable location message", "error", err)
			continue
		}
		if mech.ID == "" || !geo.ValidCoords(mech.Loc) {
			msgsInvalid.Inc()
			logger.Warn("rejected location update",
				"mechanic_id", mech.ID, "lat", mech.Loc.Lat, "lng", mech.Loc.Lng)
			continue
		}

		if err := updateRedisWithRetry(ctx, radapter, cfg.GeoKey, &mech, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			logger.Error("redis update failed", "mechanic_id", mech.ID, "error", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater is the slice of redis used by the update path; tests swap in
// a fake.
type RedisUpdater interface {
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	_, err := r.c.GeoAdd(ctx, key, loc).Result()
	return err
}

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

// updateRedisWithRetry writes the geo point and the meta hash, retrying
// each with exponential backoff. The meta hash feeds the match-time lookups
// the server does per candidate.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, geoKey string, m *models.Mechanic, attempts int, delay time.Duration) error {
	meta := map[string]interface{}{
		"rating":      m.Rating,
		"rate":        m.HourlyRate,
		"emergency":   strconv.FormatBool(m.EmergencyService),
		"max_jobs":    strconv.Itoa(m.MaxActiveJobs),
		"active_jobs": strconv.Itoa(m.ActiveJobs),
		"updated":     time.Now().Format(time.RFC3339),
	}
	for i := 0; i < attempts; i++ {
		if err := rc.GeoAdd(ctx, geoKey, &redis.GeoLocation{Longitude: m.Loc.Lng, Latitude: m.Loc.Lat, Name: m.ID}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		if err := rc.HSet(ctx, "mechanic:meta:"+m.ID, meta); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}
