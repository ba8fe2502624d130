package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/config"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/dispatch"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/geo"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/geocode"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/ingest"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/matcher"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/payments"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/storage"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/tracking"
)

// Upserter is any candidate index accepting location updates.
type Upserter interface {
	Upsert(m models.Mechanic)
}

type Server struct {
	Matcher  *matcher.Service
	Geocoder *geocode.Gateway
	Tracking *tracking.Registry
	Store    storage.RequestStore
	Index    Upserter
	Kafka    *ingest.KafkaProducer
	WSReg    *dispatch.WSRegistry
	Payments *payments.StripeClient

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the matching service and its collaborators from config.
// Absent backends degrade to in-memory equivalents so the binary runs
// locally without infrastructure.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var index Upserter
	var source matcher.CandidateSource
	if cfg.RedisAddr != "" {
		ri := geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey, 0)
		index, source = ri, redisSource{ri}
	} else {
		gi := geo.NewIndex()
		index, source = gi, &storage.IndexCandidates{Index: gi}
	}

	var store storage.RequestStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
			// prefer the profile store for candidates when available
			source = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	notifier := dispatch.NewPushDispatcher(wsreg, cfg.PushEndpoint, cfg.PushKey)

	gateway := geocode.NewGateway(logger,
		geocode.NewNominatim(cfg.NominatimEndpoint, cfg.GeocodeUserAgent),
		geocode.NewLocationIQ(cfg.LocationIQEndpoint, cfg.LocationIQKey),
		geocode.NewOpenCage(cfg.OpenCageEndpoint, cfg.OpenCageKey),
	)

	var stripeClient *payments.StripeClient
	if cfg.StripeAPIKey != "" {
		stripeClient = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	m := &matcher.Service{Source: source, Notify: notifier, Store: store, Logger: logger}
	s := &Server{
		Matcher:  m,
		Geocoder: gateway,
		Store:    store,
		Index:    index,
		Kafka:    kp,
		WSReg:    wsreg,
		Payments: stripeClient,
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// redisSource adapts the Redis geo index to the candidate source shape.
type redisSource struct{ idx *geo.RedisIndex }

func (r redisSource) Candidates(ctx context.Context, origin models.Coordinates, radiusKm float64) ([]models.Mechanic, error) {
	return r.idx.Nearby(origin.Lat, origin.Lng, 100), nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/matches", s.handleFindMatches).Methods("POST")
	s.mux.HandleFunc("/api/v1/matches/notify", s.handleNotifyNearby).Methods("POST")
	s.mux.HandleFunc("/api/v1/requests/{id}/accept", s.handleAcceptRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/geocode/reverse", s.handleReverseGeocode).Methods("GET")
	s.mux.HandleFunc("/api/v1/geocode/search", s.handleSearchAddresses).Methods("GET")
	s.mux.HandleFunc("/api/v1/tracking", s.handleStartTracking).Methods("POST")
	s.mux.HandleFunc("/api/v1/tracking/{id}", s.handleGetTracking).Methods("GET")
	s.mux.HandleFunc("/api/v1/tracking/{id}/stop", s.handleStopTracking).Methods("POST")
	s.mux.HandleFunc("/internal/mechanic/locations", s.handleMechanicLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{mechanic_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results, err := s.Matcher.FindBestMatches(r.Context(), req)
	if err != nil {
		if errors.Is(err, matcher.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	requestID := newID()
	if len(results) > 0 {
		s.Matcher.RecordMatch(req, requestID, results[0])
	}
	writeJSON(w, map[string]any{"request_id": requestID, "matches": results})
}

func (s *Server) handleNotifyNearby(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Matcher.NotifyNearbyMechanics(r.Context(), req, req.Origin, req.MaxDistanceKm); err != nil {
		if errors.Is(err, matcher.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type acceptRequest struct {
	MechanicID  string  `json:"mechanic_id"`
	PriceQuoted float64 `json:"price_quoted"`
	CustomerID  string  `json:"customer_id,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := &models.ServiceRequest{
		ID:          id,
		MechanicID:  body.MechanicID,
		Status:      "accepted",
		PriceQuoted: body.PriceQuoted,
	}
	if err := s.Store.UpdateRequest(rec); err != nil {
		s.logger.Error("accept update failed", "request_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"request_id": id, "status": "accepted"}
	if s.Payments != nil && body.PriceQuoted > 0 {
		currency := body.Currency
		if currency == "" {
			currency = "ghs"
		}
		holdID, err := s.Payments.HoldDeposit(r.Context(), int64(body.PriceQuoted*100), currency, body.CustomerID)
		if err != nil {
			s.logger.Warn("deposit hold failed", "request_id", id, "error", err)
		} else {
			resp["deposit_hold_id"] = holdID
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil || !geo.Valid(lat, lng) {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}
	addr := s.Geocoder.ReverseGeocode(r.Context(),
		models.Coordinates{Lat: lat, Lng: lng}, r.URL.Query().Get("provider"))
	writeJSON(w, addr)
}

func (s *Server) handleSearchAddresses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	var bias *models.Coordinates
	if lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64); err == nil {
		if lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64); err == nil && geo.Valid(lat, lng) {
			bias = &models.Coordinates{Lat: lat, Lng: lng}
		}
	}
	writeJSON(w, s.Geocoder.SearchAddresses(r.Context(), q, bias))
}

type startTrackingRequest struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleStartTracking(w http.ResponseWriter, r *http.Request) {
	if s.Tracking == nil {
		http.Error(w, "tracking not configured", http.StatusServiceUnavailable)
		return
	}
	var body startTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	id, err := s.Tracking.Start(r.Context(), body.UserID, body.RequestID)
	if err != nil {
		s.logger.Error("tracking start failed", "user_id", body.UserID, "error", err)
		http.Error(w, "could not start tracking", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"session_id": id})
}

func (s *Server) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	if s.Tracking == nil {
		http.Error(w, "tracking not configured", http.StatusServiceUnavailable)
		return
	}
	session, ok := s.Tracking.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, session)
}

func (s *Server) handleStopTracking(w http.ResponseWriter, r *http.Request) {
	if s.Tracking == nil {
		http.Error(w, "tracking not configured", http.StatusServiceUnavailable)
		return
	}
	s.Tracking.Stop(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMechanicLocation(w http.ResponseWriter, r *http.Request) {
	var m models.Mechanic
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !geo.ValidCoords(m.Loc) {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(m); err != nil {
			s.logger.Warn("location publish failed", "mechanic_id", m.ID, "error", err)
		}
	}
	if s.Index != nil {
		s.Index.Upsert(m)
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["mechanic_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
