package storage

import (
	"context"
	"sync"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/geo"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// RequestStore defines persistence operations for service requests.
type RequestStore interface {
	SaveRequest(r *models.ServiceRequest) error
	UpdateRequest(r *models.ServiceRequest) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.ServiceRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*models.ServiceRequest)}
}

func (m *MemoryStore) SaveRequest(r *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *MemoryStore) UpdateRequest(r *models.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *MemoryStore) Get(id string) (*models.ServiceRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok
}

// IndexCandidates adapts the in-memory geo index to the matcher's
// candidate-source interface for local runs and tests.
type IndexCandidates struct {
	Index *geo.Index
	Limit int
}

func (s *IndexCandidates) Candidates(ctx context.Context, origin models.Coordinates, radiusKm float64) ([]models.Mechanic, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = 100
	}
	out := make([]models.Mechanic, 0, limit)
	for _, m := range s.Index.Nearby(origin.Lat, origin.Lng, limit) {
		if geo.WithinRadius(origin, m.Loc, radiusKm) {
			out = append(out, m)
		}
	}
	return out, nil
}
