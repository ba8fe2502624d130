// Package tracking owns the registry of live position-tracking sessions.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/geoloc"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/observability"
)

// Watcher is the slice of the geolocation provider the registry needs.
type Watcher interface {
	WatchPosition(ctx context.Context, highAccuracy bool) (*geoloc.Watch, error)
}

// Registry holds active tracking sessions keyed by session id. It is an
// injectable value, not package state; each session's history is mutated
// only by its own watch goroutine.
type Registry struct {
	watcher Watcher
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	session models.TrackingSession
	watch   *geoloc.Watch
}

func NewRegistry(watcher Watcher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		watcher:  watcher,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Start opens a new active session and begins recording positions for
// userID. requestID may be empty. The returned id addresses Stop/Get.
func (r *Registry) Start(ctx context.Context, userID, requestID string) (string, error) {
	watch, err := r.watcher.WatchPosition(ctx, true)
	if err != nil {
		return "", fmt.Errorf("start tracking: %w", err)
	}
	id := uuid.NewString()
	e := &entry{
		session: models.TrackingSession{
			ID:        id,
			UserID:    userID,
			RequestID: requestID,
			Status:    models.TrackingActive,
			StartedAt: time.Now(),
		},
		watch: watch,
	}
	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()
	observability.TrackingSessionsActive.Inc()

	go r.consume(id, watch)

	r.logger.Info("tracking session started", "session_id", id, "user_id", userID)
	return id, nil
}

func (r *Registry) consume(id string, watch *geoloc.Watch) {
	for ev := range watch.Events() {
		if ev.Err != nil {
			// a provider error ends the session, never a silent gap
			r.logger.Warn("tracking watch error, stopping session",
				"session_id", id, "error", ev.Err)
			r.finalize(id)
			return
		}
		r.mu.Lock()
		if e, ok := r.sessions[id]; ok && e.session.Status == models.TrackingActive {
			e.session.History = append(e.session.History, ev.Pos)
		}
		r.mu.Unlock()
	}
}

// Stop finalizes the session: status completed, ended_at set, watch
// released. Idempotent; stopping an unknown or finished session is a no-op.
func (r *Registry) Stop(id string) {
	r.finalize(id)
}

func (r *Registry) finalize(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.session.Status != models.TrackingActive {
		r.mu.Unlock()
		return
	}
	ended := time.Now()
	e.session.Status = models.TrackingCompleted
	e.session.EndedAt = &ended
	watch := e.watch
	e.watch = nil
	r.mu.Unlock()

	if watch != nil {
		watch.Clear()
	}
	observability.TrackingSessionsActive.Dec()
	r.logger.Info("tracking session completed", "session_id", id)
}

// Get returns a read-only snapshot of the session. The history slice is
// copied so callers cannot observe later appends.
func (r *Registry) Get(id string) (models.TrackingSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return models.TrackingSession{}, false
	}
	snap := e.session
	snap.History = append([]models.Position(nil), e.session.History...)
	return snap, true
}

// ActiveCount reports how many sessions are currently recording.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.sessions {
		if e.session.Status == models.TrackingActive {
			n++
		}
	}
	return n
}
