package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

var ErrNoSession = errors.New("dispatch: no ws session")

// WSSession is one connected mechanic app.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(result models.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(result)
}

// WSRegistry holds mechanic websocket sessions keyed by mechanic id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(mechanicID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[mechanicID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[mechanicID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(mechanicID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[mechanicID]; ok {
		_ = s.conn.Close()
		delete(r.sessions, mechanicID)
	}
}

// NotifyMatch delivers over the mechanic's live socket if one exists.
func (r *WSRegistry) NotifyMatch(ctx context.Context, mechanicID string, result models.MatchResult) error {
	r.mu.RLock()
	s, ok := r.sessions[mechanicID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(result); err != nil {
		r.logger.Warn("ws send failed", "mechanic_id", mechanicID, "error", err)
		return err
	}
	return nil
}
