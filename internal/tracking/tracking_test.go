package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/geoloc"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// fakeSource feeds a scripted event channel through a real provider so the
// registry exercises the production watch path.
type fakeSource struct {
	ch chan geoloc.Event
}

func (f *fakeSource) PermissionState(ctx context.Context) (models.PermissionStatus, error) {
	return models.PermissionGranted, nil
}

func (f *fakeSource) CurrentPosition(ctx context.Context, highAccuracy bool, maxAge time.Duration) (models.Position, error) {
	return models.Position{}, geoloc.ErrPositionUnavailable
}

func (f *fakeSource) WatchPosition(ctx context.Context, highAccuracy bool) (<-chan geoloc.Event, error) {
	return f.ch, nil
}

func newTestRegistry() (*Registry, chan geoloc.Event) {
	ch := make(chan geoloc.Event)
	provider := geoloc.NewProvider(&fakeSource{ch: ch}, nil)
	return NewRegistry(provider, nil), ch
}

func waitHistory(t *testing.T, r *Registry, id string, n int) models.TrackingSession {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := r.Get(id); ok && len(s.History) >= n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	s, _ := r.Get(id)
	t.Fatalf("history never reached %d entries, have %d", n, len(s.History))
	return s
}

func waitStatus(t *testing.T, r *Registry, id string, want models.TrackingStatus) models.TrackingSession {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := r.Get(id); ok && s.Status == want {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	s, _ := r.Get(id)
	t.Fatalf("session never reached %s, status %s", want, s.Status)
	return s
}

func TestStartRecordsPositions(t *testing.T) {
	r, ch := newTestRegistry()
	id, err := r.Start(context.Background(), "user-1", "req-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ch <- geoloc.Event{Pos: models.Position{Coords: models.Coordinates{Lat: 5.6, Lng: -0.2}, Timestamp: time.Now()}}
	ch <- geoloc.Event{Pos: models.Position{Coords: models.Coordinates{Lat: 5.61, Lng: -0.21}, Timestamp: time.Now()}}

	s := waitHistory(t, r, id, 2)
	if s.UserID != "user-1" || s.RequestID != "req-1" {
		t.Fatalf("session fields lost: %+v", s)
	}
	if s.Status != models.TrackingActive {
		t.Fatalf("expected active, got %s", s.Status)
	}
	r.Stop(id)
}

func TestStopFinalizesOnce(t *testing.T) {
	r, _ := newTestRegistry()
	id, err := r.Start(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	r.Stop(id)
	s := waitStatus(t, r, id, models.TrackingCompleted)
	if s.EndedAt == nil {
		t.Fatal("ended_at not set")
	}
	first := *s.EndedAt
	r.Stop(id) // must be a no-op
	s, _ = r.Get(id)
	if !s.EndedAt.Equal(first) {
		t.Fatal("second stop mutated the session")
	}
	if r.ActiveCount() != 0 {
		t.Fatalf("expected 0 active, got %d", r.ActiveCount())
	}
}

func TestWatchErrorAutoStops(t *testing.T) {
	r, ch := newTestRegistry()
	id, err := r.Start(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ch <- geoloc.Event{Err: errors.New("gps gave up")}
	s := waitStatus(t, r, id, models.TrackingCompleted)
	if s.EndedAt == nil {
		t.Fatal("auto-stop must set ended_at")
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	r, ch := newTestRegistry()
	id, _ := r.Start(context.Background(), "user-1", "")
	ch <- geoloc.Event{Pos: models.Position{Coords: models.Coordinates{Lat: 5.6, Lng: -0.2}, Timestamp: time.Now()}}
	s := waitHistory(t, r, id, 1)
	s.History[0].Coords.Lat = 99 // mutating the snapshot must not touch the registry
	again, _ := r.Get(id)
	if again.History[0].Coords.Lat == 99 {
		t.Fatal("Get leaked internal history slice")
	}
	r.Stop(id)
}

func TestGetUnknownSession(t *testing.T) {
	r, _ := newTestRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Fatal("unknown session should not be found")
	}
}
