package geoloc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/geo"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// Event is one observation from a continuous watch. Exactly one of Pos/Err
// is meaningful per event.
type Event struct {
	Pos models.Position
	Err error
}

// PositionSource is the injectable platform location API. Implementations
// wrap device or OS bindings; tests use fakes.
type PositionSource interface {
	// PermissionState answers the structured permission query. Sources
	// without one return an error and the provider falls back to probing.
	PermissionState(ctx context.Context) (models.PermissionStatus, error)
	// CurrentPosition acquires a single fix. It must honor ctx cancellation.
	CurrentPosition(ctx context.Context, highAccuracy bool, maxAge time.Duration) (models.Position, error)
	// WatchPosition streams fixes until ctx is cancelled, then closes the
	// channel.
	WatchPosition(ctx context.Context, highAccuracy bool) (<-chan Event, error)
}

// Config tunes a single-shot location request.
type Config struct {
	HighAccuracy  bool
	Timeout       time.Duration
	MaxAge        time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		HighAccuracy:  true,
		Timeout:       10 * time.Second,
		MaxAge:        30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// probeTimeout bounds the best-effort permission probe. The probe position
// is only used to classify permission and is never returned to callers.
const probeTimeout = time.Second

// Provider mediates access to the platform location source: permission
// classification, bounded single-shot acquisition, continuous watches.
type Provider struct {
	Source PositionSource
	Logger *slog.Logger
}

func NewProvider(source PositionSource, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{Source: source, Logger: logger}
}

// PermissionStatus prefers the structured query and falls back to a short
// probe request when the source has none.
func (p *Provider) PermissionStatus(ctx context.Context) models.PermissionStatus {
	if status, err := p.Source.PermissionState(ctx); err == nil {
		return status
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := p.Source.CurrentPosition(probeCtx, false, 0)
	err = Classify(err)
	switch {
	case err == nil:
		return models.PermissionGranted
	case errors.Is(err, ErrPermissionDenied):
		return models.PermissionDenied
	case errors.Is(err, ErrServiceUnavailable):
		return models.PermissionUnavailable
	default:
		// timeout or no fix: the platform exists but we cannot tell yet
		return models.PermissionPrompt
	}
}

// RequestLocation acquires a single validated fix. Each attempt races the
// source call against cfg.Timeout; failed attempts back off linearly
// (RetryDelay * attempt number). After RetryAttempts failures the last
// classified error is returned.
func (p *Provider) RequestLocation(ctx context.Context, cfg Config) (models.Position, error) {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		pos, err := p.attempt(ctx, cfg)
		if err == nil {
			return pos, nil
		}
		lastErr = err
		p.Logger.Warn("location attempt failed",
			"attempt", attempt, "of", cfg.RetryAttempts, "error", err)
		if attempt < cfg.RetryAttempts {
			select {
			case <-time.After(cfg.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return models.Position{}, Classify(ctx.Err())
			}
		}
	}
	return models.Position{}, lastErr
}

func (p *Provider) attempt(ctx context.Context, cfg Config) (models.Position, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	pos, err := p.Source.CurrentPosition(attemptCtx, cfg.HighAccuracy, cfg.MaxAge)
	if err != nil {
		return models.Position{}, Classify(err)
	}
	if !geo.ValidCoords(pos.Coords) {
		return models.Position{}, ErrInvalidCoordinates
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	return pos, nil
}

// Watch is an active continuous subscription. Clear is idempotent and safe
// to call concurrently with event delivery.
type Watch struct {
	events <-chan Event
	cancel context.CancelFunc
	once   sync.Once
}

// Events yields positions and errors until the watch is cleared, then the
// channel closes.
func (w *Watch) Events() <-chan Event { return w.events }

// Clear cancels the watch. Calling it again is a no-op.
func (w *Watch) Clear() { w.once.Do(w.cancel) }

// WatchPosition opens a continuous watch. Delivered positions are validated;
// a fix with out-of-range coordinates is surfaced as an error event rather
// than dropped silently.
func (p *Provider) WatchPosition(ctx context.Context, highAccuracy bool) (*Watch, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	src, err := p.Source.WatchPosition(watchCtx, highAccuracy)
	if err != nil {
		cancel()
		return nil, Classify(err)
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		for ev := range src {
			if ev.Err == nil && !geo.ValidCoords(ev.Pos.Coords) {
				ev = Event{Err: ErrInvalidCoordinates}
			} else if ev.Err != nil {
				ev.Err = Classify(ev.Err)
			}
			select {
			case out <- ev:
			case <-watchCtx.Done():
				return
			}
		}
	}()
	return &Watch{events: out, cancel: cancel}, nil
}
