package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

// PushDispatcher tries the mechanic's live websocket first and falls back
// to an HTTP push gateway (FCM-shaped) for offline devices.
type PushDispatcher struct {
	WS       *WSRegistry
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewPushDispatcher(ws *WSRegistry, endpoint, key string) *PushDispatcher {
	return &PushDispatcher{WS: ws, Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (p *PushDispatcher) NotifyMatch(ctx context.Context, mechanicID string, result models.MatchResult) error {
	if p.WS != nil {
		// a failed socket send still falls through to push
		if err := p.WS.NotifyMatch(ctx, mechanicID, result); err == nil {
			return nil
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	return p.push(ctx, mechanicID, result)
}

func (p *PushDispatcher) push(ctx context.Context, mechanicID string, result models.MatchResult) error {
	body := map[string]interface{}{
		"message": map[string]interface{}{
			"topic": "mechanic-" + mechanicID,
			"data": map[string]interface{}{
				"type":        "match_offer",
				"mechanic_id": mechanicID,
				"result":      result,
			},
		},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway status %d", resp.StatusCode)
	}
	return nil
}
