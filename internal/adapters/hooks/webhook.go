package hooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

// WebhookNotifier POSTs hook notifications to the configured URL with an
// HMAC-SHA256 signature header. Delivery errors surface to the caller,
// which treats them as best-effort.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{client: &http.Client{Timeout: timeout}}
}

type webhookBody struct {
	EventType string `json:"event_type"`
	EscrowID  uint64 `json:"escrow_id"`
	Amount    int64  `json:"amount,omitempty"`
	Party     string `json:"party,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Detail    string `json:"detail,omitempty"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, cfg domain.HookConfig, n ports.HookNotification) error {
	body, err := json.Marshal(webhookBody{EventType: n.EventType, EscrowID: n.EscrowID, Amount: n.Amount, Party: n.Party, Timestamp: n.Timestamp, Detail: n.Detail})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		req.Header.Set("X-Hook-Signature", sign(cfg.Secret, body))
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
