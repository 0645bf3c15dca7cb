package ports

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// TokenTransferor moves settlement-token value between parties. The engine
// treats it as an external collaborator: any failure reverts the whole
// operation that requested the transfer.
type TokenTransferor interface {
	Transfer(ctx context.Context, tokenID, from, to string, amount int64) error
}

// HookNotification is the payload delivered to the registered hook target.
type HookNotification struct {
	EventType string
	EscrowID  uint64
	Amount    int64
	Party     string
	Timestamp int64
	Detail    string
}

// HookNotifier delivers best-effort notifications. Implementations must
// return errors for the caller to log; callers never let a hook failure
// affect the triggering operation.
type HookNotifier interface {
	Notify(ctx context.Context, cfg domain.HookConfig, n HookNotification) error
}
