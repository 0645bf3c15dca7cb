package unit

import (
	"context"
	"testing"

	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/events"
	ledgeradapter "github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/ledger"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

const token = "usd-minor"

func newService() (*application.Service, *memory.Repositories, *ledgeradapter.MemoryLedger, *eventadapter.MemoryDomainPublisher) {
	repos := memory.NewRepositories()
	led := ledgeradapter.NewMemoryLedger()
	pub := eventadapter.NewMemoryDomainPublisher()
	svc := application.NewService(application.Dependencies{
		Config:       application.Config{EngineID: "engine-e2e"},
		Escrows:      repos.Escrows,
		Capabilities: repos.Capabilities,
		Claims:       repos.Claims,
		Disputes:     repos.Disputes,
		Receipts:     repos.Receipts,
		Settings:     repos.Settings,
		Spending:     repos.Spending,
		Metrics:      repos.Metrics,
		Idempotency:  repos.Idempotency,
		EventDedup:   repos.EventDedup,
		Outbox:       repos.Outbox,
		DomainEvents: pub,
		Analytics:    eventadapter.NewMemoryAnalyticsPublisher(),
		Ops:          eventadapter.NewMemoryOpsPublisher(),
		DLQ:          eventadapter.NewLoggingDLQPublisher(),
		Transferor:   led,
	})
	return svc, repos, led, pub
}

func admin(key string) application.Actor {
	return application.Actor{SubjectID: "admin_1", Role: "admin", RequestID: "req_" + key, IdempotencyKey: key}
}

func TestLockReleaseJourneyEnqueuesEvents(t *testing.T) {
	svc, repos, led, pub := newService()
	ctx := context.Background()
	if _, err := svc.InitializeEngine(ctx, admin("idem-init-1"), application.InitializeInput{Admin: "admin_1", SettlementToken: token}); err != nil { t.Fatalf("InitializeEngine: %v", err) }
	if err := svc.SetFeeConfig(ctx, admin("idem-fee-1"), domain.FeeConfig{FeeRateBps: 500, Recipient: "fee_collector"}); err != nil { t.Fatalf("SetFeeConfig: %v", err) }

	led.Seed(token, "user_1", 2_000)
	depositor := application.Actor{SubjectID: "user_1", Role: "participant", RequestID: "req_lock", IdempotencyKey: "idem-lock-1"}
	row, err := svc.Lock(ctx, depositor, application.LockInput{EscrowID: 1, ProgramID: "camp_1", Depositor: "user_1", Amount: 2_000})
	if err != nil { t.Fatalf("Lock: %v", err) }
	if row.Status != domain.StatusLocked { t.Fatalf("expected locked, got %s", row.Status) }

	out, err := svc.Release(ctx, admin("idem-release-1"), application.ReleaseInput{EscrowID: 1, Recipient: "user_2"})
	if err != nil { t.Fatalf("Release: %v", err) }
	if out.FeeAmount != 100 || out.NetAmount != 1_900 { t.Fatalf("expected fee 100 net 1900, got %d/%d", out.FeeAmount, out.NetAmount) }
	if got := led.Balance(token, "user_2"); got != 1_900 { t.Fatalf("recipient balance: got %d", got) }
	if got := led.Balance(token, "fee_collector"); got != 100 { t.Fatalf("fee collector balance: got %d", got) }

	// config_updated, escrow_locked, escrow_released, fee_distributed
	pending, err := repos.Outbox.ListPending(ctx, 10)
	if err != nil { t.Fatalf("ListPending: %v", err) }
	if len(pending) != 4 { t.Fatalf("expected 4 pending events, got %d", len(pending)) }
	if err := svc.FlushOutbox(ctx); err != nil { t.Fatalf("FlushOutbox: %v", err) }
	pending, err = repos.Outbox.ListPending(ctx, 10)
	if err != nil { t.Fatalf("ListPending: %v", err) }
	if len(pending) != 0 { t.Fatalf("expected drained outbox, got %d", len(pending)) }
	if len(pub.Published()) == 0 { t.Fatalf("expected domain envelopes after flush") }
}

func TestReleaseIdempotentReplay(t *testing.T) {
	svc, _, led, _ := newService()
	ctx := context.Background()
	if _, err := svc.InitializeEngine(ctx, admin("idem-init-2"), application.InitializeInput{Admin: "admin_1", SettlementToken: token}); err != nil { t.Fatalf("InitializeEngine: %v", err) }
	led.Seed(token, "user_1", 500)
	depositor := application.Actor{SubjectID: "user_1", Role: "participant", RequestID: "req_lock2", IdempotencyKey: "idem-lock-2"}
	if _, err := svc.Lock(ctx, depositor, application.LockInput{EscrowID: 2, ProgramID: "camp_2", Depositor: "user_1", Amount: 500}); err != nil { t.Fatalf("Lock: %v", err) }

	actor := admin("idem-release-2")
	first, err := svc.Release(ctx, actor, application.ReleaseInput{EscrowID: 2, Recipient: "user_2"})
	if err != nil { t.Fatalf("Release first: %v", err) }
	second, err := svc.Release(ctx, actor, application.ReleaseInput{EscrowID: 2, Recipient: "user_2"})
	if err != nil { t.Fatalf("Release second: %v", err) }
	if first.Receipt.ReceiptID != second.Receipt.ReceiptID || first.NetAmount != second.NetAmount {
		t.Fatalf("idempotent replay mismatch: first=%+v second=%+v", first, second)
	}
	if got := led.Balance(token, "user_2"); got != 500 { t.Fatalf("replay must not pay twice, got %d", got) }
}

func TestDisputeJourney(t *testing.T) {
	svc, _, led, _ := newService()
	ctx := context.Background()
	if _, err := svc.InitializeEngine(ctx, admin("idem-init-3"), application.InitializeInput{Admin: "admin_1", SettlementToken: token}); err != nil { t.Fatalf("InitializeEngine: %v", err) }
	led.Seed(token, "user_1", 300)
	depositor := application.Actor{SubjectID: "user_1", Role: "participant", RequestID: "req_lock3", IdempotencyKey: "idem-lock-3"}
	if _, err := svc.Lock(ctx, depositor, application.LockInput{EscrowID: 3, ProgramID: "camp_3", Depositor: "user_1", Amount: 300}); err != nil { t.Fatalf("Lock: %v", err) }

	dispute, err := svc.OpenDispute(ctx, depositor, application.OpenDisputeInput{EscrowID: 3, Reason: "undelivered"})
	if err != nil { t.Fatalf("OpenDispute: %v", err) }
	out, err := svc.ResolveDispute(ctx, admin("idem-resolve-3"), application.ResolveDisputeInput{DisputeID: dispute.DisputeID, Outcome: domain.DisputeRefundToDepositor})
	if err != nil { t.Fatalf("ResolveDispute: %v", err) }
	if out.Escrow.Status != domain.StatusRefunded { t.Fatalf("expected refunded, got %s", out.Escrow.Status) }
	if got := led.Balance(token, "user_1"); got != 300 { t.Fatalf("depositor must be made whole, got %d", got) }
}
