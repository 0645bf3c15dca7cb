package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/ledger"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

const (
	testToken   = "usd-minor"
	testEngine  = "engine-test"
	testAdmin   = "admin_1"
	testProgram = "program-alpha"
)

// fixture wires the service against the in-memory adapters with a
// controllable clock.
type fixture struct {
	svc    *Service
	repos  *memory.Repositories
	ledger *ledger.MemoryLedger
	pub    *events.MemoryDomainPublisher
	now    time.Time
	keySeq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	led := ledger.NewMemoryLedger()
	pub := events.NewMemoryDomainPublisher()
	f := &fixture{repos: repos, ledger: led, pub: pub, now: time.Unix(1_700_000_000, 0).UTC()}
	svc := NewService(Dependencies{
		Config:       Config{EngineID: testEngine},
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
		Analytics:    events.NewMemoryAnalyticsPublisher(),
		Ops:          events.NewMemoryOpsPublisher(),
		DLQ:          events.NewLoggingDLQPublisher(),
		Transferor:   led,
	})
	svc.nowFn = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) key() string { f.keySeq++; return fmt.Sprintf("idem-%d", f.keySeq) }

func (f *fixture) admin() Actor {
	return Actor{SubjectID: testAdmin, Role: "admin", RequestID: "req-admin", IdempotencyKey: f.key()}
}

func (f *fixture) participant(subject string) Actor {
	return Actor{SubjectID: subject, Role: "participant", RequestID: "req-" + subject, IdempotencyKey: f.key()}
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.InitializeEngine(ctx, f.admin(), InitializeInput{Admin: testAdmin, SettlementToken: testToken, Version: "v1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (f *fixture) lock(t *testing.T, escrowID uint64, depositor string, amount, deadline int64) domain.Escrow {
	t.Helper()
	ctx := context.Background()
	f.ledger.Seed(testToken, depositor, f.ledger.Balance(testToken, depositor)+amount)
	row, err := f.svc.Lock(ctx, f.participant(depositor), LockInput{EscrowID: escrowID, ProgramID: testProgram, Depositor: depositor, Amount: amount, Deadline: deadline})
	if err != nil { t.Fatalf("lock %d: %v", escrowID, err) }
	return row
}

func TestInitializeEngineOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if _, err := f.svc.InitializeEngine(ctx, f.admin(), InitializeInput{Admin: "other", SettlementToken: testToken}); err != domain.ErrAlreadyInitialized {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestLockRequiresInitialization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 1, Depositor: "alice", Amount: 100})
	if err != domain.ErrNotInitialized { t.Fatalf("expected ErrNotInitialized, got %v", err) }
}

func TestLockPullsFundsIntoCustody(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	row := f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	if row.Status != domain.StatusLocked { t.Fatalf("expected locked, got %s", row.Status) }
	if row.RemainingAmount != 1_000 { t.Fatalf("expected remaining 1000, got %d", row.RemainingAmount) }
	if row.TokenID != testToken { t.Fatalf("escrow must carry the settlement token, got %q", row.TokenID) }
	if got := f.ledger.Balance(testToken, "alice"); got != 0 { t.Fatalf("depositor balance: got %d", got) }
	if got := f.ledger.Balance(testToken, testEngine); got != 1_000 { t.Fatalf("custody balance: got %d", got) }
}

func TestLockRejectsDuplicateAndBadDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	f.ledger.Seed(testToken, "alice", 100)
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 1, Depositor: "alice", Amount: 100}); err != domain.ErrEscrowExists {
		t.Fatalf("expected ErrEscrowExists, got %v", err)
	}
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 2, Depositor: "alice", Amount: 100, Deadline: f.now.Unix()}); err != domain.ErrInvalidDeadline {
		t.Fatalf("expected ErrInvalidDeadline for past deadline, got %v", err)
	}
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 0, Depositor: "alice", Amount: 100}); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for zero id, got %v", err)
	}
}

func TestLockIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.ledger.Seed(testToken, "alice", 500)
	actor := f.participant("alice")
	input := LockInput{EscrowID: 9, ProgramID: testProgram, Depositor: "alice", Amount: 500}
	first, err := f.svc.Lock(ctx, actor, input)
	if err != nil { t.Fatalf("lock: %v", err) }
	replay, err := f.svc.Lock(ctx, actor, input)
	if err != nil { t.Fatalf("replay: %v", err) }
	if replay.EscrowID != first.EscrowID || replay.Amount != first.Amount { t.Fatalf("replay must return the cached escrow, got %+v", replay) }
	if got := f.ledger.Balance(testToken, testEngine); got != 500 { t.Fatalf("replay must not move funds twice, custody %d", got) }
	if _, err := f.svc.Lock(ctx, actor, LockInput{EscrowID: 10, Depositor: "alice", Amount: 1}); err != domain.ErrIdempotencyConflict {
		t.Fatalf("same key with different payload must conflict, got %v", err)
	}
}

func TestLockRequiresIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	actor := Actor{SubjectID: "alice", Role: "participant"}
	if _, err := f.svc.Lock(ctx, actor, LockInput{EscrowID: 1, Depositor: "alice", Amount: 100}); err != domain.ErrIdempotencyRequired {
		t.Fatalf("expected ErrIdempotencyRequired, got %v", err)
	}
}

func TestPauseCheckedBeforeAuthorizationAndExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	paused := true
	if _, err := f.svc.SetPaused(ctx, f.admin(), SetPausedInput{ReleasePaused: &paused, Reason: "incident"}); err != nil { t.Fatalf("pause: %v", err) }

	// Unknown escrow, missing idempotency key, non-admin caller: the pause
	// still wins.
	actor := Actor{SubjectID: "nobody", Role: "participant"}
	if _, err := f.svc.Release(ctx, actor, ReleaseInput{EscrowID: 404, Recipient: "bob"}); err != domain.ErrReleasePaused {
		t.Fatalf("expected ErrReleasePaused first, got %v", err)
	}
}

func TestReleaseRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	if _, err := f.svc.Release(ctx, f.participant("alice"), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReleaseSettlesWithFeeSplitAndConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	feeCfg := domain.FeeConfig{
		FeeRateBps:          1_000,
		DistributionEnabled: true,
		Destinations: []domain.TreasuryDestination{
			{Address: "treasury_a", Weight: 5_000},
			{Address: "treasury_b", Weight: 5_000},
		},
	}
	if err := f.svc.SetFeeConfig(ctx, f.admin(), feeCfg); err != nil { t.Fatalf("set fee: %v", err) }
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)

	out, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"})
	if err != nil { t.Fatalf("release: %v", err) }
	if out.GrossAmount != 1_000 || out.FeeAmount != 100 || out.NetAmount != 900 {
		t.Fatalf("expected 1000/100/900, got %d/%d/%d", out.GrossAmount, out.FeeAmount, out.NetAmount)
	}
	if out.Escrow.Status != domain.StatusReleased || out.Escrow.RemainingAmount != 0 {
		t.Fatalf("escrow must be terminal with zero remaining, got %+v", out.Escrow)
	}
	if out.Receipt.ReceiptID != 1 || out.Receipt.Outcome != domain.OutcomeReleased {
		t.Fatalf("unexpected receipt %+v", out.Receipt)
	}

	var distributed int64
	for _, sh := range out.Distribution { distributed += sh.Amount }
	if distributed != out.FeeAmount { t.Fatalf("distribution must conserve the fee, got %d of %d", distributed, out.FeeAmount) }
	if got := f.ledger.Balance(testToken, "bob"); got != 900 { t.Fatalf("recipient balance: got %d", got) }
	if got := f.ledger.Balance(testToken, "treasury_a"); got != 50 { t.Fatalf("treasury_a balance: got %d", got) }
	if got := f.ledger.Balance(testToken, "treasury_b"); got != 50 { t.Fatalf("treasury_b balance: got %d", got) }
	if got := f.ledger.Balance(testToken, testEngine); got != 0 { t.Fatalf("custody must drain to zero, got %d", got) }
}

func TestReleaseChargesSpendingWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	cfg := domain.SpendingLimitConfig{ProgramID: testProgram, TokenID: testToken, MaxAmount: 150, WindowSeconds: 3_600, Enabled: true}
	if err := f.svc.SetSpendingLimit(ctx, f.admin(), cfg); err != nil { t.Fatalf("set limit: %v", err) }
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	f.lock(t, 2, "alice", 100, domain.NoDeadline)

	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil { t.Fatalf("first release: %v", err) }
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 2, Recipient: "bob"}); err != domain.ErrSpendingLimitExceeded {
		t.Fatalf("expected ErrSpendingLimitExceeded, got %v", err)
	}
	row, err := f.svc.GetEscrow(ctx, f.admin(), 2)
	if err != nil { t.Fatalf("get escrow: %v", err) }
	if row.Status != domain.StatusLocked { t.Fatalf("rejected release must leave the escrow locked, got %s", row.Status) }
	if got := f.ledger.Balance(testToken, "bob"); got != 100 { t.Fatalf("only the first release may pay out, got %d", got) }

	// Window rolls over, the second release fits again.
	f.advance(3_601 * time.Second)
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 2, Recipient: "bob"}); err != nil { t.Fatalf("release after window: %v", err) }
}

func TestRefundDeadlineAndGraceGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if err := f.svc.SetGraceConfig(ctx, f.admin(), domain.GraceConfig{Enabled: true, PeriodSeconds: 600}); err != nil { t.Fatalf("set grace: %v", err) }
	deadline := f.now.Unix() + 1_000
	f.lock(t, 1, "alice", 400, deadline)

	if _, err := f.svc.Refund(ctx, f.participant("alice"), RefundInput{EscrowID: 1}); err != domain.ErrDeadlineNotPassed {
		t.Fatalf("expected ErrDeadlineNotPassed, got %v", err)
	}
	f.advance(1_000 * time.Second)
	if _, err := f.svc.Refund(ctx, f.participant("alice"), RefundInput{EscrowID: 1}); err != domain.ErrGraceNotElapsed {
		t.Fatalf("expected ErrGraceNotElapsed inside grace, got %v", err)
	}
	f.advance(600 * time.Second)
	out, err := f.svc.Refund(ctx, f.participant("alice"), RefundInput{EscrowID: 1})
	if err != nil { t.Fatalf("refund after grace: %v", err) }
	if out.FeeAmount != 0 || out.NetAmount != 400 { t.Fatalf("refunds are fee free, got fee %d net %d", out.FeeAmount, out.NetAmount) }
	if got := f.ledger.Balance(testToken, "alice"); got != 400 { t.Fatalf("depositor balance: got %d", got) }
}

func TestRefundAdminApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 400, f.now.Unix()+1_000)

	// Claiming admin approval without admin authority is rejected outright,
	// not downgraded to the deadline path.
	if _, err := f.svc.Refund(ctx, f.participant("alice"), RefundInput{EscrowID: 1, AdminApproval: true}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	out, err := f.svc.Refund(ctx, f.admin(), RefundInput{EscrowID: 1, AdminApproval: true})
	if err != nil { t.Fatalf("admin refund: %v", err) }
	if out.Escrow.Status != domain.StatusRefunded { t.Fatalf("expected refunded, got %s", out.Escrow.Status) }
}

func TestGuardBlocksReentrancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if err := f.svc.guard.Enter(); err != nil { t.Fatalf("enter: %v", err) }
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 1, Depositor: "alice", Amount: 100}); err != domain.ErrReentrancy {
		t.Fatalf("expected ErrReentrancy, got %v", err)
	}
	f.svc.guard.Exit()
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
}

func TestGuardReleasedAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 404, Recipient: "bob"}); err != domain.ErrEscrowNotFound {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
	if f.svc.guard.Held() { t.Fatalf("guard must be released after a failed operation") }
}

func TestParticipantFilterBlocksLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	filter := domain.ParticipantFilter{Mode: domain.FilterBlocklist, Entries: map[string]bool{"mallory": true}}
	if err := f.svc.SetFilter(ctx, f.admin(), filter); err != nil { t.Fatalf("set filter: %v", err) }
	if _, err := f.svc.Lock(ctx, f.participant("mallory"), LockInput{EscrowID: 1, Depositor: "mallory", Amount: 100}); err != domain.ErrParticipantBlocked {
		t.Fatalf("expected ErrParticipantBlocked, got %v", err)
	}
}

func TestDeprecationBlocksNewLocksOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 300, domain.NoDeadline)
	if err := f.svc.SetDeprecation(ctx, f.admin(), domain.Deprecation{Deprecated: true, MigrationTarget: "engine-v2"}); err != nil { t.Fatalf("set deprecation: %v", err) }
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 2, Depositor: "alice", Amount: 100}); err != domain.ErrDeprecated {
		t.Fatalf("expected ErrDeprecated, got %v", err)
	}
	// Existing escrows still settle.
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil { t.Fatalf("release under deprecation: %v", err) }
}

func TestAmountPolicyBoundsLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	if err := f.svc.SetAmountPolicy(ctx, f.admin(), domain.AmountPolicy{Min: 50, Max: 500}); err != nil { t.Fatalf("set policy: %v", err) }
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 1, Depositor: "alice", Amount: 49}); err != domain.ErrAmountOutOfBounds {
		t.Fatalf("expected ErrAmountOutOfBounds below min, got %v", err)
	}
	if _, err := f.svc.Lock(ctx, f.participant("alice"), LockInput{EscrowID: 1, Depositor: "alice", Amount: 501}); err != domain.ErrAmountOutOfBounds {
		t.Fatalf("expected ErrAmountOutOfBounds above max, got %v", err)
	}
	f.lock(t, 1, "alice", 500, domain.NoDeadline)
}

func TestMetricsTrackLockAndSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	f.advance(120 * time.Second)
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil { t.Fatalf("release: %v", err) }

	agg, err := f.svc.GetTimeWeightedMetrics(ctx, f.admin())
	if err != nil { t.Fatalf("metrics: %v", err) }
	if agg.LockCount != 1 || agg.SumLockAmount != 1_000 { t.Fatalf("lock metrics: %+v", agg) }
	if agg.SettlementCount != 1 || agg.SumSettlementTime != 120 { t.Fatalf("settlement metrics: %+v", agg) }
}

func TestFlushOutboxPublishesDomainEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 1_000, domain.NoDeadline)
	if _, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"}); err != nil { t.Fatalf("release: %v", err) }

	pending, err := f.repos.Outbox.ListPending(ctx, 0)
	if err != nil { t.Fatalf("list pending: %v", err) }
	if len(pending) == 0 { t.Fatalf("expected pending outbox records") }
	if err := f.svc.FlushOutbox(ctx); err != nil { t.Fatalf("flush: %v", err) }
	pending, err = f.repos.Outbox.ListPending(ctx, 0)
	if err != nil { t.Fatalf("list pending: %v", err) }
	if len(pending) != 0 { t.Fatalf("expected drained outbox, %d left", len(pending)) }

	types := map[string]bool{}
	for _, env := range f.pub.Published() { types[env.EventType] = true }
	if !types[domain.EventEscrowLocked] || !types[domain.EventEscrowReleased] {
		t.Fatalf("expected lock and release events, got %v", types)
	}
}

func TestReceiptIDsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initialize(t)
	f.lock(t, 1, "alice", 100, domain.NoDeadline)
	f.lock(t, 2, "alice", 100, domain.NoDeadline)
	first, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 1, Recipient: "bob"})
	if err != nil { t.Fatalf("release: %v", err) }
	second, err := f.svc.Release(ctx, f.admin(), ReleaseInput{EscrowID: 2, Recipient: "bob"})
	if err != nil { t.Fatalf("release: %v", err) }
	if second.Receipt.ReceiptID != first.Receipt.ReceiptID+1 {
		t.Fatalf("receipt ids must not skip, got %d then %d", first.Receipt.ReceiptID, second.Receipt.ReceiptID)
	}
	got, err := f.svc.VerifyReceipt(ctx, f.participant("alice"), first.Receipt.ReceiptID)
	if err != nil { t.Fatalf("verify: %v", err) }
	if got != first.Receipt { t.Fatalf("stored receipt mismatch: %+v vs %+v", got, first.Receipt) }
}
