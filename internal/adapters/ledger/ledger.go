package ledger

import (
	"context"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// MemoryLedger is a double-entry token ledger backing the transfer port
// in tests and local runs. Accounts may be seeded with opening balances;
// unseeded accounts start at zero and may not go negative.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: map[string]int64{}}
}

func accountKey(tokenID, account string) string { return tokenID + "|" + account }

// Seed sets an account's opening balance.
func (l *MemoryLedger) Seed(tokenID, account string, amount int64) {
	l.mu.Lock(); defer l.mu.Unlock()
	l.balances[accountKey(tokenID, account)] = amount
}

// Balance reads an account's current balance.
func (l *MemoryLedger) Balance(tokenID, account string) int64 {
	l.mu.Lock(); defer l.mu.Unlock()
	return l.balances[accountKey(tokenID, account)]
}

// Transfer moves amount between accounts atomically, rejecting transfers
// the source cannot cover.
func (l *MemoryLedger) Transfer(_ context.Context, tokenID, from, to string, amount int64) error {
	if amount <= 0 { return domain.ErrInvalidAmount }
	l.mu.Lock(); defer l.mu.Unlock()
	fromKey, toKey := accountKey(tokenID, from), accountKey(tokenID, to)
	if l.balances[fromKey] < amount { return domain.ErrInsufficientBalance }
	l.balances[fromKey] -= amount
	l.balances[toKey] += amount
	return nil
}
