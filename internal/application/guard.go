package application

import (
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// callGuard is the engine's reentrancy flag. Exactly one state-mutating
// call may hold it; a second caller is rejected, never queued, so a
// transfer callback that re-enters the engine fails deterministically.
type callGuard struct {
	mu sync.Mutex
}

// Enter acquires the guard or reports ErrReentrancy.
func (g *callGuard) Enter() error {
	if !g.mu.TryLock() {
		return domain.ErrReentrancy
	}
	return nil
}

// Exit releases the guard. Callers pair it with Enter via defer so the
// flag clears on failure paths too.
func (g *callGuard) Exit() {
	g.mu.Unlock()
}

// Held reports whether some call currently holds the guard. Used by the
// upgrade simulation to prove the flag is not stuck.
func (g *callGuard) Held() bool {
	if g.mu.TryLock() {
		g.mu.Unlock()
		return false
	}
	return true
}
