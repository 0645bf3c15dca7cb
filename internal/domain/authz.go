package domain

// FilterMode selects how the participant filter treats addresses.
type FilterMode string

const (
	FilterOpen      FilterMode = "open"
	FilterAllowlist FilterMode = "allowlist"
	FilterBlocklist FilterMode = "blocklist"
)

// ParticipantFilter gates which addresses may act as depositors or
// settlement counterparties. Open mode admits everyone.
type ParticipantFilter struct {
	Mode    FilterMode
	Entries map[string]bool
}

// Allows reports whether addr passes the filter.
func (f ParticipantFilter) Allows(addr string) bool {
	switch f.Mode {
	case FilterAllowlist:
		return f.Entries[addr]
	case FilterBlocklist:
		return !f.Entries[addr]
	default:
		return true
	}
}

// Check returns ErrParticipantBlocked when any of the given addresses fails
// the filter.
func (f ParticipantFilter) Check(addrs ...string) error {
	for _, a := range addrs {
		if !f.Allows(a) {
			return ErrParticipantBlocked
		}
	}
	return nil
}
