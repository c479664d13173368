package engine

// Health tracks hit points for an entity that can take damage.
type Health struct {
	Max     int
	Current int
	Dead    bool
}

// NewHealth creates a Health with current set to max.
func NewHealth(max int) *Health {
	if max <= 0 {
		max = 1
	}
	return &Health{Max: max, Current: max}
}

// IsAlive reports whether the entity is alive.
func (h *Health) IsAlive() bool {
	return h != nil && !h.Dead && h.Current > 0
}

// ApplyDamage subtracts amount and reports whether damage was applied and
// whether it was lethal.
func (h *Health) ApplyDamage(amount int) (applied, killed bool) {
	if h == nil || h.Dead || amount <= 0 {
		return false, false
	}
	h.Current -= amount
	if h.Current < 0 {
		h.Current = 0
	}
	if h.Current == 0 {
		h.Dead = true
		return true, true
	}
	return true, false
}

// Heal restores health up to Max.
func (h *Health) Heal(amount int) {
	if h == nil || h.Dead || amount <= 0 {
		return
	}
	h.Current = min(h.Current+amount, h.Max)
}
