package system

import (
	"math"

	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
)

// ReputationDecaySystem drifts standings toward neutral once per turn. The
// faction step shrinks while a grievance against the faction is recent, so
// fresh wrongs are remembered and old ones fade. Personal standings drift by
// the full bound.
type ReputationDecaySystem struct {
	// Bound is the largest change per standing per turn.
	Bound    float64
	HalfLife float64
	Now      func() int64
}

func (s *ReputationDecaySystem) Update(w *ecs.World) {
	if s.Bound <= 0 {
		return
	}
	now := s.Now()
	for _, e := range w.Query(component.ReputationComponent.ID()) {
		rep, ok := ecs.Get(w, e, component.ReputationComponent)
		if !ok {
			continue
		}
		changed := false
		for _, faction := range rep.Factions() {
			age := int64(math.MaxInt32)
			if g, ok := rep.LastGrievance(faction); ok {
				age = now - g.Tick
			}
			step := s.Bound * (1 - component.RecencyWeight(age, s.HalfLife))
			if rep.DecayToward(faction, step) != 0 {
				changed = true
			}
		}
		for _, subject := range rep.Subjects() {
			if rep.DecayTowardSubject(subject, s.Bound) != 0 {
				changed = true
			}
		}
		if changed {
			_ = ecs.Add(w, e, component.ReputationComponent, rep)
		}
	}
}

// MemoryFadeSystem drops memories that have faded below their threshold.
type MemoryFadeSystem struct {
	Now func() int64
}

func (s *MemoryFadeSystem) Update(w *ecs.World) {
	now := s.Now()
	ecs.ForEach(w, component.MemoryComponent, func(e ecs.Entity, mem component.Memory) {
		if mem.Forget(now) > 0 {
			_ = ecs.Add(w, e, component.MemoryComponent, mem)
		}
	})
}
