package ecs

import (
	"errors"
	"fmt"
)

// System is one step of a scheduler pass.
type System interface {
	Update(w *World)
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(w *World)

func (f SystemFunc) Update(w *World) { f(w) }

// Scheduler runs its systems in registration order. A system that panics is
// reported and the pass moves on to the next one.
type Scheduler struct {
	systems []System
	passes  int64
}

func NewScheduler(systems ...System) *Scheduler {
	s := &Scheduler{}
	for _, sys := range systems {
		s.Add(sys)
	}
	return s
}

func (s *Scheduler) Add(sys System) {
	if sys != nil {
		s.systems = append(s.systems, sys)
	}
}

func (s *Scheduler) Len() int { return len(s.systems) }

// Passes counts completed Update calls.
func (s *Scheduler) Passes() int64 { return s.passes }

// Update runs one pass and joins the failures of every system that panicked.
func (s *Scheduler) Update(w *World) error {
	var errs []error
	for i, sys := range s.systems {
		if err := runSystem(sys, w); err != nil {
			errs = append(errs, fmt.Errorf("ecs: system %d (%T): %w", i, sys, err))
		}
	}
	s.passes++
	return errors.Join(errs...)
}

func runSystem(sys System, w *World) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	sys.Update(w)
	return nil
}
