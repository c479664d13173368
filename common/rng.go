package common

import "math/rand"

// RNG wraps math/rand.Rand with position tracking so a run can be replayed
// from (seed, position).
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, src: rand.New(rand.NewSource(seed))}
}

// RestoreRNG creates an RNG advanced to position.
func RestoreRNG(seed, position int64) *RNG {
	r := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		r.src.Int63()
	}
	r.pos = position
	return r
}

// Float64 returns a value in [0,1).
func (r *RNG) Float64() float64 {
	r.pos++
	return float64(r.src.Int63n(1<<53)) / (1 << 53)
}

// Intn returns a value in [0,n). n must be positive.
func (r *RNG) Intn(n int) int {
	r.pos++
	return int(r.src.Int63n(int64(n)))
}

func (r *RNG) Seed() int64     { return r.seed }
func (r *RNG) Position() int64 { return r.pos }
