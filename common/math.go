package common

import (
	"math"

	"github.com/jakecoffman/cp"
)

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// GridStep returns the single-tile step from -> to, each axis in {-1,0,1}.
func GridStep(from, to cp.Vector) cp.Vector {
	d := to.Sub(from)
	return cp.Vector{X: sign(math.Round(d.X)), Y: sign(math.Round(d.Y))}
}

// AwayStep returns the single-tile step that increases the distance from
// threat. Standing on the threat picks +X.
func AwayStep(from, threat cp.Vector) cp.Vector {
	step := GridStep(threat, from)
	if step.X == 0 && step.Y == 0 {
		return cp.Vector{X: 1}
	}
	return step
}

// ChebyshevDistance is the tile distance with diagonal moves.
func ChebyshevDistance(a, b cp.Vector) float64 {
	return math.Max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y))
}
