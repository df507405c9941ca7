package core

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// ln2 is the natural logarithm of 2, used to express exponentials of
// base 2 through approx.FastExp.
const ln2 = 0.693147180559945309417232121458

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SoftLimit applies the cubic soft saturation used around the feedback
// path. The curve is linear near zero and folds smoothly for |x| > 1.
func SoftLimit(x float64) float64 {
	return x * (27 + x*x) / (27 + 9*x*x)
}

// SoftClip hard-bounds SoftLimit so that arbitrarily large inputs stay
// inside [-1, 1].
func SoftClip(x float64) float64 {
	if x < -3 {
		return -1
	}
	if x > 3 {
		return 1
	}
	return SoftLimit(x)
}

// OnePole advances a one-pole smoother one step toward target and
// returns the new state.
func OnePole(state, target, coeff float64) float64 {
	return state + coeff*(target-state)
}

// SemitonesToRatio converts a pitch offset in semitones to a playback
// ratio. Uses the fast exponential; accurate to well under a cent over
// the +/- 48 semitone range the engine uses.
func SemitonesToRatio(semitones float64) float64 {
	return approx.FastExp(semitones * (ln2 / 12))
}

// Crossfade linearly interpolates between a and b.
func Crossfade(a, b, t float64) float64 {
	return a + (b-a)*t
}

// FlushDenormal converts tiny values to exact zero to keep recursive
// filters out of denormal territory.
func FlushDenormal(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}
	return x
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Sqrt is a thin wrapper kept so hot paths share one call site that can
// be swapped for approx.FastSqrt where precision allows.
func Sqrt(x float64) float64 {
	return math.Sqrt(x)
}
