package core

import "math"

// Table sizes. The crossfade tables are deliberately small: the curves
// are smooth and the interpolated error stays below -80 dB.
const (
	xfadeTableSize   = 17
	invTanhTableSize = 257
)

// Each table carries one guard entry past its nominal end so that a
// fractional index landing exactly on the last entry still has a valid
// interpolation neighbor.
var (
	lutXfadeIn  [xfadeTableSize + 1]float64
	lutXfadeOut [xfadeTableSize + 1]float64
	lutInvTanh  [invTanhTableSize + 1]float64
)

func init() {
	for i := 0; i < xfadeTableSize; i++ {
		t := float64(i) / float64(xfadeTableSize-1)
		lutXfadeIn[i] = math.Sin(t * math.Pi / 2)
		lutXfadeOut[i] = math.Cos(t * math.Pi / 2)
	}
	lutXfadeIn[xfadeTableSize] = lutXfadeIn[xfadeTableSize-1]
	lutXfadeOut[xfadeTableSize] = lutXfadeOut[xfadeTableSize-1]
	for i := 0; i < invTanhTableSize; i++ {
		t := float64(i) / float64(invTanhTableSize-1)
		lutInvTanh[i] = math.Atanh(t * 0.995)
	}
	lutInvTanh[invTanhTableSize] = lutInvTanh[invTanhTableSize-1]
}

// Interpolate reads a lookup table at fractional index x*scale with
// linear interpolation. x*scale must stay within [0, len(table)-2];
// tables meant for full-range reads include a guard entry.
func Interpolate(table []float64, x, scale float64) float64 {
	idx := x * scale
	integral := int(idx)
	frac := idx - float64(integral)
	a := table[integral]
	b := table[integral+1]
	return a + (b-a)*frac
}

// XfadeIn evaluates the equal-power fade-in curve at t in [0, 1].
func XfadeIn(t float64) float64 {
	return Interpolate(lutXfadeIn[:], t, xfadeTableSize-1)
}

// XfadeOut evaluates the matching equal-power fade-out curve at t in [0, 1].
func XfadeOut(t float64) float64 {
	return Interpolate(lutXfadeOut[:], t, xfadeTableSize-1)
}

// InvTanh evaluates the inverse-hyperbolic-tangent shaping curve at
// t in [0, 1]. The table saturates slightly below the pole at t = 1.
func InvTanh(t float64) float64 {
	return Interpolate(lutInvTanh[:], Clamp(t, 0, 1), invTanhTableSize-1)
}

// SineWindow fills a freshly allocated half-sine window of length n,
// the analysis/synthesis window used by the phase vocoder.
func SineWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = math.Sin(math.Pi * float64(i) / float64(n))
	}
	return w
}

// Hermite4 computes 4-point cubic Hermite interpolation from x0 toward
// x1 at fraction t, using outer neighbors xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + x0
}
