// Package svf implements the two-pole state-variable filter used for
// the feedback high-pass and the texture-controlled post filters.
//
// The topology is the classic Chamberlin digital SVF with the coefficient
// g = 2*sin(pi*f) taken in its small-angle form so the filter can be
// retuned every block without a table lookup.
package svf

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/core"
)

// Filter is one state-variable filter channel. The zero value is usable
// after SetFQ; Reset clears only the state, not the tuning.
type Filter struct {
	g    float64
	damp float64

	low  float64
	band float64
}

// SetFQ tunes the filter. freq is normalized (cutoff / sample rate) and
// clamped to the stable range; q is the resonance (0.5 .. ~20).
func (f *Filter) SetFQ(freq, q float64) {
	freq = core.Clamp(freq, 0, 0.249)
	f.g = 2 * math.Sin(math.Pi*freq)
	if q < 0.5 {
		q = 0.5
	}
	f.damp = 1 / q
	if f.damp > 2-f.g {
		f.damp = 2 - f.g
	}
}

// CopyTuning copies coefficients (not state) from src, so a stereo pair
// can share one tuning computation per block.
func (f *Filter) CopyTuning(src *Filter) {
	f.g = src.g
	f.damp = src.damp
}

// Reset clears the filter state.
func (f *Filter) Reset() {
	f.low = 0
	f.band = 0
}

func (f *Filter) tick(x float64) (low, high float64) {
	f.low += f.g * f.band
	high = x - f.low - f.damp*f.band
	f.band += f.g * high
	f.band = core.FlushDenormal(f.band)
	f.low = core.FlushDenormal(f.low)
	return f.low, high
}

// LowPass filters one sample and returns the low-pass output.
func (f *Filter) LowPass(x float64) float64 {
	low, _ := f.tick(x)
	return low
}

// HighPass filters one sample and returns the high-pass output.
func (f *Filter) HighPass(x float64) float64 {
	_, high := f.tick(x)
	return high
}
