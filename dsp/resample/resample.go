// Package resample provides the fixed factor-2 sample-rate converter
// pair wrapped around the mode dispatch in low-fidelity operation.
//
// Both converters are stereo, stateful across blocks, and allocation-free
// after Init. The anti-aliasing filter is a windowed-sinc half-band FIR
// designed once at Init.
package resample

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/frame"
)

// Factor is the fixed downsampling factor of low-fidelity mode. Block
// sizes fed to the converters must be divisible by it.
const Factor = 2

// numTaps is the FIR length. Odd, so the filter has integer group delay.
const numTaps = 31

// halfBandCoefficients designs the shared anti-aliasing lowpass
// (cutoff at half the reduced Nyquist, Blackman window).
func halfBandCoefficients() [numTaps]float64 {
	var h [numTaps]float64
	center := float64(numTaps-1) / 2
	sum := 0.0
	for i := range h {
		t := float64(i) - center
		// sinc at cutoff 0.25 of the full rate
		var s float64
		if t == 0 {
			s = 0.5
		} else {
			s = math.Sin(math.Pi*0.5*t) / (math.Pi * t)
		}
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(numTaps-1)) +
			0.08*math.Cos(4*math.Pi*float64(i)/float64(numTaps-1))
		h[i] = s * w
		sum += h[i]
	}
	for i := range h {
		h[i] /= sum
	}
	return h
}

// Decimator halves the sample rate of a stereo stream.
type Decimator struct {
	coeffs [numTaps]float64
	hist   [numTaps]frame.Float
}

// Init designs the filter and clears the history.
func (d *Decimator) Init() {
	d.coeffs = halfBandCoefficients()
	d.hist = [numTaps]frame.Float{}
}

// Process fills out with the filtered, decimated input.
// len(out) must equal len(in)/Factor.
func (d *Decimator) Process(in, out []frame.Float) {
	for j := range out {
		// Shift two input samples into the history.
		for k := 0; k < Factor; k++ {
			copy(d.hist[:], d.hist[1:])
			d.hist[numTaps-1] = in[j*Factor+k]
		}
		var l, r float64
		for t, c := range d.coeffs {
			l += c * d.hist[t].L
			r += c * d.hist[t].R
		}
		out[j].L = l
		out[j].R = r
	}
}

// Interpolator doubles the sample rate of a stereo stream.
type Interpolator struct {
	coeffs [numTaps]float64
	hist   [numTaps]frame.Float
}

// Init designs the filter and clears the history.
func (u *Interpolator) Init() {
	u.coeffs = halfBandCoefficients()
	u.hist = [numTaps]frame.Float{}
}

// Process fills out with the zero-stuffed, filtered input.
// len(out) must equal len(in)*Factor.
func (u *Interpolator) Process(in, out []frame.Float) {
	for j := range in {
		for k := 0; k < Factor; k++ {
			copy(u.hist[:], u.hist[1:])
			if k == 0 {
				// Zero stuffing loses a factor of 2 in energy;
				// compensate at insertion.
				u.hist[numTaps-1] = frame.Float{
					L: in[j].L * Factor,
					R: in[j].R * Factor,
				}
			} else {
				u.hist[numTaps-1] = frame.Float{}
			}
			var l, r float64
			for t, c := range u.coeffs {
				l += c * u.hist[t].L
				r += c * u.hist[t].R
			}
			out[j*Factor+k].L = l
			out[j*Factor+k].R = r
		}
	}
}
