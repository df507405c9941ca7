// Package frame defines the stereo sample representations exchanged with
// the host: fixed-point 16-bit frames at the I/O boundary and normalized
// float frames inside the engine.
package frame

import "github.com/cwbudde/algo-granular/dsp/core"

// Float is one stereo sample pair in the normalized [-1, 1] domain.
// Transient excursions beyond the nominal range are allowed; the output
// conversion saturates.
type Float struct {
	L, R float64
}

// Short is one stereo sample pair in the host's signed 16-bit domain.
type Short struct {
	L, R int16
}

const shortScale = 32768.0

// FromShort converts one fixed-point sample to float.
func FromShort(s int16) float64 {
	return float64(s) / shortScale
}

// ToShort converts a float sample to fixed point with hard clamping.
func ToShort(x float64) int16 {
	x *= shortScale
	if x > 32767 {
		return 32767
	}
	if x < -32768 {
		return -32768
	}
	return int16(x)
}

// SoftConvert converts a float sample to fixed point through the soft
// saturation curve, so overshoot folds instead of wrapping. The curve
// is evaluated at half scale to keep nominal-level signals near-linear.
func SoftConvert(x float64) int16 {
	return ToShort(core.SoftLimit(x*0.5) * 2)
}

// ConvertBlock fills dst with the float representation of src.
// Both slices must have the same length.
func ConvertBlock(dst []Float, src []Short) {
	for i := range src {
		dst[i].L = FromShort(src[i].L)
		dst[i].R = FromShort(src[i].R)
	}
}

// SoftConvertBlock fills dst with the saturating fixed-point conversion
// of src. Both slices must have the same length.
func SoftConvertBlock(dst []Short, src []Float) {
	for i := range src {
		dst[i].L = SoftConvert(src[i].L)
		dst[i].R = SoftConvert(src[i].R)
	}
}

// Zero silences the block.
func Zero(dst []Short) {
	for i := range dst {
		dst[i] = Short{}
	}
}
