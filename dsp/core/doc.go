// Package core provides the scalar math shared by the granular engine:
// clamping, soft saturation, one-pole smoothing, pitch-ratio conversion,
// and the lookup tables used by the real-time crossfade and distortion
// stages.
//
// Everything in this package is allocation-free and safe to call from the
// audio callback.
package core
