// Package param defines the live control record shared by every playback
// mode. The flat fields mirror the front-panel controls; the per-mode
// sub-records are derived from them each block by the orchestrator's
// mapping curves and are never set independently.
package param

// GranularParams are the granular player's derived controls.
type GranularParams struct {
	Overlap              float64
	WindowShape          float64
	Stereo               float64
	UseDeterministicSeed bool
}

// SpectralParams are the phase vocoder's derived controls.
type SpectralParams struct {
	Quantization       float64
	RefreshRate        float64
	Warp               float64
	PhaseRandomization float64
}

// KammerlParams are the slicer's derived controls. PitchMode doubles as
// the warm-distortion drive in the spectral cloud mode.
type KammerlParams struct {
	Probability   float64
	SliceStep     float64
	SliceMod      float64
	PitchMode     float64
	Pitch         float64
	DistortionAmt float64
}

// Parameters is the full control record handed to the active engine
// every block.
type Parameters struct {
	Trigger bool
	Gate    bool
	Freeze  bool

	Position     float64 // playback position into the recorded past
	Size         float64 // grain/loop/window size
	Pitch        float64 // transposition in semitones
	Density      float64 // grain density / mode meta control
	Texture      float64 // window shape / filter / damping meta control
	DryWet       float64
	StereoSpread float64
	Feedback     float64
	Reverb       float64

	Granular GranularParams
	Spectral SpectralParams
	Kammerl  KammerlParams
}
