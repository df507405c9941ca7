package granular

// PlaybackMode selects which engine transforms the input stream.
// Exactly one mode is active at a time.
type PlaybackMode int

const (
	ModeGranular PlaybackMode = iota
	ModeStretch
	ModeLoopingDelay
	ModeSpectral
	ModeSpectralCloud
	ModeOliverb
	ModeResonestor
	ModeKammerl

	// ModeLast is a sentinel: it is never selectable and only serves as
	// the "previous mode" before the first Prepare, forcing that call
	// down the full allocation path.
	ModeLast
)

var modeNames = [...]string{
	"granular",
	"stretch",
	"looping-delay",
	"spectral",
	"spectral-cloud",
	"oliverb",
	"resonestor",
	"kammerl",
	"last",
}

func (m PlaybackMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// selfBuffering reports whether the mode manages its own use of the
// sample regions instead of recording through the circular buffers.
func (m PlaybackMode) selfBuffering() bool {
	return m == ModeSpectral || m == ModeSpectralCloud || m == ModeResonestor
}

// benignPair reports whether a transition between the two modes can keep
// the recording buffers and engine allocations untouched. Any transition
// touching the spectral modes, the resonestor or the oliverb tears down
// state that the other modes cannot inherit.
func benignPair(prev, next PlaybackMode) bool {
	heavy := func(m PlaybackMode) bool {
		return m == ModeSpectral || m == ModeSpectralCloud ||
			m == ModeResonestor || m == ModeOliverb
	}
	return !heavy(prev) && !heavy(next) && prev != ModeLast
}
