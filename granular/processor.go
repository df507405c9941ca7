package granular

import (
	"fmt"

	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/engines"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/fx"
	"github.com/cwbudde/algo-granular/dsp/mem"
	"github.com/cwbudde/algo-granular/dsp/param"
	"github.com/cwbudde/algo-granular/dsp/resample"
	"github.com/cwbudde/algo-granular/dsp/svf"
)

// Processor is the orchestrator instance. It owns the two caller-supplied
// memory regions for its whole lifetime and re-partitions them on every
// full Prepare.
type Processor struct {
	large []byte
	small []byte

	sampleRate        float64
	channels          int
	lowFidelity       bool
	bypass            bool
	silence           bool
	resetBuffers      bool
	muteIn            bool
	muteOut           bool
	reverbDrySignal   bool
	quantizeSemitones bool

	mode     PlaybackMode
	prevMode PlaybackMode

	params param.Parameters

	// Per-block smoothing state, owned by Process.
	muteInFade  float64
	muteOutFade float64
	dryWet      float64
	freezeLP    float64

	// Recording buffers, at most one resolution active.
	buffer16 [2]audiobuf.Buffer16
	buffer8  [2]audiobuf.Buffer8
	readers  []audiobuf.Reader

	// Engines.
	player     engines.GranularPlayer
	wsPlayer   engines.StretchPlayer
	looper     engines.Looper
	kammerl    engines.Kammerl
	correlator engines.Correlator
	vocoder    engines.PhaseVocoder

	// Post effects over workspace memory.
	diffuser     fx.Diffuser
	reverb       fx.Reverb
	oliverb      fx.Oliverb
	resonestor   fx.Resonestor
	pitchShifter fx.PitchShifter

	fbFilter [2]svf.Filter
	lpFilter [2]svf.Filter
	hpFilter [2]svf.Filter

	srcDown resample.Decimator
	srcUp   resample.Interpolator

	// Block scratch, sized once at construction.
	in      []frame.Float
	out     []frame.Float
	fb      []frame.Float
	inDown  []frame.Float
	outDown []frame.Float
	writeIx []float64 // interleaved view of in for WriteFade

	persistent  PersistentState
	headerBytes [persistentHeaderSize]byte
}

// New creates a processor over the two memory regions. The regions must
// be sized for the worst case across all modes; undersized regions are a
// precondition violation, not a checked error.
func New(large, small []byte, opts ...Option) (*Processor, error) {
	if len(large) == 0 || len(small) == 0 {
		return nil, fmt.Errorf("both memory regions must be non-empty: %d, %d", len(large), len(small))
	}
	if len(small) > len(large) {
		return nil, fmt.Errorf("large region must not be smaller than small region: %d < %d", len(large), len(small))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	p := &Processor{
		large:             large,
		small:             small,
		sampleRate:        cfg.sampleRate,
		channels:          cfg.channels,
		lowFidelity:       cfg.lowFidelity,
		reverbDrySignal:   cfg.reverbDrySignal,
		quantizeSemitones: cfg.quantizeSemitones,
		prevMode:          ModeLast,
		resetBuffers:      true,
		readers:           make([]audiobuf.Reader, 0, 2),
	}

	n := cfg.blockSize
	p.in = make([]frame.Float, n)
	p.out = make([]frame.Float, n)
	p.fb = make([]frame.Float, n)
	p.inDown = make([]frame.Float, n/resample.Factor)
	p.outDown = make([]frame.Float, n/resample.Factor)
	p.writeIx = make([]float64, 2*n)

	p.srcDown.Init()
	p.srcUp.Init()
	p.resetFilters()

	return p, nil
}

// Parameters returns the live control record. The host mutates it
// between blocks; the per-mode sub-records are overwritten every block.
func (p *Processor) Parameters() *param.Parameters { return &p.params }

// PlaybackMode returns the active mode.
func (p *Processor) PlaybackMode() PlaybackMode { return p.mode }

// SetPlaybackMode requests a mode. The change takes effect at the next
// Prepare; until then Process emits silence to mask the swap.
func (p *Processor) SetPlaybackMode(mode PlaybackMode) {
	if mode >= ModeLast || mode < 0 {
		return
	}
	p.mode = mode
}

// NumChannels returns the configured channel count.
func (p *Processor) NumChannels() int { return p.channels }

// SetNumChannels reconfigures mono/stereo operation; it forces a full
// reallocation at the next Prepare.
func (p *Processor) SetNumChannels(channels int) {
	if channels != 1 && channels != 2 {
		return
	}
	if channels != p.channels {
		p.channels = channels
		p.resetBuffers = true
	}
}

// LowFidelity reports reduced-rate operation.
func (p *Processor) LowFidelity() bool { return p.lowFidelity }

// SetLowFidelity toggles reduced-rate, reduced-depth operation; it
// forces a full reallocation at the next Prepare.
func (p *Processor) SetLowFidelity(lofi bool) {
	if lofi != p.lowFidelity {
		p.lowFidelity = lofi
		p.resetBuffers = true
	}
}

// Quality returns the packed fidelity/channel code used by persistence.
func (p *Processor) Quality() uint8 {
	q := uint8(0)
	if p.channels == 1 {
		q |= 1
	}
	if p.lowFidelity {
		q |= 2
	}
	return q
}

// SetQuality applies a packed fidelity/channel code.
func (p *Processor) SetQuality(q uint8) {
	channels := 2
	if q&1 != 0 {
		channels = 1
	}
	p.SetNumChannels(channels)
	p.SetLowFidelity(q&2 != 0)
}

// SetBypass routes the input to the output untouched.
func (p *Processor) SetBypass(bypass bool) { p.bypass = bypass }

// Bypass reports whether the processor is bypassed.
func (p *Processor) Bypass() bool { return p.bypass }

// SetSilence forces full-zero output blocks.
func (p *Processor) SetSilence(silence bool) { p.silence = silence }

// SetMuteIn fades the input path to silence.
func (p *Processor) SetMuteIn(mute bool) { p.muteIn = mute }

// SetMuteOut fades the processed path to silence.
func (p *Processor) SetMuteOut(mute bool) { p.muteOut = mute }

// SetReverbOnDrySignal moves the plate reverb after the dry/wet mix.
func (p *Processor) SetReverbOnDrySignal(enabled bool) { p.reverbDrySignal = enabled }

// ResetBuffers requests a full re-partition at the next Prepare.
func (p *Processor) ResetBuffers() { p.resetBuffers = true }

func (p *Processor) resolution() int {
	if p.lowFidelity {
		return 8
	}
	return 16
}

func (p *Processor) resetFilters() {
	for i := range p.fbFilter {
		p.fbFilter[i].Reset()
		p.lpFilter[i].Reset()
		p.hpFilter[i].Reset()
	}
}

// Prepare brings memory partitioning and engine state in line with the
// current mode. Benign transitions between the light modes only reset
// the filters and the pitch shifter; everything else redistributes the
// two regions from scratch. It must run before the first Process after
// any mode, fidelity or channel change.
func (p *Processor) Prepare() {
	modeChanged := p.prevMode != p.mode
	benign := benignPair(p.prevMode, p.mode)

	if !p.resetBuffers && modeChanged && benign {
		p.resetFilters()
		p.pitchShifter.Clear()
		p.prevMode = p.mode
	}

	if (modeChanged && !benign) || p.resetBuffers {
		p.params.Freeze = false
	}

	if p.resetBuffers || (modeChanged && !benign) {
		p.reallocate()
		p.resetBuffers = false
		p.prevMode = p.mode
	}

	// Unconditional maintenance, amortized across calls.
	switch p.mode {
	case ModeSpectral, ModeSpectralCloud:
		p.vocoder.Buffer(&p.params)
	case ModeStretch, ModeOliverb:
		p.wsPlayer.LoadCorrelator(p.readers)
		p.correlator.EvaluateSomeCandidates()
	}
}

// reallocate splits the regions into sample memory plus workspace and
// reinitializes every engine the current mode needs.
func (p *Processor) reallocate() {
	var sample [2][]byte
	var workspace []byte
	if p.channels == 1 {
		sample[0] = p.large
		workspace = p.small
	} else {
		// Both channels get the small region's capacity; the large
		// region's remainder becomes workspace.
		n := len(p.small)
		sample[0] = p.large[:n]
		sample[1] = p.small
		workspace = p.large[n:]
	}

	a := mem.NewArena(workspace)
	p.diffuser.Init(a.Float64(fx.DiffuserBufferSize))

	reverbBuf := a.Int16(fx.ReverbBufferSize)
	if p.mode == ModeOliverb {
		p.oliverb.Init(reverbBuf)
	} else {
		p.reverb.Init(reverbBuf)
	}

	p.correlator.Init(
		a.Float64(engines.CorrelatorBlockSize),
		a.Float64(engines.CorrelatorBlockSize))
	p.pitchShifter.Init(a.Int16(fx.PitchShifterBufferSize))

	p.readers = p.readers[:0]

	switch p.mode {
	case ModeSpectral:
		p.vocoder.Init(engines.TransformFrame, sample, p.channels, p.sampleRate)
	case ModeSpectralCloud:
		p.vocoder.Init(engines.TransformCloud, sample, p.channels, p.sampleRate)
	case ModeResonestor:
		// The resonestor carves the large region directly; its modes
		// never touch the diffuser, reverb or pitch shifter, so the
		// overlap with the workspace carve is harmless.
		ra := mem.NewArena(p.large)
		p.resonestor.Init(ra.Float64(fx.ResonestorBufferSize))
	default:
		for i := 0; i < p.channels; i++ {
			if p.resolution() == 8 {
				p.buffer8[i].Init(mem.Int8View(sample[i]))
				p.readers = append(p.readers, &p.buffer8[i])
			} else {
				p.buffer16[i].Init(mem.Int16View(sample[i]))
				p.readers = append(p.readers, &p.buffer16[i])
			}
		}

		numGrains := 32
		if p.channels == 1 {
			numGrains = 40
		}
		if p.lowFidelity {
			numGrains = numGrains * 23 >> 4
		}
		p.player.Init(p.channels, numGrains)
		p.wsPlayer.Init(&p.correlator, p.channels)
		p.looper.Init(p.channels)
		p.kammerl.Init(p.channels)
	}
}
