package engines

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/mem"
	"github.com/cwbudde/algo-granular/dsp/param"
)

const (
	pvocFrameSize     = 2048
	pvocHopSize       = 512
	pvocNumBins       = pvocFrameSize / 2
	pvocHistoryFrames = 4

	// Sine analysis and synthesis windows at 75% overlap sum to 1.5.
	pvocWindowGain = 2.0 / 3.0
)

// SpectralTransform selects how the vocoder reshapes each analysis frame.
type SpectralTransform int

const (
	// TransformFrame quantizes, warps and phase-scrambles single frames.
	TransformFrame SpectralTransform = iota
	// TransformCloud blends pitch-shifted frames drawn at random from a
	// short magnitude history.
	TransformCloud
)

type pvocChannel struct {
	// Region-backed memory.
	fifo    []int16
	history []float64

	// Heap scratch sized once at Init.
	timeFrame []complex128
	spectrum  []complex128
	magnitude []float64
	phase     []float64
	held      []float64
	scratch   []float64
	synth     []float64

	fifoWrite  int
	pending    int
	synthRead  int
	synthWrite int
	histHead   int
}

// PhaseVocoder is the STFT engine behind the two spectral modes. It runs
// a sliding analysis over the caller-owned sample regions and resynthesizes
// with overlap-add, one frame of latency.
//
// Analysis work is amortized: Process only pushes and pops samples, the
// costly FFT pass runs from Buffer so the orchestrator can schedule it
// once per control block.
//
// Real-time safe after Init (no per-sample allocations) and not thread-safe.
type PhaseVocoder struct {
	transform  SpectralTransform
	channels   int
	sampleRate float64

	plan   *algofft.Plan[complex128]
	window []float64

	ch [2]pvocChannel

	frozen     bool
	noiseState uint32
}

// Init binds the vocoder to the two raw regions, one per channel. The
// second region may be nil in mono. The previous region contents are
// reinterpreted in place, which is what lets a restored recording buffer
// feed the spectral modes.
func (pv *PhaseVocoder) Init(transform SpectralTransform, regions [2][]byte, channels int, sampleRate float64) {
	pv.transform = transform
	pv.channels = channels
	pv.sampleRate = sampleRate
	pv.noiseState = 0x2545F491

	if pv.plan == nil {
		// Cannot fail for a constant power-of-two size.
		pv.plan, _ = algofft.NewPlan64(pvocFrameSize)
		pv.window = core.SineWindow(pvocFrameSize)
	}

	for c := 0; c < channels; c++ {
		ch := &pv.ch[c]
		a := mem.NewArena(regions[c])
		ch.fifo = a.Int16(pvocFrameSize)
		ch.history = a.Float64(pvocHistoryFrames * pvocNumBins)

		if ch.timeFrame == nil {
			ch.timeFrame = make([]complex128, pvocFrameSize)
			ch.spectrum = make([]complex128, pvocFrameSize)
			ch.magnitude = make([]float64, pvocNumBins)
			ch.phase = make([]float64, pvocNumBins)
			ch.held = make([]float64, pvocNumBins)
			ch.scratch = make([]float64, pvocNumBins)
			ch.synth = make([]float64, 2*pvocFrameSize)
		}

		ch.fifoWrite = 0
		ch.pending = 0
		ch.synthRead = 0
		// One frame of latency keeps overlap-add writes ahead of reads.
		ch.synthWrite = pvocFrameSize
		ch.histHead = 0
		for i := range ch.synth {
			ch.synth[i] = 0
		}
		for i := range ch.held {
			ch.held[i] = 0
		}
	}
}

func (pv *PhaseVocoder) noise() float64 {
	pv.noiseState = pv.noiseState*1664525 + 1013904223
	return float64(pv.noiseState>>8) / 16777216
}

// Buffer runs at most one pending analysis/synthesis frame per channel.
// Call it every control block.
func (pv *PhaseVocoder) Buffer(p *param.Parameters) {
	pv.frozen = p.Freeze
	for c := 0; c < pv.channels; c++ {
		ch := &pv.ch[c]
		if ch.pending >= pvocHopSize {
			pv.processFrame(ch, p)
			ch.pending -= pvocHopSize
		}
	}
}

// Process pushes one block into the analysis FIFO and pops the
// resynthesized signal, both channels interleaved as frames.
func (pv *PhaseVocoder) Process(p *param.Parameters, in, out []frame.Float) {
	for c := 0; c < pv.channels; c++ {
		ch := &pv.ch[c]

		// Catch up if the amortized pass fell behind.
		for ch.pending+len(in) > pvocFrameSize {
			pv.processFrame(ch, p)
			ch.pending -= pvocHopSize
		}

		for i := range in {
			x := in[i].L
			if c == 1 {
				x = in[i].R
			}
			ch.fifo[ch.fifoWrite] = quantizePvoc(x)
			ch.fifoWrite = (ch.fifoWrite + 1) & (pvocFrameSize - 1)
			ch.pending++

			y := ch.synth[ch.synthRead]
			ch.synth[ch.synthRead] = 0
			ch.synthRead = (ch.synthRead + 1) & (2*pvocFrameSize - 1)

			if c == 0 {
				out[i].L = y
				out[i].R = y
			} else {
				out[i].R = y
			}
		}
	}
}

// processFrame analyzes one window ending at the FIFO write position,
// applies the selected transform, and overlap-adds the result.
func (pv *PhaseVocoder) processFrame(ch *pvocChannel, p *param.Parameters) {
	start := (ch.fifoWrite - ch.pending + pvocHopSize - pvocFrameSize) & (pvocFrameSize - 1)
	for i := 0; i < pvocFrameSize; i++ {
		s := float64(ch.fifo[(start+i)&(pvocFrameSize-1)]) / 32768
		ch.timeFrame[i] = complex(s*pv.window[i], 0)
	}
	if err := pv.plan.Forward(ch.spectrum, ch.timeFrame); err != nil {
		return
	}

	for i := 0; i < pvocNumBins; i++ {
		re := real(ch.spectrum[i])
		im := imag(ch.spectrum[i])
		ch.magnitude[i] = math.Hypot(re, im)
		ch.phase[i] = math.Atan2(im, re)
	}

	switch pv.transform {
	case TransformFrame:
		pv.transformFrame(ch, p)
	case TransformCloud:
		pv.transformCloud(ch, p)
	}

	// Rebuild a conjugate-symmetric spectrum and resynthesize.
	ch.spectrum[0] = complex(ch.magnitude[0], 0)
	for i := 1; i < pvocNumBins; i++ {
		s, c := math.Sincos(ch.phase[i])
		bin := complex(ch.magnitude[i]*c, ch.magnitude[i]*s)
		ch.spectrum[i] = bin
		ch.spectrum[pvocFrameSize-i] = complex(real(bin), -imag(bin))
	}
	ch.spectrum[pvocNumBins] = 0
	if err := pv.plan.Inverse(ch.timeFrame, ch.spectrum); err != nil {
		return
	}

	for i := 0; i < pvocFrameSize; i++ {
		ch.synth[(ch.synthWrite+i)&(2*pvocFrameSize-1)] += real(ch.timeFrame[i]) * pv.window[i] * pvocWindowGain
	}
	ch.synthWrite = (ch.synthWrite + pvocHopSize) & (2*pvocFrameSize - 1)
}

// transformFrame is the single-frame reshaper: magnitude quantization,
// bin warping, probabilistic refresh and phase scrambling.
func (pv *PhaseVocoder) transformFrame(ch *pvocChannel, p *param.Parameters) {
	s := &p.Spectral

	if s.Quantization > 0 {
		peak := 1e-9
		for _, m := range ch.magnitude {
			if m > peak {
				peak = m
			}
		}
		gate := s.Quantization * s.Quantization * peak * 0.5
		for i, m := range ch.magnitude {
			if m < gate {
				ch.magnitude[i] = m * (1 - s.Quantization)
			}
		}
	}

	if s.Warp != 0.5 {
		// Exponent sweep remaps bin positions, stretching either the
		// low or the high end of the spectrum.
		exp := math.Pow(2, (s.Warp-0.5)*4)
		for i := 0; i < pvocNumBins; i++ {
			src := math.Pow(float64(i)/pvocNumBins, exp) * pvocNumBins
			j := int(src)
			if j >= pvocNumBins-1 {
				j = pvocNumBins - 2
			}
			t := src - float64(j)
			ch.scratch[i] = ch.magnitude[j] + t*(ch.magnitude[j+1]-ch.magnitude[j])
		}
		copy(ch.magnitude, ch.scratch)
	}

	// Refresh rate gates how often the sustained frame is replaced.
	refresh := !pv.frozen && pv.noise() < s.RefreshRate*s.RefreshRate
	if refresh {
		copy(ch.held, ch.magnitude)
	} else {
		copy(ch.magnitude, ch.held)
	}

	if s.PhaseRandomization > 0 {
		for i := 1; i < pvocNumBins; i++ {
			ch.phase[i] += (pv.noise()*2 - 1) * math.Pi * s.PhaseRandomization
		}
	}
}

// transformCloud diffuses the spectrum over a short magnitude history,
// drawing pitch-shifted frames at random offsets.
func (pv *PhaseVocoder) transformCloud(ch *pvocChannel, p *param.Parameters) {
	if !pv.frozen {
		copy(ch.history[ch.histHead*pvocNumBins:(ch.histHead+1)*pvocNumBins], ch.magnitude)
		ch.histHead = (ch.histHead + 1) % pvocHistoryFrames
	}

	ratio := core.SemitonesToRatio(p.Pitch)
	spread := core.Clamp(p.Position, 0, 1)
	density := core.Clamp(p.Density, 0, 1)
	voices := 1 + int(density*float64(pvocHistoryFrames-1))

	for i := range ch.magnitude {
		ch.magnitude[i] = 0
	}
	for v := 0; v < voices; v++ {
		offset := 0
		if spread > 0 {
			offset = int(pv.noise() * spread * float64(pvocHistoryFrames))
		}
		f := ((ch.histHead - 1 - offset) % pvocHistoryFrames + pvocHistoryFrames) % pvocHistoryFrames
		src := ch.history[f*pvocNumBins : (f+1)*pvocNumBins]

		// Shift bins by the pitch ratio.
		for i := 1; i < pvocNumBins; i++ {
			srcBin := float64(i) / ratio
			j := int(srcBin)
			if j < 1 || j >= pvocNumBins-1 {
				continue
			}
			t := srcBin - float64(j)
			ch.magnitude[i] += src[j] + t*(src[j+1]-src[j])
		}
	}
	vecmath.ScaleBlock(ch.magnitude, ch.magnitude, 1/float64(voices))

	// The cloud always resynthesizes with scrambled phases; texture
	// tilts how deep the scramble goes.
	depth := 0.25 + 0.75*core.Clamp(p.Texture, 0, 1)
	for i := 1; i < pvocNumBins; i++ {
		ch.phase[i] += (pv.noise()*2 - 1) * math.Pi * depth
	}
}

func quantizePvoc(x float64) int16 {
	v := x * 32768
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
