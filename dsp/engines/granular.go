package engines

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
)

const (
	// MaxGrains bounds the preallocated grain pool.
	MaxGrains = 64

	minGrainDuration = 512
	maxGrainDuration = 8192
)

type grain struct {
	active   bool
	pos      float64 // read position in the recording buffer
	phase    float64 // envelope phase in [0, 1)
	phaseInc float64
	ratio    float64
	gainL    float64
	gainR    float64
}

// GranularPlayer scatters overlapping windowed grains over the recording
// buffer. Density sets the spawn rate (and, through the meta mapping,
// whether scheduling is deterministic or randomized), position and size
// choose where and how much of the recorded past each grain covers.
type GranularPlayer struct {
	channels  int
	numGrains int
	grains    [MaxGrains]grain

	spawnCounter int
	noiseState   uint32
}

// Init configures the grain pool. numGrains is clamped to MaxGrains.
func (g *GranularPlayer) Init(channels, numGrains int) {
	if numGrains > MaxGrains {
		numGrains = MaxGrains
	}
	g.channels = channels
	g.numGrains = numGrains
	g.grains = [MaxGrains]grain{}
	g.spawnCounter = 0
	g.noiseState = 0x8D5A61A4
}

func (g *GranularPlayer) noise() float64 {
	g.noiseState = g.noiseState*1664525 + 1013904223
	return float64(g.noiseState>>8) / 16777216
}

// Play renders one block from the recording buffers.
func (g *GranularPlayer) Play(bufs []audiobuf.Reader, p *param.Parameters, out []frame.Float) {
	if len(bufs) == 0 || bufs[0].Size() == 0 {
		for i := range out {
			out[i] = frame.Float{}
		}
		return
	}

	capacity := bufs[0].Size()
	duration := minGrainDuration + p.Size*(maxGrainDuration-minGrainDuration)
	ratio := core.SemitonesToRatio(p.Pitch)

	// Spawn interval from density and overlap: denser settings overlap
	// more grains.
	overlap := core.Clamp(p.Granular.Overlap, 0, 1)
	interval := int(duration / (1 + 7*overlap) / ratio)
	if interval < 64 {
		interval = 64
	}

	for i := range out {
		if p.Trigger && i == 0 {
			g.spawn(bufs, p, capacity, duration, ratio)
		}
		g.spawnCounter++
		if g.spawnCounter >= interval {
			g.spawnCounter = 0
			spawnChance := 1.0
			if !p.Granular.UseDeterministicSeed {
				spawnChance = 0.2 + 0.8*math.Abs(p.Density-0.5)*2
			}
			if g.noise() <= spawnChance {
				g.spawn(bufs, p, capacity, duration, ratio)
			}
		}

		var l, r float64
		for n := 0; n < g.numGrains; n++ {
			gr := &g.grains[n]
			if !gr.active {
				continue
			}
			env := envelope(gr.phase, p.Granular.WindowShape)
			var s float64
			if g.channels == 2 && len(bufs) > 1 {
				l += bufs[0].ReadHermite(gr.pos) * env * gr.gainL
				r += bufs[1].ReadHermite(gr.pos) * env * gr.gainR
			} else {
				s = bufs[0].ReadHermite(gr.pos) * env
				l += s * gr.gainL
				r += s * gr.gainR
			}
			gr.pos += gr.ratio
			gr.phase += gr.phaseInc
			if gr.phase >= 1 {
				gr.active = false
			}
		}
		out[i].L = l
		out[i].R = r
	}
}

// spawn activates a free grain at the position control's offset behind
// the write head, randomized by the deterministic-seed setting.
func (g *GranularPlayer) spawn(bufs []audiobuf.Reader, p *param.Parameters, capacity int, duration, ratio float64) {
	for n := 0; n < g.numGrains; n++ {
		gr := &g.grains[n]
		if gr.active {
			continue
		}
		jitter := 0.0
		if !p.Granular.UseDeterministicSeed {
			jitter = (g.noise() - 0.5) * 0.1 * float64(capacity)
		}
		offset := p.Position*float64(capacity-int(duration)-2) + jitter
		offset = core.Clamp(offset, 0, float64(capacity-1))

		pan := 0.5 + p.Granular.Stereo*(g.noise()-0.5)
		gr.active = true
		gr.pos = float64(bufs[0].Head()) - offset - duration
		gr.phase = 0
		gr.phaseInc = 1 / duration
		gr.ratio = ratio
		gr.gainL = core.XfadeOut(pan)
		gr.gainR = core.XfadeIn(pan)
		return
	}
}

// envelope evaluates the grain window at phase t. shape morphs from a
// narrow raised cosine toward a flat-topped trapezoid.
func envelope(t, shape float64) float64 {
	slope := 0.5 - 0.45*core.Clamp(shape, 0, 1)
	switch {
	case t < slope:
		return 0.5 - 0.5*math.Cos(math.Pi*t/slope)
	case t > 1-slope:
		return 0.5 - 0.5*math.Cos(math.Pi*(1-t)/slope)
	default:
		return 1
	}
}
