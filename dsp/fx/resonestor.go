package fx

import (
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
)

// Resonestor geometry. Six comb resonators (three per channel) plus a
// burst excitation line are carved from channel-0 sample memory.
const (
	resonestorCombs     = 3
	resonestorMaxPeriod = 2048
	resonestorBurstLen  = 2048

	// ResonestorBufferSize is the number of float words Init carves.
	ResonestorBufferSize = 2*resonestorCombs*resonestorMaxPeriod + resonestorBurstLen
)

// chordTable lists the semitone offsets of the selectable chords, from
// unison spreads to wider voicings.
var chordTable = [][resonestorCombs]float64{
	{0, 0.01, 11.99},
	{0, 3, 7},
	{0, 4, 7},
	{0, 5, 7},
	{0, 7, 12},
	{0, 4, 11},
	{0, 3, 10},
	{0, 12, 19},
}

type resonatorComb struct {
	buf    []float64
	pos    int
	period float64
	lp     float64
}

func (c *resonatorComb) process(x, feedback, dampCoeff, drive float64) float64 {
	period := core.Clamp(c.period, 2, float64(len(c.buf)-2))
	d := int(period)
	t := period - float64(d)

	idx := c.pos - d
	if idx < 0 {
		idx += len(c.buf)
	}
	idx2 := idx - 1
	if idx2 < 0 {
		idx2 += len(c.buf)
	}
	delayed := c.buf[idx] + (c.buf[idx2]-c.buf[idx])*t

	c.lp += dampCoeff * (delayed - c.lp)
	c.lp = core.FlushDenormal(c.lp)

	y := x + feedback*c.lp
	if drive > 0 {
		y = core.Crossfade(y, core.SoftLimit(y), drive)
	}
	c.buf[c.pos] = y
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return y
}

// Resonestor is the resonator-bank mode engine: tuned comb filters
// excited by noise bursts or the live input. It runs fully wet and
// manages its own memory over channel-0 sample space.
type Resonestor struct {
	combs [2][resonestorCombs]resonatorComb
	burst []float64

	pitch       float64
	chord       float64
	burstDamp   float64
	burstComb   float64
	burstTime   float64
	spread      float64
	stereo      float64
	separation  float64
	harmonicity float64
	distortion  float64
	narrow      float64
	damp        float64
	feedback    float64
	freeze      bool

	trigger     bool
	burstRemain int
	burstLP     float64
	noiseState  uint32
}

// Init carves the resonator state out of buf, which must hold at least
// ResonestorBufferSize floats.
func (r *Resonestor) Init(buf []float64) {
	offset := 0
	carve := func(n int) []float64 {
		s := buf[offset : offset+n]
		for i := range s {
			s[i] = 0
		}
		offset += n
		return s
	}
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < resonestorCombs; i++ {
			r.combs[ch][i] = resonatorComb{buf: carve(resonestorMaxPeriod)}
		}
	}
	r.burst = carve(resonestorBurstLen)
	r.noiseState = 0x12345678
	r.damp = 1
	r.harmonicity = 1
}

// SetPitch sets the root pitch in semitones around the engine center.
func (r *Resonestor) SetPitch(semitones float64) { r.pitch = semitones }

// SetChord selects the chord voicing in [0, 1].
func (r *Resonestor) SetChord(v float64) { r.chord = core.Clamp(v, 0, 1) }

// SetTrigger fires a burst on the rising edge.
func (r *Resonestor) SetTrigger(trigger bool) {
	if trigger && !r.trigger {
		r.burstRemain = int(64 + r.burstTime*float64(resonestorBurstLen-64))
	}
	r.trigger = trigger
}

// SetBurstDamp sets the excitation low-pass amount in [0, 1].
func (r *Resonestor) SetBurstDamp(v float64) { r.burstDamp = core.Clamp(v, 0, 1) }

// SetBurstComb sets how strongly the burst is pre-combed in [0, 1].
func (r *Resonestor) SetBurstComb(v float64) { r.burstComb = core.Clamp(v, 0, 1) }

// SetBurstDuration sets the excitation length in [0, 1].
func (r *Resonestor) SetBurstDuration(v float64) { r.burstTime = core.Clamp(v, 0, 1) }

// SetSpreadAmount sets cross-channel bleed in [0, 1].
func (r *Resonestor) SetSpreadAmount(v float64) { r.spread = core.Clamp(v, 0, 1) }

// SetStereo sets output width in [0, 1].
func (r *Resonestor) SetStereo(v float64) { r.stereo = core.Clamp(v, 0, 1) }

// SetSeparation sets input separation between channel banks in [0, 1].
func (r *Resonestor) SetSeparation(v float64) { r.separation = core.Clamp(v, 0, 1) }

// SetFreeze holds the resonators at unity loop gain with input cut.
func (r *Resonestor) SetFreeze(freeze bool) { r.freeze = freeze }

// SetHarmonicity detunes the upper combs away from pure intervals.
func (r *Resonestor) SetHarmonicity(v float64) { r.harmonicity = core.Clamp(v, 0.5, 1) }

// SetDistortion sets loop drive in [0, 1].
func (r *Resonestor) SetDistortion(v float64) { r.distortion = core.Clamp(v, 0, 1) }

// SetNarrow sets resonance narrowness (loop gain boost).
func (r *Resonestor) SetNarrow(v float64) { r.narrow = core.Clamp(v, 0, 1) }

// SetDamp sets the loop damping coefficient in [0, 1].
func (r *Resonestor) SetDamp(v float64) { r.damp = core.Clamp(v, 0.01, 1) }

// SetFeedback sets extra loop feedback gain.
func (r *Resonestor) SetFeedback(v float64) { r.feedback = core.Clamp(v, 0, 20) }

func (r *Resonestor) noise() float64 {
	r.noiseState = r.noiseState*1664525 + 1013904223
	return float64(int32(r.noiseState)) / 2147483648.0
}

// Process resonates one block in place.
func (r *Resonestor) Process(frames []frame.Float) {
	if r.burst == nil {
		return
	}

	chordIdx := int(r.chord * float64(len(chordTable)-1))
	base := 290.0 / core.SemitonesToRatio(r.pitch) // ~110 Hz root at 32 kHz

	loopGain := core.Clamp(0.82+0.17*r.narrow+r.feedback*0.008, 0, 0.9995)
	if r.freeze {
		loopGain = 0.9995
	}

	for ch := 0; ch < 2; ch++ {
		for i := 0; i < resonestorCombs; i++ {
			interval := chordTable[chordIdx][i]
			detune := 1 + (1-r.harmonicity)*0.02*float64(i)
			r.combs[ch][i].period = base / core.SemitonesToRatio(interval) * detune
		}
	}

	for i := range frames {
		exciteL := frames[i].L
		exciteR := frames[i].R
		if r.freeze {
			exciteL, exciteR = 0, 0
		}

		// Separation crossfades each bank between its own channel and
		// the mono sum.
		mono := 0.5 * (exciteL + exciteR)
		inL := core.Crossfade(mono, exciteL, r.separation)
		inR := core.Crossfade(mono, exciteR, r.separation)

		if r.burstRemain > 0 {
			r.burstRemain--
			n := r.noise()
			r.burstLP += (0.05 + 0.9*(1-r.burstDamp)) * (n - r.burstLP)
			b := core.Crossfade(n, r.burstLP, r.burstComb)
			inL += b
			inR += b
		}

		var outL, outR float64
		for c := 0; c < resonestorCombs; c++ {
			outL += r.combs[0][c].process(inL*(1-0.2*float64(c)), loopGain, r.damp, r.distortion)
			outR += r.combs[1][c].process(inR*(1-0.2*float64(c)), loopGain, r.damp, r.distortion)
		}
		outL /= resonestorCombs
		outR /= resonestorCombs

		// Spread bleeds each bank into the opposite channel; stereo
		// widens the result again.
		bleed := 0.5 * r.spread * (1 - r.stereo)
		l := outL + bleed*(outR-outL)
		rr := outR + bleed*(outL-outR)

		frames[i].L = core.SoftClip(l)
		frames[i].R = core.SoftClip(rr)
	}
}
