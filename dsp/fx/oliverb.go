package fx

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
)

// Oliverb tank topology. Shares the reverb buffer carving (16384 words).
const (
	olvAP1 = 113
	olvAP2 = 162
	olvAP3 = 241
	olvAP4 = 399

	olvTankAPA = 1913
	olvTankAPB = 1663
	olvDelA    = 3917
	olvDelB    = 4536
)

// slidingTap is a dual-tap pitch-shifting read head inside the tank
// loop, crossfaded by a triangle window.
type slidingTap struct {
	phase float64
}

func (s *slidingTap) read(l *line16, window, ratio float64) float64 {
	s.phase += (1 - ratio) / window
	s.phase -= math.Floor(s.phase)

	p2 := s.phase + 0.5
	p2 -= math.Floor(p2)

	w1 := 2 * s.phase
	if w1 > 1 {
		w1 = 2 - w1
	}
	return w1*l.readFrac(1+s.phase*window) + (1-w1)*l.readFrac(1+p2*window)
}

// Oliverb is the specialized reverb engine of the oliverb mode: a plate
// tank with size-scaled modulated delays and a pitch-shifting feedback
// path, so the tail can spiral up or down in pitch.
type Oliverb struct {
	ap1, ap2, ap3, ap4 line16
	tankAPA, tankAPB   line16
	delA, delB         line16

	tapA, tapB slidingTap

	diffusion   float64
	size        float64
	modRate     float64
	modAmount   float64
	ratio       float64
	pitchAmount float64
	decay       float64
	inputGain   float64
	lpCoeff     float64
	hpCoeff     float64

	lpA, lpB float64
	hpA, hpB float64
	lfoPhase float64
}

// Init carves the tank out of buf, which must hold at least
// ReverbBufferSize 16-bit words. Previous tank content is cleared.
func (o *Oliverb) Init(buf []int16) {
	offset := 0
	carve := func(n int) []int16 {
		s := buf[offset : offset+n]
		offset += n
		return s
	}
	o.ap1.init(carve(olvAP1))
	o.ap2.init(carve(olvAP2))
	o.ap3.init(carve(olvAP3))
	o.ap4.init(carve(olvAP4))
	o.tankAPA.init(carve(olvTankAPA))
	o.delA.init(carve(olvDelA))
	o.tankAPB.init(carve(olvTankAPB))
	o.delB.init(carve(olvDelB))
	o.lpA, o.lpB = 0, 0
	o.hpA, o.hpB = 0, 0
	o.lfoPhase = 0
	o.ratio = 1
	o.size = 1
}

// SetDiffusion sets the allpass diffusion coefficient.
func (o *Oliverb) SetDiffusion(v float64) { o.diffusion = core.Clamp(v, 0, 0.999) }

// SetSize scales the tank delay lengths in (0, 1].
func (o *Oliverb) SetSize(v float64) { o.size = core.Clamp(v, 0.01, 1) }

// SetModRate sets the delay modulation rate control in [0, 1].
func (o *Oliverb) SetModRate(v float64) { o.modRate = core.Clamp(v, 0, 1) }

// SetModAmount sets the delay modulation depth in samples.
func (o *Oliverb) SetModAmount(v float64) { o.modAmount = core.Clamp(v, 0, 300) }

// SetRatio sets the feedback transposition ratio.
func (o *Oliverb) SetRatio(v float64) { o.ratio = core.Clamp(v, 0.25, 4) }

// SetPitchShiftAmount blends the pitch-shifted feedback path in [0, 1].
func (o *Oliverb) SetPitchShiftAmount(v float64) { o.pitchAmount = core.Clamp(v, 0, 1) }

// SetDecay sets the loop decay in [0, 1.25].
func (o *Oliverb) SetDecay(v float64) { o.decay = core.Clamp(v, 0, 1.25) }

// SetInputGain sets the tank injection gain.
func (o *Oliverb) SetInputGain(v float64) { o.inputGain = v }

// SetLP sets the loop low-pass damping coefficient in [0, 1].
func (o *Oliverb) SetLP(v float64) { o.lpCoeff = core.Clamp(v, 0, 1) }

// SetHP sets the loop high-pass damping coefficient in [0, 1].
func (o *Oliverb) SetHP(v float64) { o.hpCoeff = core.Clamp(v, 0, 1) }

// Process reverberates one block in place. The wet tank output replaces
// the input; the mode runs fully wet by construction.
func (o *Oliverb) Process(frames []frame.Float) {
	kap := o.diffusion
	lenA := o.size * (olvDelA - 2)
	lenB := o.size * (olvDelB - 2)

	for i := range frames {
		o.lfoPhase += 0.05 * o.modRate / 32000 * 2 * math.Pi * 20
		if o.lfoPhase > 2*math.Pi {
			o.lfoPhase -= 2 * math.Pi
		}
		mod := o.modAmount * math.Sin(o.lfoPhase)

		in := (frames[i].L + frames[i].R) * o.inputGain

		x := o.ap1.allpass(in, kap)
		x = o.ap2.allpass(x, kap)
		x = o.ap3.allpass(x, kap)
		x = o.ap4.allpass(x, kap)

		// Feedback reads: plain modulated tap crossfaded against the
		// pitch-shifting sliding tap.
		fbA := o.delB.readFrac(1 + core.Clamp(lenB+mod, 1, olvDelB-2))
		if o.pitchAmount > 0 {
			shifted := o.tapB.read(&o.delB, lenB, o.ratio)
			fbA = core.Crossfade(fbA, shifted, o.pitchAmount)
		}
		fbB := o.delA.readFrac(1 + core.Clamp(lenA-mod, 1, olvDelA-2))
		if o.pitchAmount > 0 {
			shifted := o.tapA.read(&o.delA, lenA, o.ratio)
			fbB = core.Crossfade(fbB, shifted, o.pitchAmount)
		}

		ya := x + o.decay*o.damp(&o.lpA, &o.hpA, fbA)
		ya = o.tankAPA.allpass(ya, -kap)
		o.delA.write(ya)

		yb := x + o.decay*o.damp(&o.lpB, &o.hpB, fbB)
		yb = o.tankAPB.allpass(yb, -kap)
		o.delB.write(yb)

		frames[i].L = o.delA.readFrac(1 + lenA*0.5)
		frames[i].R = o.delB.readFrac(1 + lenB*0.5)
	}
}

// damp applies the loop low-pass and high-pass damping to one feedback
// sample, updating the per-branch filter states.
func (o *Oliverb) damp(lp, hp *float64, x float64) float64 {
	*lp += o.lpCoeff * (x - *lp)
	*lp = core.FlushDenormal(*lp)
	y := *lp
	*hp += o.hpCoeff * (y - *hp)
	*hp = core.FlushDenormal(*hp)
	return y - *hp
}
