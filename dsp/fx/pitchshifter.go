package fx

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
)

// PitchShifterBufferSize is the number of 16-bit words the pitch shifter
// carves from the workspace (one ring per channel).
const PitchShifterBufferSize = 4096

const pitchShifterRing = PitchShifterBufferSize / 2

// PitchShifter is the dual-tap granular pitch shifter applied after the
// looping delay and spectral cloud modes. Two read taps slide through a
// short ring at the transposition ratio, crossfaded by a triangle window.
type PitchShifter struct {
	left  line16
	right line16

	phase  float64
	ratio  float64
	size   float64
	dryWet float64
}

// Init carves the taps' rings out of buf, which must hold at least
// PitchShifterBufferSize words. Content is cleared.
func (p *PitchShifter) Init(buf []int16) {
	p.left.init(buf[:pitchShifterRing])
	p.right.init(buf[pitchShifterRing:PitchShifterBufferSize])
	p.phase = 0
	p.ratio = 1
	p.size = 0.5
	p.dryWet = 1
}

// Clear resets tap phase and ring content without retuning.
func (p *PitchShifter) Clear() {
	if p.left.buf == nil {
		return
	}
	p.left.init(p.left.buf)
	p.right.init(p.right.buf)
	p.phase = 0
}

// SetRatio sets the transposition ratio (1 = unison, 2 = octave up).
func (p *PitchShifter) SetRatio(ratio float64) {
	p.ratio = core.Clamp(ratio, 0.25, 4)
}

// SetSize sets the grain size control in [0, 1].
func (p *PitchShifter) SetSize(size float64) {
	p.size = core.Clamp(size, 0, 1)
}

// SetDryWet sets the wet mix in [0, 1].
func (p *PitchShifter) SetDryWet(dryWet float64) {
	p.dryWet = core.Clamp(dryWet, 0, 1)
}

// Process pitch-shifts one block in place.
func (p *PitchShifter) Process(frames []frame.Float) {
	if p.left.buf == nil {
		return
	}
	grain := 128 + p.size*(pitchShifterRing-256)
	step := (1 - p.ratio) / grain

	for i := range frames {
		p.left.write(frames[i].L)
		p.right.write(frames[i].R)

		p.phase += step
		p.phase -= math.Floor(p.phase)

		tap1 := p.phase * grain
		phase2 := p.phase + 0.5
		phase2 -= math.Floor(phase2)
		tap2 := phase2 * grain

		// Triangle windows peak when the opposite tap wraps.
		w1 := 2 * p.phase
		if w1 > 1 {
			w1 = 2 - w1
		}
		w2 := 1 - w1

		wetL := w1*p.left.readFrac(1+tap1) + w2*p.left.readFrac(1+tap2)
		wetR := w1*p.right.readFrac(1+tap1) + w2*p.right.readFrac(1+tap2)

		frames[i].L += p.dryWet * (wetL - frames[i].L)
		frames[i].R += p.dryWet * (wetR - frames[i].R)
	}
}
