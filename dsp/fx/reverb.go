package fx

import (
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
)

// ReverbBufferSize is the number of 16-bit words the reverb tank carves
// from the workspace. Shared with Oliverb, which replaces the plate
// reverb in its mode.
const ReverbBufferSize = 16384

// Plate reverb topology: four input diffusion allpasses feeding a
// figure-eight tank of two allpass+delay branches.
const (
	revAP1 = 113
	revAP2 = 162
	revAP3 = 241
	revAP4 = 399

	revTankAPA   = 1913
	revTankDelA  = 3411
	revTankAPB   = 1663
	revTankDelB  = 4782
	revTapAMid   = 1602
	revTapBMid   = 2113
	revTankTotal = revAP1 + revAP2 + revAP3 + revAP4 +
		revTankAPA + revTankDelA + revTankAPB + revTankDelB
)

// Reverb is the plate reverb applied around the dry/wet mix for all
// modes that do not carry their own reverberation.
type Reverb struct {
	ap1, ap2, ap3, ap4 line16
	tankAPA, tankAPB   line16
	delA, delB         line16

	amount    float64
	inputGain float64
	time      float64
	diffusion float64
	lpCoeff   float64

	lpA, lpB float64
}

// Init carves the tank out of buf, which must hold at least
// ReverbBufferSize 16-bit words. Previous tank content is cleared.
func (r *Reverb) Init(buf []int16) {
	offset := 0
	carve := func(n int) []int16 {
		s := buf[offset : offset+n]
		offset += n
		return s
	}
	r.ap1.init(carve(revAP1))
	r.ap2.init(carve(revAP2))
	r.ap3.init(carve(revAP3))
	r.ap4.init(carve(revAP4))
	r.tankAPA.init(carve(revTankAPA))
	r.delA.init(carve(revTankDelA))
	r.tankAPB.init(carve(revTankAPB))
	r.delB.init(carve(revTankDelB))
	r.lpA = 0
	r.lpB = 0
}

// SetAmount sets the wet mix in [0, 1].
func (r *Reverb) SetAmount(v float64) { r.amount = core.Clamp(v, 0, 1) }

// SetInputGain sets the tank injection gain.
func (r *Reverb) SetInputGain(v float64) { r.inputGain = v }

// SetTime sets the tank decay in [0, 1.25]; values near 1 ring freely.
func (r *Reverb) SetTime(v float64) { r.time = core.Clamp(v, 0, 1.25) }

// SetDiffusion sets the allpass diffusion coefficient.
func (r *Reverb) SetDiffusion(v float64) { r.diffusion = core.Clamp(v, 0, 0.999) }

// SetLP sets the tank damping low-pass coefficient in [0, 1].
func (r *Reverb) SetLP(v float64) { r.lpCoeff = core.Clamp(v, 0, 1) }

// Process reverberates one block in place.
func (r *Reverb) Process(frames []frame.Float) {
	kap := r.diffusion
	for i := range frames {
		in := (frames[i].L + frames[i].R) * r.inputGain

		// Input diffusion.
		x := r.ap1.allpass(in, kap)
		x = r.ap2.allpass(x, kap)
		x = r.ap3.allpass(x, kap)
		x = r.ap4.allpass(x, kap)

		// Branch A, fed from branch B's tail.
		ya := x + r.time*r.lpFilterA(r.delB.read(revTankDelB))
		ya = r.tankAPA.allpass(ya, -kap)
		r.delA.write(ya)

		// Branch B, fed from branch A's tail.
		yb := x + r.time*r.lpFilterB(r.delA.read(revTankDelA))
		yb = r.tankAPB.allpass(yb, -kap)
		r.delB.write(yb)

		wetL := r.delA.read(revTapAMid) + 0.6*r.delB.read(revTapBMid)
		wetR := r.delB.read(revTapBMid-311) + 0.6*r.delA.read(revTapAMid+211)

		frames[i].L += r.amount * (wetL - frames[i].L)
		frames[i].R += r.amount * (wetR - frames[i].R)
	}
}

func (r *Reverb) lpFilterA(x float64) float64 {
	r.lpA += r.lpCoeff * (x - r.lpA)
	return core.FlushDenormal(r.lpA)
}

func (r *Reverb) lpFilterB(x float64) float64 {
	r.lpB += r.lpCoeff * (x - r.lpB)
	return core.FlushDenormal(r.lpB)
}
