package fx

import (
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
)

// DiffuserBufferSize is the number of float words the diffuser carves
// from the workspace.
const DiffuserBufferSize = 2048

// Allpass delay lengths, mutually prime, slightly detuned between
// channels to decorrelate the stereo image. The sum stays below
// DiffuserBufferSize.
var (
	diffuserTapsL = [4]int{126, 180, 269, 444}
	diffuserTapsR = [4]int{151, 205, 245, 405}
)

const diffuserGain = 0.625

type diffuserAllpass struct {
	buf []float64
	pos int
}

func (a *diffuserAllpass) process(x float64) float64 {
	out := a.buf[a.pos]
	in := x + out*diffuserGain
	a.buf[a.pos] = in
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out - in*diffuserGain
}

// Diffuser smears transients through two chains of four allpass stages,
// one per channel. The amount control crossfades dry against diffused.
type Diffuser struct {
	left   [4]diffuserAllpass
	right  [4]diffuserAllpass
	amount float64
}

// Init carves the allpass lines out of buf, which must hold at least
// DiffuserBufferSize floats. Previous content is cleared.
func (d *Diffuser) Init(buf []float64) {
	offset := 0
	carve := func(n int) []float64 {
		s := buf[offset : offset+n]
		for i := range s {
			s[i] = 0
		}
		offset += n
		return s
	}
	for i, n := range diffuserTapsL {
		d.left[i] = diffuserAllpass{buf: carve(n)}
	}
	for i, n := range diffuserTapsR {
		d.right[i] = diffuserAllpass{buf: carve(n)}
	}
}

// SetAmount sets the diffusion amount in [0, 1].
func (d *Diffuser) SetAmount(amount float64) {
	d.amount = core.Clamp(amount, 0, 1)
}

// Process diffuses one block in place.
func (d *Diffuser) Process(frames []frame.Float) {
	if d.amount == 0 {
		return
	}
	for i := range frames {
		l := frames[i].L
		r := frames[i].R
		wl, wr := l, r
		for s := range d.left {
			wl = d.left[s].process(wl)
			wr = d.right[s].process(wr)
		}
		frames[i].L = core.Crossfade(l, wl, d.amount)
		frames[i].R = core.Crossfade(r, wr, d.amount)
	}
}
