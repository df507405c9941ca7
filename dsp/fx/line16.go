package fx

import "github.com/cwbudde/algo-granular/dsp/core"

// line16 is a delay line over 16-bit words carved from the workspace.
// The reverb engines store their tanks in this reduced-width form to
// halve their memory footprint.
type line16 struct {
	buf []int16
	pos int
}

func (l *line16) init(buf []int16) {
	for i := range buf {
		buf[i] = 0
	}
	l.buf = buf
	l.pos = 0
}

// write stores one sample and advances the line.
func (l *line16) write(x float64) {
	l.buf[l.pos] = int16(core.Clamp(x, -1, 1) * 32767)
	l.pos++
	if l.pos >= len(l.buf) {
		l.pos = 0
	}
}

// read returns the sample delayed by delay samples (1 <= delay <= len).
func (l *line16) read(delay int) float64 {
	n := len(l.buf)
	idx := l.pos - delay
	if idx < 0 {
		idx += n
	}
	return float64(l.buf[idx]) / 32768
}

// readFrac returns a linearly interpolated fractional delay.
func (l *line16) readFrac(delay float64) float64 {
	d := int(delay)
	t := delay - float64(d)
	a := l.read(d)
	b := l.read(d + 1)
	return a + (b-a)*t
}

// allpass runs one lattice allpass step over the full line length.
func (l *line16) allpass(x, gain float64) float64 {
	out := l.read(len(l.buf))
	in := x + out*gain
	l.write(in)
	return out - in*gain
}
