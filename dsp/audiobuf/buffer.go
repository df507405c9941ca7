package audiobuf

import "github.com/cwbudde/algo-granular/dsp/core"

// fadeLen is the length in samples of the overwrite crossfade applied
// when recording resumes or stops.
const fadeLen = 256

// Reader is the read-side interface consumed by the playback engines.
// Positions are absolute sample indices; reads wrap around the capacity.
type Reader interface {
	// Size returns the buffer capacity in samples.
	Size() int
	// Head returns the current write position.
	Head() int
	// Read returns the sample at index pos modulo capacity.
	Read(pos int) float64
	// ReadHermite returns a cubic-interpolated sample at a fractional
	// position.
	ReadHermite(pos float64) float64
}

// fadeState tracks the crossfade applied around recording stop/resume.
type fadeState struct {
	playing bool
	counter int // remaining fade samples, 0 when idle
}

// step returns the overwrite gain for one incoming sample and advances
// the fade. Gain 1 means full overwrite, 0 means keep old content.
func (f *fadeState) step(play bool) float64 {
	if play != f.playing {
		f.counter = fadeLen
		f.playing = play
	}
	if f.counter > 0 {
		f.counter--
		t := 1 - float64(f.counter)/fadeLen
		if play {
			return t // fading the new material in
		}
		return 1 - t // fading the overwrite out
	}
	if play {
		return 1
	}
	return -1 // fully stopped: do not advance
}

// Buffer16 is a circular recording buffer over linear 16-bit samples.
type Buffer16 struct {
	samples []int16
	head    int
	fade    fadeState
}

// Init points the buffer at a sample view and resets the write head.
// The view aliases caller-owned region memory.
func (b *Buffer16) Init(samples []int16) {
	b.samples = samples
	b.head = 0
	b.fade = fadeState{playing: true}
}

// Size returns the buffer capacity in samples.
func (b *Buffer16) Size() int { return len(b.samples) }

// Head returns the current write position.
func (b *Buffer16) Head() int { return b.head }

// Resync repositions the write head, used after a persistence load.
func (b *Buffer16) Resync(head int) {
	if n := len(b.samples); n > 0 {
		b.head = ((head % n) + n) % n
	}
}

// WriteFade records len(src)/stride samples taken every stride entries
// from src. When play is false the head freezes; transitions in either
// direction are crossfaded against the existing content.
func (b *Buffer16) WriteFade(src []float64, stride int, play bool) {
	if len(b.samples) == 0 {
		return
	}
	for i := 0; i < len(src); i += stride {
		g := b.fade.step(play)
		if g < 0 {
			continue
		}
		old := float64(b.samples[b.head]) / 32768
		mixed := old + (src[i]-old)*g
		b.samples[b.head] = quantize16(mixed)
		b.head++
		if b.head >= len(b.samples) {
			b.head = 0
		}
	}
}

// Read returns the sample at index pos modulo capacity.
func (b *Buffer16) Read(pos int) float64 {
	n := len(b.samples)
	if n == 0 {
		return 0
	}
	return float64(b.samples[((pos%n)+n)%n]) / 32768
}

// ReadHermite returns a cubic-interpolated sample at a fractional position.
func (b *Buffer16) ReadHermite(pos float64) float64 {
	p := int(pos)
	t := pos - float64(p)
	return core.Hermite4(t, b.Read(p-1), b.Read(p), b.Read(p+1), b.Read(p+2))
}

func quantize16(x float64) int16 {
	x = core.Clamp(x, -1, 1) * 32767
	return int16(x)
}

// Buffer8 is a circular recording buffer over mu-law companded 8-bit
// samples, trading fidelity for twice the capacity per byte.
type Buffer8 struct {
	samples []int8
	head    int
	fade    fadeState
}

// Init points the buffer at a sample view and resets the write head.
func (b *Buffer8) Init(samples []int8) {
	b.samples = samples
	b.head = 0
	b.fade = fadeState{playing: true}
}

// Size returns the buffer capacity in samples.
func (b *Buffer8) Size() int { return len(b.samples) }

// Head returns the current write position.
func (b *Buffer8) Head() int { return b.head }

// Resync repositions the write head, used after a persistence load.
func (b *Buffer8) Resync(head int) {
	if n := len(b.samples); n > 0 {
		b.head = ((head % n) + n) % n
	}
}

// WriteFade records len(src)/stride samples taken every stride entries
// from src, companding to 8 bits. Semantics match Buffer16.WriteFade.
func (b *Buffer8) WriteFade(src []float64, stride int, play bool) {
	if len(b.samples) == 0 {
		return
	}
	for i := 0; i < len(src); i += stride {
		g := b.fade.step(play)
		if g < 0 {
			continue
		}
		old := muLawDecode(b.samples[b.head])
		mixed := old + (src[i]-old)*g
		b.samples[b.head] = muLawEncode(mixed)
		b.head++
		if b.head >= len(b.samples) {
			b.head = 0
		}
	}
}

// Read returns the decoded sample at index pos modulo capacity.
func (b *Buffer8) Read(pos int) float64 {
	n := len(b.samples)
	if n == 0 {
		return 0
	}
	return muLawDecode(b.samples[((pos%n)+n)%n])
}

// ReadHermite returns a cubic-interpolated sample at a fractional position.
func (b *Buffer8) ReadHermite(pos float64) float64 {
	p := int(pos)
	t := pos - float64(p)
	return core.Hermite4(t, b.Read(p-1), b.Read(p), b.Read(p+1), b.Read(p+2))
}
