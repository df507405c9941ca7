package engines

import (
	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
)

// kammerlSlices is the number of equal slices the recent past is
// divided into for retriggering.
const kammerlSlices = 8

// Kammerl is the slice-sequencer engine: a beat-repeat that captures
// slice boundaries from the recording buffer and replays one slice with
// a per-slice pitch envelope while its probability gate is open.
type Kammerl struct {
	channels int

	playing    bool
	slicePos   float64
	sliceStart float64
	sliceLen   float64
	repeats    int

	noiseState  uint32
	prevTrigger bool
}

// Init resets the slicer for the given channel count.
func (k *Kammerl) Init(channels int) {
	k.channels = channels
	k.playing = false
	k.slicePos = 0
	k.repeats = 0
	k.noiseState = 0xB5297A4D
	k.prevTrigger = false
}

// SlicePlaybackActive reports whether a slice is currently replaying;
// the orchestrator gates the feedback path on it.
func (k *Kammerl) SlicePlaybackActive() bool { return k.playing }

func (k *Kammerl) noise() float64 {
	k.noiseState = k.noiseState*1664525 + 1013904223
	return float64(k.noiseState>>8) / 16777216
}

// Play renders one block from the recording buffers.
func (k *Kammerl) Play(bufs []audiobuf.Reader, p *param.Parameters, out []frame.Float) {
	if len(bufs) == 0 || bufs[0].Size() == 0 {
		for i := range out {
			out[i] = frame.Float{}
		}
		return
	}

	capacity := bufs[0].Size()
	sliceLen := (0.05 + 0.95*core.Clamp(p.Size, 0, 1)) * float64(capacity) / kammerlSlices

	trigger := p.Trigger && !k.prevTrigger
	k.prevTrigger = p.Trigger

	if trigger || (!k.playing && k.noise() < p.Kammerl.Probability*0.02) {
		// Choose a slice boundary behind the head.
		slice := int(p.Kammerl.SliceStep * (kammerlSlices - 1))
		k.sliceStart = float64(bufs[0].Head()) - float64(slice+1)*sliceLen
		k.slicePos = 0
		k.playing = true
		k.repeats = 1 + int(p.Kammerl.Probability*7)
	}

	for i := range out {
		if !k.playing {
			// Pass the just-recorded signal through untouched.
			pos := float64(bufs[0].Head()) - float64(len(out)-i)
			out[i] = k.readFrame(bufs, pos)
			continue
		}

		// Pitch envelope over the slice: PitchMode morphs between flat
		// transposition and a downward tape-stop style ramp.
		progress := k.slicePos / sliceLen
		ratio := core.SemitonesToRatio(p.Kammerl.Pitch)
		ramp := 1 - p.Kammerl.SliceMod*progress
		if ramp < 0.1 {
			ramp = 0.1
		}
		step := ratio * ramp

		x := k.readFrame(bufs, k.sliceStart+k.slicePos)
		if p.Kammerl.DistortionAmt > 0 {
			drive := 1 + 4*p.Kammerl.DistortionAmt
			x.L = core.Crossfade(x.L, core.SoftLimit(x.L*drive), p.Kammerl.DistortionAmt)
			x.R = core.Crossfade(x.R, core.SoftLimit(x.R*drive), p.Kammerl.DistortionAmt)
		}
		out[i] = x

		k.slicePos += step
		if k.slicePos >= sliceLen {
			k.slicePos = 0
			k.repeats--
			if k.repeats <= 0 {
				k.playing = false
			}
		}
	}
}

func (k *Kammerl) readFrame(bufs []audiobuf.Reader, pos float64) frame.Float {
	if k.channels == 2 && len(bufs) > 1 {
		return frame.Float{
			L: bufs[0].ReadHermite(pos),
			R: bufs[1].ReadHermite(pos),
		}
	}
	x := bufs[0].ReadHermite(pos)
	return frame.Float{L: x, R: x}
}
