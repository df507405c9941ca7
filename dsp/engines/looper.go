package engines

import (
	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
)

// Looper is the looping-delay engine. Unfrozen it behaves as a plain
// delay whose time is the position control; frozen it loops a window of
// the captured material, with the size control setting the loop length.
type Looper struct {
	channels int

	loopPhase  float64
	frozenHead int
	wasFrozen  bool

	synced        bool
	triggerAge    int
	lastInterval  int
	prevTriggered bool
}

// Init resets the looper for the given channel count.
func (l *Looper) Init(channels int) {
	l.channels = channels
	l.loopPhase = 0
	l.wasFrozen = false
	l.synced = false
	l.triggerAge = 0
	l.lastInterval = 0
}

// Synchronized reports steady trigger spacing, which keeps the pitch
// shifter engaged across freeze in the orchestrator.
func (l *Looper) Synchronized() bool { return l.synced }

// Play renders one block from the recording buffers.
func (l *Looper) Play(bufs []audiobuf.Reader, p *param.Parameters, out []frame.Float) {
	if len(bufs) == 0 || bufs[0].Size() == 0 {
		for i := range out {
			out[i] = frame.Float{}
		}
		return
	}

	capacity := bufs[0].Size()
	l.trackTriggers(p.Trigger, len(out))

	if p.Freeze {
		if !l.wasFrozen {
			l.frozenHead = bufs[0].Head()
			l.loopPhase = 0
		}
		l.wasFrozen = true

		loopLen := core.Clamp(p.Size, 0.01, 1) * float64(capacity-2)
		start := float64(l.frozenHead) - loopLen
		ratio := core.SemitonesToRatio(p.Pitch)
		for i := range out {
			pos := start + l.loopPhase
			out[i] = l.readFrame(bufs, pos)
			l.loopPhase += ratio
			if l.loopPhase >= loopLen {
				l.loopPhase -= loopLen
			}
		}
		return
	}
	l.wasFrozen = false

	delay := (0.01 + 0.98*p.Position) * float64(capacity-len(out)-2)
	for i := range out {
		pos := float64(bufs[0].Head()) + float64(i) - delay
		out[i] = l.readFrame(bufs, pos)
	}
}

func (l *Looper) readFrame(bufs []audiobuf.Reader, pos float64) frame.Float {
	if l.channels == 2 && len(bufs) > 1 {
		return frame.Float{
			L: bufs[0].ReadHermite(pos),
			R: bufs[1].ReadHermite(pos),
		}
	}
	x := bufs[0].ReadHermite(pos)
	return frame.Float{L: x, R: x}
}

func (l *Looper) trackTriggers(trigger bool, blockSize int) {
	if trigger && !l.prevTriggered {
		if l.lastInterval > 0 && l.triggerAge > 0 {
			ratio := float64(l.triggerAge) / float64(l.lastInterval)
			l.synced = ratio > 0.9 && ratio < 1.1
		}
		l.lastInterval = l.triggerAge
		l.triggerAge = 0
	} else {
		l.triggerAge += blockSize
		if l.triggerAge > 8*32000 {
			l.synced = false
		}
	}
	l.prevTriggered = trigger
}
