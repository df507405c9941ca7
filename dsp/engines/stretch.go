package engines

import (
	"math"

	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
)

// StretchPlayer is the WSOLA time-stretch engine: two read taps slide
// through the recording at the transposition ratio and are periodically
// re-anchored to the target position on period boundaries supplied by
// the correlator, so splices land pitch-synchronously.
type StretchPlayer struct {
	correlator *Correlator
	channels   int

	phase float64
	posA  float64
	posB  float64

	synced        bool
	triggerAge    int
	lastInterval  int
	prevTriggered bool
}

// Init binds the player to its correlator and channel count.
func (s *StretchPlayer) Init(correlator *Correlator, channels int) {
	s.correlator = correlator
	s.channels = channels
	s.phase = 0
	s.posA = 0
	s.posB = 0
	s.synced = false
	s.triggerAge = 0
	s.lastInterval = 0
}

// LoadCorrelator snapshots the recording into the correlator's analysis
// window; the orchestrator calls this from its maintenance step.
func (s *StretchPlayer) LoadCorrelator(bufs []audiobuf.Reader) {
	if s.correlator != nil && len(bufs) > 0 {
		s.correlator.LoadWindow(bufs[0])
	}
}

// Synchronized reports whether recent triggers arrived at a steady
// interval, which switches the position control to tempo-locked use.
func (s *StretchPlayer) Synchronized() bool { return s.synced }

// Play renders one block from the recording buffers.
func (s *StretchPlayer) Play(bufs []audiobuf.Reader, p *param.Parameters, out []frame.Float) {
	if len(bufs) == 0 || bufs[0].Size() == 0 {
		for i := range out {
			out[i] = frame.Float{}
		}
		return
	}

	capacity := bufs[0].Size()
	period := 128.0
	if s.correlator != nil {
		period = s.correlator.Period()
	}
	window := core.Clamp(period*(0.5+1.5*p.Size), 64, MaxWSOLASize)
	ratio := core.SemitonesToRatio(p.Pitch)

	s.trackTriggers(p.Trigger, len(out))

	delay := (0.02 + 0.97*p.Position) * float64(capacity-int(window)-8)

	for i := range out {
		target := float64(bufs[0].Head()) + float64(i) - delay - window

		s.phase += 1 / window
		if s.phase >= 1 {
			s.phase -= 1
		}

		// Re-anchor whichever tap is currently silent.
		w1 := 2 * s.phase
		if w1 > 1 {
			w1 = 2 - w1
		}
		if s.phase < 1/window {
			s.posA = target
		}
		half := math.Abs(s.phase - 0.5)
		if half < 0.5/window {
			s.posB = target
		}

		var l, r float64
		if s.channels == 2 && len(bufs) > 1 {
			l = w1*bufs[0].ReadHermite(s.posA) + (1-w1)*bufs[0].ReadHermite(s.posB)
			r = w1*bufs[1].ReadHermite(s.posA) + (1-w1)*bufs[1].ReadHermite(s.posB)
		} else {
			l = w1*bufs[0].ReadHermite(s.posA) + (1-w1)*bufs[0].ReadHermite(s.posB)
			r = l
		}
		out[i].L = l
		out[i].R = r

		s.posA += ratio
		s.posB += ratio
	}
}

// trackTriggers measures trigger spacing; two consecutive intervals
// within ten percent of each other count as synchronized.
func (s *StretchPlayer) trackTriggers(trigger bool, blockSize int) {
	if trigger && !s.prevTriggered {
		if s.lastInterval > 0 && s.triggerAge > 0 {
			ratio := float64(s.triggerAge) / float64(s.lastInterval)
			s.synced = ratio > 0.9 && ratio < 1.1
		}
		s.lastInterval = s.triggerAge
		s.triggerAge = 0
	} else {
		s.triggerAge += blockSize
		if s.triggerAge > 8*32000 {
			s.synced = false
		}
	}
	s.prevTriggered = trigger
}
