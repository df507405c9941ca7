package granular

import (
	"github.com/cwbudde/algo-granular/dsp/core"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
	"github.com/cwbudde/algo-granular/dsp/resample"
)

const (
	muteCoeff   = 0.01
	freezeCoeff = 0.0005
	postGain    = 1.2
)

// Process produces exactly one block of output frames. len(output) must
// equal len(input) and not exceed the configured block size.
func (p *Processor) Process(input, output []frame.Short) {
	size := len(input)
	if p.bypass {
		copy(output, input)
		return
	}

	if p.silence || p.resetBuffers || p.prevMode != p.mode {
		frame.Zero(output[:size])
		return
	}

	in := p.in[:size]
	out := p.out[:size]
	fb := p.fb[:size]

	for i := 0; i < size; i++ {
		in[i].L = frame.FromShort(input[i].L)
		in[i].R = frame.FromShort(input[i].R)
	}

	// Input mute, smoothed per sample. The pre-update fade is kept for
	// the second, independently advanced pass over the dry leg.
	muteLevelIn := 1.0
	if p.muteIn {
		muteLevelIn = 0
	}
	originalMuteInFade := p.muteInFade
	for i := 0; i < size; i++ {
		p.muteInFade = core.OnePole(p.muteInFade, muteLevelIn, muteCoeff)
		in[i].L *= p.muteInFade
		in[i].R *= p.muteInFade
	}

	// Mono fold. In the delay modes the stereo spread control repurposes
	// as the input crossfade.
	if p.channels == 1 {
		xfade := 0.5
		if p.mode == ModeLoopingDelay || p.mode == ModeStretch {
			xfade = p.params.StereoSpread
		}
		for i := 0; i < size; i++ {
			in[i].L = in[i].L*(1-xfade) + in[i].R*xfade
			in[i].R = in[i].L
		}
	}

	// Feedback, high-pass filtered against DC build-up. A slow freeze
	// smoother backs the gain off so frozen material is not re-injected.
	feedback := 0.0
	if p.mode == ModeKammerl && p.kammerl.SlicePlaybackActive() {
		// The reverb control doubles as feedback amount in this mode.
		feedback = p.params.Reverb
	}
	if p.mode != ModeOliverb && p.mode != ModeResonestor &&
		p.mode != ModeKammerl && p.mode != ModeSpectralCloud {
		freezeTarget := 0.0
		if p.params.Freeze {
			freezeTarget = 1
		}
		p.freezeLP = core.OnePole(p.freezeLP, freezeTarget, freezeCoeff)
		feedback = p.params.Feedback
		cutoff := (20 + 100*feedback*feedback) / p.sampleRate
		p.fbFilter[0].SetFQ(cutoff, 1)
		p.fbFilter[1].CopyTuning(&p.fbFilter[0])
		for i := 0; i < size; i++ {
			fb[i].L = p.fbFilter[0].HighPass(fb[i].L)
			fb[i].R = p.fbFilter[1].HighPass(fb[i].R)
		}
	}
	fbGain := feedback * (1 - p.freezeLP)
	for i := 0; i < size; i++ {
		in[i].L += fbGain * (core.SoftLimit(fbGain*1.4*fb[i].L+in[i].L) - in[i].L)
		in[i].R += fbGain * (core.SoftLimit(fbGain*1.4*fb[i].R+in[i].R) - in[i].R)
	}

	if p.lowFidelity {
		down := size / resample.Factor
		p.srcDown.Process(in, p.inDown[:down])
		p.processGranular(p.inDown[:down], p.outDown[:down])
		p.srcUp.Process(p.outDown[:down], out)
	} else {
		p.processGranular(in, out)
	}

	// Diffusion, for the modes that do not shape their own space.
	if p.mode != ModeSpectral && p.mode != ModeSpectralCloud &&
		p.mode != ModeOliverb && p.mode != ModeResonestor &&
		p.mode != ModeKammerl {
		diffusion := p.params.Density
		if p.mode == ModeGranular {
			if t := p.params.Texture; t > 0.75 {
				diffusion = (t - 0.75) * 4
			} else {
				diffusion = 0
			}
		}
		p.diffuser.SetAmount(diffusion)
		p.diffuser.Process(out)
	}

	if (p.mode == ModeLoopingDelay && (!p.params.Freeze || p.looper.Synchronized())) ||
		p.mode == ModeSpectralCloud {
		p.pitchShifter.SetRatio(core.SemitonesToRatio(p.params.Pitch))
		p.pitchShifter.SetSize(p.params.Size)
		if p.mode == ModeSpectralCloud {
			p.pitchShifter.SetDryWet(1)
		} else {
			p.pitchShifter.SetDryWet(pitchShiftWet(p.params.Pitch))
		}
		p.pitchShifter.Process(out)
	}

	// Texture filters on the delay modes: a low-pass then high-pass pair
	// on a semitone curve.
	if p.mode == ModeLoopingDelay || p.mode == ModeStretch {
		t := p.params.Texture
		lpSemis := 0.0
		if t < 0.5 {
			lpSemis = (t - 0.5) * 216
		}
		hpSemis := (t - 1) * 216
		if t < 0.5 {
			hpSemis = -0.5 * 216
		}
		lpCutoff := core.Clamp(0.5*core.SemitonesToRatio(lpSemis), 0, 0.499)
		hpCutoff := core.Clamp(0.25*core.SemitonesToRatio(hpSemis), 0, 0.499)

		p.lpFilter[0].SetFQ(lpCutoff, 0.9)
		p.lpFilter[1].CopyTuning(&p.lpFilter[0])
		p.hpFilter[0].SetFQ(hpCutoff, 0.9)
		p.hpFilter[1].CopyTuning(&p.hpFilter[0])
		for i := 0; i < size; i++ {
			out[i].L = p.lpFilter[0].LowPass(out[i].L)
			out[i].R = p.lpFilter[1].LowPass(out[i].R)
			out[i].L = p.hpFilter[0].HighPass(out[i].L)
			out[i].R = p.hpFilter[1].HighPass(out[i].R)
		}
	}

	// This is what is fed back. Reverb is not fed back.
	copy(fb, out)

	// Output mute, ahead of the reverb.
	muteLevelOut := 1.0
	if p.muteOut {
		muteLevelOut = 0
	}
	originalMuteOutFade := p.muteOutFade
	for i := 0; i < size; i++ {
		p.muteOutFade = core.OnePole(p.muteOutFade, muteLevelOut, muteCoeff)
		out[i].L *= p.muteOutFade
		out[i].R *= p.muteOutFade
	}

	if !p.reverbDrySignal {
		p.applyReverb(out, feedback)
	}

	if p.mode != ModeResonestor {
		// Linear ramp of the dry/wet control across the block; the dry
		// leg reconverts the raw integer input because the working
		// buffer already has feedback folded in.
		dryWetStep := (p.params.DryWet - p.dryWet) / float64(size)
		muteOutFade := originalMuteOutFade
		muteInFade := originalMuteInFade

		for i := 0; i < size; i++ {
			p.dryWet += dryWetStep
			dryWet := p.dryWet
			if p.mode == ModeKammerl {
				dryWet = 1
			}

			fadeIn := core.XfadeIn(dryWet)
			fadeOut := core.XfadeOut(dryWet)

			l := frame.FromShort(input[i].L)
			r := frame.FromShort(input[i].R)

			muteOutFade = core.OnePole(muteOutFade, muteLevelOut, muteCoeff)
			muteInFade = core.OnePole(muteInFade, muteLevelIn, muteCoeff)
			fadeOut *= muteInFade * muteOutFade

			out[i].L = l*fadeOut + out[i].L*postGain*fadeIn
			out[i].R = r*fadeOut + out[i].R*postGain*fadeIn
		}
	}

	if p.reverbDrySignal {
		p.applyReverb(out, feedback)
	}

	for i := 0; i < size; i++ {
		if p.mode == ModeSpectralCloud {
			out[i].L = WarmDistortion(out[i].L, p.params.Kammerl.PitchMode)
			out[i].R = WarmDistortion(out[i].R, p.params.Kammerl.PitchMode)
		}
		output[i].L = frame.SoftConvert(out[i].L)
		output[i].R = frame.SoftConvert(out[i].R)
	}
}

// applyReverb runs the plate reverb for the modes that do not manage
// their own reverberation.
func (p *Processor) applyReverb(out []frame.Float, feedback float64) {
	if p.mode == ModeOliverb || p.mode == ModeResonestor || p.mode == ModeKammerl {
		return
	}
	amount := p.params.Reverb
	p.reverb.SetAmount(amount * 0.54)
	p.reverb.SetDiffusion(0.7)
	p.reverb.SetTime(0.35 + 0.63*amount)
	p.reverb.SetInputGain(0.2)
	p.reverb.SetLP(0.6 + 0.37*feedback)
	p.reverb.Process(out)
}

// pitchShiftWet is the trapezoid dry/wet curve of the pitch shifter:
// full dry around unison, full wet beyond +-0.7 semitones.
func pitchShiftWet(pitch float64) float64 {
	const limit = 0.7
	const slew = 0.4
	x := pitch
	switch {
	case x < -limit:
		return 1
	case x < -limit+slew:
		return 1 - (x+limit)/slew
	case x < limit-slew:
		return 0
	case x < limit:
		return 1 + (x-limit)/slew
	default:
		return 1
	}
}

// processGranular records the feedback-mixed input, derives the active
// mode's sub-parameters from the shared controls, and runs exactly one
// engine for the block.
func (p *Processor) processGranular(in, out []frame.Float) {
	size := len(in)

	if !p.mode.selfBuffering() {
		play := !p.params.Freeze || p.mode == ModeOliverb || p.mode == ModeKammerl
		ix := p.writeIx[:2*size]
		for i := 0; i < size; i++ {
			ix[2*i] = in[i].L
			ix[2*i+1] = in[i].R
		}
		for c := 0; c < p.channels; c++ {
			if p.resolution() == 8 {
				p.buffer8[c].WriteFade(ix[c:], 2, play)
			} else {
				p.buffer16[c].WriteFade(ix[c:], 2, play)
			}
		}
	}

	switch p.mode {
	case ModeGranular:
		// Density is a meta parameter: below center it selects
		// deterministic seeding, the distance from center sets overlap.
		d := p.params.Density
		p.params.Granular.UseDeterministicSeed = d < 0.5
		switch {
		case d >= 0.53:
			p.params.Granular.Overlap = (d - 0.53) * 2.12
		case d <= 0.47:
			p.params.Granular.Overlap = (0.47 - d) * 2.12
		default:
			p.params.Granular.Overlap = 0
		}

		if p.quantizeSemitones {
			pitch := p.params.Pitch
			if pitch < 0.5 {
				pitch -= 0.5
			}
			p.params.Pitch = float64(int(pitch + 0.5))
		}

		// And texture too.
		if t := p.params.Texture; t < 0.75 {
			p.params.Granular.WindowShape = t * 1.333
		} else {
			p.params.Granular.WindowShape = 1
		}
		p.params.Granular.Stereo = p.params.StereoSpread

		p.player.Play(p.readers, &p.params, out)

	case ModeStretch:
		p.wsPlayer.Play(p.readers, &p.params, out)

	case ModeLoopingDelay:
		p.looper.Play(p.readers, &p.params, out)

	case ModeSpectral:
		p.params.Spectral.Quantization = p.params.Texture
		p.params.Spectral.RefreshRate = 0.01 + 0.99*p.params.Density
		warp := p.params.Size - 0.5
		p.params.Spectral.Warp = 4*warp*warp*warp + 0.5
		randomization := p.params.Density - 0.5
		randomization = randomization*randomization*4.2 - 0.05
		p.params.Spectral.PhaseRandomization = core.Clamp(randomization, 0, 1)
		p.vocoder.Process(&p.params, in, out)

	case ModeSpectralCloud:
		p.vocoder.Process(&p.params, in, out)
		if p.channels == 1 {
			for i := range out {
				out[i].R = out[i].L
			}
		}

	case ModeOliverb:
		p.playOliverb(out)

	case ModeResonestor:
		p.playResonestor(in, out)

	case ModeKammerl:
		p.kammerl.Play(p.readers, &p.params, out)
	}
}

// playOliverb runs a synchronized pre-delay pass through the stretch
// player, then the pitch-shifting reverb over it.
func (p *Processor) playOliverb(out []frame.Float) {
	pre := param.Parameters{
		Position: p.params.Position * 0.25,
		Size:     0.1,
		Texture:  0.5,
		DryWet:   1,
		Trigger:  p.params.Trigger,
	}
	if p.wsPlayer.Synchronized() {
		pre.Position = p.params.Position
	}
	p.wsPlayer.Play(p.readers, &pre, out)

	p.oliverb.SetDiffusion(0.3 + 0.5*p.params.StereoSpread)
	p.oliverb.SetSize(0.05 + 0.94*p.params.Size)
	p.oliverb.SetModRate(p.params.Feedback)
	p.oliverb.SetModAmount(p.params.Reverb * 300)
	p.oliverb.SetRatio(core.SemitonesToRatio(p.params.Pitch))
	p.oliverb.SetPitchShiftAmount(pitchShiftWet(p.params.Pitch))

	if p.params.Freeze {
		p.oliverb.SetInputGain(0)
		p.oliverb.SetDecay(1)
		p.oliverb.SetLP(1)
		p.oliverb.SetHP(0)
	} else {
		pitch := p.params.Pitch
		if pitch < 0 {
			pitch = -pitch
		}
		p.oliverb.SetDecay(p.params.Density*1.3 + 0.15*pitch/24)
		p.oliverb.SetInputGain(0.5)
		lp := 1.0
		if t := p.params.Texture; t < 0.5 {
			lp = t * 2
		}
		hp := 0.0
		if t := p.params.Texture; t > 0.5 {
			hp = (t - 0.5) * 2
		}
		p.oliverb.SetLP(0.03 + 0.9*lp)
		// The small offset keeps large DC offsets out of the feedback.
		p.oliverb.SetHP(0.01 + 0.2*hp)
	}
	p.oliverb.Process(out)
}

func (p *Processor) playResonestor(in, out []frame.Float) {
	copy(out, in)

	p.resonestor.SetPitch(p.params.Pitch)
	p.resonestor.SetChord(p.params.Size)
	p.resonestor.SetTrigger(p.params.Trigger)
	p.resonestor.SetBurstDamp(p.params.Position)
	p.resonestor.SetBurstComb(1 - p.params.Position)
	p.resonestor.SetBurstDuration(1 - p.params.Position)
	p.resonestor.SetSpreadAmount(p.params.Reverb)
	if s := p.params.StereoSpread; s < 0.5 {
		p.resonestor.SetStereo(0)
		p.resonestor.SetSeparation((0.5 - s) * 2)
	} else {
		p.resonestor.SetStereo((s - 0.5) * 2)
		p.resonestor.SetSeparation(0)
	}
	p.resonestor.SetFreeze(p.params.Freeze)
	p.resonestor.SetHarmonicity(1 - p.params.Feedback*0.5)
	p.resonestor.SetDistortion(p.params.DryWet)

	if t := p.params.Texture; t < 0.5 {
		p.resonestor.SetNarrow(0.001)
		l := 1 - (0.5-t)/0.5
		l = l*(1-0.08) + 0.08
		p.resonestor.SetDamp(l * l)
	} else {
		p.resonestor.SetDamp(1)
		n := (t - 0.5) / 0.5 * 1.35
		n *= n * n * n
		p.resonestor.SetNarrow(0.001 + n*n*0.6)
	}

	d := (p.params.Density - 0.05) / 0.9
	if d < 0 {
		d = 0
	}
	d *= d * d
	d *= d * d
	d *= d * d
	p.resonestor.SetFeedback(d * 20)

	p.resonestor.Process(out)
}

// WarmDistortion is the spectral cloud's per-sample saturation stage: a
// cubic pre-shape followed by an inverse-tanh blend, hard clamped.
func WarmDistortion(x, amount float64) float64 {
	if amount < 0.1 {
		return x
	}
	fac := 2 * amount
	amp := 1 - amount*0.45

	s := (1+fac)*x - fac*x*x*x

	sign := 1.0
	if s < 0 {
		sign = -1
	}
	t := core.Clamp(s/2*sign, 0, 1)
	inv := core.InvTanh(t) * sign

	s += (inv - s) * fac
	s *= amp
	return core.Clamp(s, -1, 1)
}
