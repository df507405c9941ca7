package granular

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-granular/dsp/frame"
)

const (
	testLargeSize = 160 * 1024
	testSmallSize = 64 * 1024
	testBlock     = 32
)

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(make([]byte, testLargeSize), make([]byte, testSmallSize), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Prepare()
	return p
}

func sineBlock(phase *float64, freq, amp float64) []frame.Short {
	in := make([]frame.Short, testBlock)
	for i := range in {
		s := int16(amp * 32767 * math.Sin(*phase))
		*phase += 2 * math.Pi * freq / defaultSampleRate
		in[i] = frame.Short{L: s, R: s}
	}
	return in
}

func runBlocks(p *Processor, n int, freq, amp float64) []frame.Short {
	out := make([]frame.Short, testBlock)
	phase := 0.0
	for b := 0; b < n; b++ {
		p.Process(sineBlock(&phase, freq, amp), out)
	}
	return out
}

func TestBypassIsIdentity(t *testing.T) {
	p := newTestProcessor(t)
	p.SetBypass(true)

	phase := 0.0
	in := sineBlock(&phase, 1000, 0.9)
	out := make([]frame.Short, testBlock)
	p.Process(in, out)

	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: bypass output %+v != input %+v", i, out[i], in[i])
		}
	}
}

func TestModeChangeMutesUntilPrepare(t *testing.T) {
	p := newTestProcessor(t)
	phase := 0.0
	out := make([]frame.Short, testBlock)

	p.SetPlaybackMode(ModeStretch)
	p.Process(sineBlock(&phase, 1000, 0.9), out)
	for i := range out {
		if out[i] != (frame.Short{}) {
			t.Fatalf("sample %d: expected silence after mode change, got %+v", i, out[i])
		}
	}

	// Still silent on the next block; only Prepare clears the gate.
	p.Process(sineBlock(&phase, 1000, 0.9), out)
	for i := range out {
		if out[i] != (frame.Short{}) {
			t.Fatalf("gate cleared without Prepare at sample %d", i)
		}
	}

	p.Prepare()
	silent := true
	for b := 0; b < 40 && silent; b++ {
		p.Process(sineBlock(&phase, 1000, 0.9), out)
		for i := range out {
			if out[i] != (frame.Short{}) {
				silent = false
				break
			}
		}
	}
	if silent {
		t.Fatal("output still silent well after Prepare")
	}
}

func TestBenignTransitionKeepsFreeze(t *testing.T) {
	p := newTestProcessor(t)
	p.Parameters().Freeze = true

	p.SetPlaybackMode(ModeStretch)
	p.Prepare()
	if !p.Parameters().Freeze {
		t.Fatal("benign transition cleared freeze")
	}

	p.SetPlaybackMode(ModeKammerl)
	p.Prepare()
	if !p.Parameters().Freeze {
		t.Fatal("benign transition cleared freeze")
	}
}

func TestNonBenignTransitionClearsFreeze(t *testing.T) {
	cases := []PlaybackMode{ModeSpectral, ModeSpectralCloud, ModeOliverb, ModeResonestor}
	for _, mode := range cases {
		p := newTestProcessor(t)
		p.Parameters().Freeze = true

		p.SetPlaybackMode(mode)
		p.Prepare()
		if p.Parameters().Freeze {
			t.Fatalf("transition into %v kept freeze", mode)
		}

		// And back out again.
		p.Parameters().Freeze = true
		p.SetPlaybackMode(ModeGranular)
		p.Prepare()
		if p.Parameters().Freeze {
			t.Fatalf("transition out of %v kept freeze", mode)
		}
	}
}

func TestFirstPrepareIsNeverBenign(t *testing.T) {
	p, err := New(make([]byte, testLargeSize), make([]byte, testSmallSize))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Parameters().Freeze = true
	p.Prepare()
	if p.Parameters().Freeze {
		t.Fatal("first Prepare treated the sentinel transition as benign")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	p := newTestProcessor(t)
	runBlocks(p, 64, 500, 0.5)

	p.PreparePersistentData()
	saved := p.SavePersistentData(nil)

	// In stereo the persisted blocks cover the sample memory, not the
	// workspace remainder of the large region.
	wantHead := p.buffer16[0].Head()
	wantCh0 := append([]byte(nil), p.large[:testSmallSize]...)
	wantCh1 := append([]byte(nil), p.small...)

	// More processing mutates the buffers; the load must restore them.
	runBlocks(p, 64, 2500, 0.7)

	if err := p.LoadPersistentData(saved); err != nil {
		t.Fatalf("LoadPersistentData: %v", err)
	}
	if got := p.buffer16[0].Head(); got != wantHead {
		t.Fatalf("write head = %d, want %d", got, wantHead)
	}
	for i := range wantCh0 {
		if p.large[i] != wantCh0[i] {
			t.Fatalf("channel 0 sample byte %d = %d, want %d", i, p.large[i], wantCh0[i])
		}
	}
	for i := range wantCh1 {
		if p.small[i] != wantCh1[i] {
			t.Fatalf("channel 1 sample byte %d = %d, want %d", i, p.small[i], wantCh1[i])
		}
	}
	if !p.Parameters().Freeze {
		t.Fatal("loaded snapshot did not force freeze on")
	}
}

func TestPersistenceSizeMismatchAborts(t *testing.T) {
	p := newTestProcessor(t)
	runBlocks(p, 16, 500, 0.5)

	p.PreparePersistentData()
	saved := p.SavePersistentData(nil)

	// Corrupt the header block's size field.
	saved[4]++
	before := append([]byte(nil), p.large...)

	if err := p.LoadPersistentData(saved); err == nil {
		t.Fatal("corrupted size field did not fail the load")
	}
	for i := range before {
		if p.large[i] != before[i] {
			t.Fatalf("large region mutated at byte %d despite aborted load", i)
		}
	}
	if p.silence {
		t.Fatal("silence gate left set after aborted load")
	}
}

func TestPersistenceSpectralReconciliation(t *testing.T) {
	p := newTestProcessor(t, WithChannels(1))
	p.SetPlaybackMode(ModeSpectral)
	p.Prepare()
	runBlocks(p, 32, 500, 0.5)

	p.PreparePersistentData()
	saved := p.SavePersistentData(nil)

	// Back to granular, then load: the snapshot requires spectral mode.
	p.SetPlaybackMode(ModeGranular)
	p.Prepare()
	if err := p.LoadPersistentData(saved); err != nil {
		t.Fatalf("LoadPersistentData: %v", err)
	}
	if got := p.PlaybackMode(); got != ModeSpectral {
		t.Fatalf("mode after load = %v, want %v", got, ModeSpectral)
	}
}

func TestDryWetZeroPassesDrySignal(t *testing.T) {
	p := newTestProcessor(t)
	p.Parameters().DryWet = 0

	// Long enough for the mute smoothers to settle at unity.
	out := make([]frame.Short, testBlock)
	phase := 0.0
	var in []frame.Short
	for b := 0; b < 64; b++ {
		in = sineBlock(&phase, 440, 0.1)
		p.Process(in, out)
	}

	for i := range in {
		got := float64(out[i].L) / 32768
		want := float64(in[i].L) / 32768
		if math.Abs(got-want) > 0.02 {
			t.Fatalf("sample %d: dry output %v deviates from input %v", i, got, want)
		}
	}
}

func TestFullWetPlaysFrozenBuffer(t *testing.T) {
	p := newTestProcessor(t)
	pp := p.Parameters()
	pp.DryWet = 1
	pp.Position = 0.2
	pp.Size = 0.4
	pp.Density = 0.8

	// Record material, then freeze and cut the input.
	runBlocks(p, 128, 440, 0.5)
	pp.Freeze = true

	silent := make([]frame.Short, testBlock)
	out := make([]frame.Short, testBlock)
	energy := 0.0
	for b := 0; b < 256; b++ {
		p.Process(silent, out)
		for i := range out {
			l := float64(out[i].L) / 32768
			energy += l * l
		}
	}
	if energy == 0 {
		t.Fatal("full-wet frozen playback produced silence")
	}
}

func TestMuteBothSidesSilencesOutput(t *testing.T) {
	for _, mode := range []PlaybackMode{ModeGranular, ModeLoopingDelay} {
		p := newTestProcessor(t)
		p.SetPlaybackMode(mode)
		p.Prepare()
		pp := p.Parameters()
		pp.DryWet = 0.5
		pp.Density = 0.7
		p.SetMuteIn(true)
		p.SetMuteOut(true)

		out := runBlocks(p, 128, 440, 0.8)
		for i := range out {
			if out[i].L != 0 || out[i].R != 0 {
				t.Fatalf("mode %v sample %d: muted output not silent: %+v", mode, i, out[i])
			}
		}
	}
}

func TestLowFidelityKeepsBlockGeometry(t *testing.T) {
	p := newTestProcessor(t, WithLowFidelity(true))
	pp := p.Parameters()
	pp.DryWet = 1
	pp.Density = 0.8

	out := make([]frame.Short, testBlock)
	phase := 0.0
	for b := 0; b < 64; b++ {
		in := sineBlock(&phase, 440, 0.5)
		p.Process(in, out)
		for i := range out {
			l := float64(out[i].L)
			if math.IsNaN(l) || math.IsInf(l, 0) {
				t.Fatalf("non-finite low-fidelity output at %d", i)
			}
		}
	}
}

func TestQualityCodeRoundTrip(t *testing.T) {
	p := newTestProcessor(t)
	for q := uint8(0); q < 4; q++ {
		p.SetQuality(q)
		if got := p.Quality(); got != q {
			t.Fatalf("Quality() after SetQuality(%d) = %d", q, got)
		}
	}
}

func TestWarmDistortionStaysBounded(t *testing.T) {
	x := 1.0
	for i := 0; i < 1000; i++ {
		y := WarmDistortion(x, 1)
		if y < -1 || y > 1 {
			t.Fatalf("WarmDistortion(%v, 1) = %v out of range", x, y)
		}
		x = -x
	}
	for _, amount := range []float64{0, 0.05, 0.3, 0.7, 1} {
		for x := -2.0; x <= 2.0; x += 0.1 {
			y := WarmDistortion(x, amount)
			if amount < 0.1 {
				if y != x {
					t.Fatalf("amount %v must be transparent: got %v for %v", amount, y, x)
				}
				continue
			}
			if y < -1 || y > 1 {
				t.Fatalf("WarmDistortion(%v, %v) = %v out of range", x, amount, y)
			}
		}
	}
}

func TestAllModesRunWithoutBlowingUp(t *testing.T) {
	for mode := ModeGranular; mode < ModeLast; mode++ {
		p := newTestProcessor(t)
		p.SetPlaybackMode(mode)
		p.Prepare()
		pp := p.Parameters()
		pp.DryWet = 0.7
		pp.Position = 0.3
		pp.Size = 0.5
		pp.Density = 0.6
		pp.Texture = 0.4
		pp.Reverb = 0.5
		pp.Feedback = 0.3

		out := make([]frame.Short, testBlock)
		phase := 0.0
		for b := 0; b < 128; b++ {
			p.Prepare()
			p.Process(sineBlock(&phase, 330, 0.5), out)
		}
		for i := range out {
			l := float64(out[i].L)
			if math.IsNaN(l) || math.IsInf(l, 0) {
				t.Fatalf("mode %v: non-finite output at %d", mode, i)
			}
		}
	}
}
