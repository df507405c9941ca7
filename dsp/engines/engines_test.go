package engines

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-granular/dsp/audiobuf"
	"github.com/cwbudde/algo-granular/dsp/frame"
	"github.com/cwbudde/algo-granular/dsp/param"
)

// sineBuffer16 fills a fresh recording buffer with a sine of the given
// period and leaves the write head at the end.
func sineBuffer16(t *testing.T, capacity, period int) *audiobuf.Buffer16 {
	t.Helper()
	samples := make([]int16, capacity)
	for i := range samples {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*float64(i)/float64(period)))
	}
	var b audiobuf.Buffer16
	b.Init(samples)
	b.Resync(0)
	return &b
}

func blockEnergy(out []frame.Float) float64 {
	e := 0.0
	for _, f := range out {
		e += f.L*f.L + f.R*f.R
	}
	return e
}

func assertFinite(t *testing.T, out []frame.Float, context string) {
	t.Helper()
	for i, f := range out {
		if math.IsNaN(f.L) || math.IsInf(f.L, 0) || math.IsNaN(f.R) || math.IsInf(f.R, 0) {
			t.Fatalf("%s: non-finite sample at %d: %+v", context, i, f)
		}
	}
}

func TestCorrelatorFindsSinePeriod(t *testing.T) {
	buf := sineBuffer16(t, 8192, 512)

	window := make([]float64, CorrelatorBlockSize)
	scores := make([]float64, CorrelatorBlockSize)
	var c Correlator
	c.Init(window, scores)
	c.LoadWindow(buf)

	for i := 0; i < 100 && !c.EvaluateSomeCandidates(); i++ {
	}
	if !c.Done() {
		t.Fatal("candidate sweep did not complete")
	}
	if got := c.Period(); got != 512 {
		t.Fatalf("Period() = %v, want 512", got)
	}
}

func TestCorrelatorPeriodFallback(t *testing.T) {
	var c Correlator
	c.Init(make([]float64, CorrelatorBlockSize), make([]float64, CorrelatorBlockSize))
	if got := c.Period(); got != 1024 {
		t.Fatalf("Period() before any sweep = %v, want fallback 1024", got)
	}
}

func TestGranularPlayerProducesSound(t *testing.T) {
	buf := sineBuffer16(t, 16384, 128)
	bufs := []audiobuf.Reader{buf}

	var g GranularPlayer
	g.Init(1, 32)

	p := param.Parameters{
		Position: 0.2,
		Size:     0.3,
		Density:  0.8,
		Granular: param.GranularParams{Overlap: 0.7, WindowShape: 0.5},
	}

	out := make([]frame.Float, 32)
	total := 0.0
	for b := 0; b < 256; b++ {
		g.Play(bufs, &p, out)
		assertFinite(t, out, "granular")
		total += blockEnergy(out)
	}
	if total == 0 {
		t.Fatal("granular player produced silence from a recorded sine")
	}
}

func TestGranularPlayerDeterministicSeed(t *testing.T) {
	buf := sineBuffer16(t, 16384, 128)
	bufs := []audiobuf.Reader{buf}

	p := param.Parameters{
		Position: 0.4,
		Size:     0.3,
		Density:  0.6,
		Granular: param.GranularParams{Overlap: 0.5, UseDeterministicSeed: true},
	}

	var g1, g2 GranularPlayer
	g1.Init(1, 24)
	g2.Init(1, 24)

	out1 := make([]frame.Float, 32)
	out2 := make([]frame.Float, 32)
	for b := 0; b < 64; b++ {
		g1.Play(bufs, &p, out1)
		g2.Play(bufs, &p, out2)
		for i := range out1 {
			if out1[i] != out2[i] {
				t.Fatalf("block %d sample %d: deterministic players diverged: %+v vs %+v",
					b, i, out1[i], out2[i])
			}
		}
	}
}

func TestStretchPlayerBoundedOutput(t *testing.T) {
	buf := sineBuffer16(t, 16384, 160)
	bufs := []audiobuf.Reader{buf}

	window := make([]float64, CorrelatorBlockSize)
	scores := make([]float64, CorrelatorBlockSize)
	var c Correlator
	c.Init(window, scores)

	var s StretchPlayer
	s.Init(&c, 1)
	s.LoadCorrelator(bufs)
	for !c.EvaluateSomeCandidates() {
	}

	p := param.Parameters{Position: 0.3, Size: 0.5, Pitch: 3}
	out := make([]frame.Float, 32)
	total := 0.0
	for b := 0; b < 128; b++ {
		s.Play(bufs, &p, out)
		assertFinite(t, out, "stretch")
		for _, f := range out {
			if math.Abs(f.L) > 2 || math.Abs(f.R) > 2 {
				t.Fatalf("stretch output out of range: %+v", f)
			}
		}
		total += blockEnergy(out)
	}
	if total == 0 {
		t.Fatal("stretch player produced silence from a recorded sine")
	}
}

func TestStretchPlayerSynchronizedTracking(t *testing.T) {
	var s StretchPlayer
	s.Init(nil, 1)
	if s.Synchronized() {
		t.Fatal("player reports synchronized before any trigger")
	}

	// Three triggers at a steady spacing of 16 blocks.
	for cycle := 0; cycle < 3; cycle++ {
		s.trackTriggers(true, 32)
		for b := 0; b < 15; b++ {
			s.trackTriggers(false, 32)
		}
	}
	if !s.Synchronized() {
		t.Fatal("steady triggers not reported as synchronized")
	}

	// A wildly late trigger breaks the lock.
	for b := 0; b < 64; b++ {
		s.trackTriggers(false, 32)
	}
	s.trackTriggers(true, 32)
	if s.Synchronized() {
		t.Fatal("uneven trigger still reported as synchronized")
	}
}

func TestLooperDelayReproducesInput(t *testing.T) {
	// A ramp makes delayed reads easy to check against expectations.
	capacity := 8192
	samples := make([]int16, capacity)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	var buf audiobuf.Buffer16
	buf.Init(samples)
	buf.Resync(0)

	var l Looper
	l.Init(1)

	p := param.Parameters{Position: 0.5}
	out := make([]frame.Float, 32)
	l.Play([]audiobuf.Reader{&buf}, &p, out)
	assertFinite(t, out, "looper")

	delay := (0.01 + 0.98*0.5) * float64(capacity-len(out)-2)
	want := buf.ReadHermite(float64(buf.Head()) - delay)
	if math.Abs(out[0].L-want) > 1e-9 {
		t.Fatalf("delayed read = %v, want %v", out[0].L, want)
	}
}

func TestLooperFrozenLoopRepeats(t *testing.T) {
	buf := sineBuffer16(t, 8192, 64)
	bufs := []audiobuf.Reader{buf}

	var l Looper
	l.Init(1)

	p := param.Parameters{Freeze: true, Size: 0.1, Position: 0.5}
	out := make([]frame.Float, 32)

	// Several times around the loop; frozen playback must keep ringing
	// with no further input.
	for b := 0; b < 256; b++ {
		l.Play(bufs, &p, out)
		assertFinite(t, out, "looper frozen")
	}
	if blockEnergy(out) == 0 {
		t.Fatal("frozen loop decayed to silence")
	}
}

func TestKammerlSliceActivation(t *testing.T) {
	buf := sineBuffer16(t, 8192, 100)
	bufs := []audiobuf.Reader{buf}

	var k Kammerl
	k.Init(1)
	if k.SlicePlaybackActive() {
		t.Fatal("slicer active before any trigger")
	}

	p := param.Parameters{
		Size:    0.5,
		Trigger: true,
		Kammerl: param.KammerlParams{Probability: 0.5, SliceStep: 0.3},
	}
	out := make([]frame.Float, 32)
	k.Play(bufs, &p, out)
	assertFinite(t, out, "kammerl")
	if !k.SlicePlaybackActive() {
		t.Fatal("trigger edge did not start slice playback")
	}

	// Held trigger is not an edge; playback runs down by itself.
	p.Trigger = false
	p.Kammerl.Probability = 0
	for b := 0; b < 4096 && k.SlicePlaybackActive(); b++ {
		k.Play(bufs, &p, out)
	}
	if k.SlicePlaybackActive() {
		t.Fatal("slice playback never finished")
	}
}

func TestKammerlPassThroughWhenIdle(t *testing.T) {
	buf := sineBuffer16(t, 8192, 100)
	bufs := []audiobuf.Reader{buf}

	var k Kammerl
	k.Init(1)

	p := param.Parameters{Size: 0.5}
	out := make([]frame.Float, 32)
	k.Play(bufs, &p, out)

	want := buf.ReadHermite(float64(buf.Head()) - float64(len(out)))
	if math.Abs(out[0].L-want) > 1e-9 {
		t.Fatalf("idle pass-through = %v, want %v", out[0].L, want)
	}
}

func TestPhaseVocoderPassesSignal(t *testing.T) {
	regions := [2][]byte{make([]byte, 48*1024), nil}

	var pv PhaseVocoder
	pv.Init(TransformFrame, regions, 1, 32000)

	p := param.Parameters{
		Spectral: param.SpectralParams{Warp: 0.5, RefreshRate: 1},
	}

	in := make([]frame.Float, 32)
	out := make([]frame.Float, 32)
	total := 0.0
	phase := 0.0
	blocks := 6 * pvocFrameSize / 32
	for b := 0; b < blocks; b++ {
		for i := range in {
			s := 0.5 * math.Sin(phase)
			phase += 2 * math.Pi * 440 / 32000
			in[i] = frame.Float{L: s, R: s}
		}
		pv.Buffer(&p)
		pv.Process(&p, in, out)
		assertFinite(t, out, "pvoc")
		if b > 3*pvocFrameSize/32 {
			total += blockEnergy(out)
		}
	}
	if total == 0 {
		t.Fatal("vocoder produced silence well past its latency")
	}
}

func TestPhaseVocoderCloudBounded(t *testing.T) {
	regions := [2][]byte{make([]byte, 48*1024), nil}

	var pv PhaseVocoder
	pv.Init(TransformCloud, regions, 1, 32000)

	p := param.Parameters{
		Pitch:    7,
		Position: 0.5,
		Density:  0.8,
		Texture:  0.5,
	}

	in := make([]frame.Float, 32)
	out := make([]frame.Float, 32)
	phase := 0.0
	for b := 0; b < 8*pvocFrameSize/32; b++ {
		for i := range in {
			s := 0.4 * math.Sin(phase)
			phase += 2 * math.Pi * 220 / 32000
			in[i] = frame.Float{L: s, R: s}
		}
		pv.Buffer(&p)
		pv.Process(&p, in, out)
		assertFinite(t, out, "pvoc cloud")
		for _, f := range out {
			if math.Abs(f.L) > 4 {
				t.Fatalf("cloud output unbounded: %v", f.L)
			}
		}
	}
}
