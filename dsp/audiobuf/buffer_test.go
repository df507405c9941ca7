package audiobuf

import (
	"math"
	"testing"
)

func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * float64(i) / 64)
	}
	return s
}

func TestBuffer16WriteReadIdentity(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 1024))

	in := ramp(512)
	b.WriteFade(in, 1, true)

	for i := 0; i < 512; i++ {
		got := b.Read(i)
		if diff := math.Abs(got - in[i]); diff > 1.0/16384 {
			t.Fatalf("sample %d: got=%g want=%g diff=%g", i, got, in[i], diff)
		}
	}
	if b.Head() != 512 {
		t.Fatalf("head = %d, want 512", b.Head())
	}
}

func TestBuffer16StrideSkipsChannel(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 64))

	// Interleaved stereo: left = 0.5, right = -0.5. Stride 2 keeps left.
	in := make([]float64, 32)
	for i := 0; i < len(in); i += 2 {
		in[i] = 0.5
		in[i+1] = -0.5
	}
	b.WriteFade(in, 2, true)
	for i := 0; i < 16; i++ {
		if got := b.Read(i); math.Abs(got-0.5) > 0.01 {
			t.Fatalf("sample %d = %g, want 0.5", i, got)
		}
	}
}

func TestBuffer16FreezeHaltsHead(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 4096))

	in := ramp(1024)
	b.WriteFade(in, 1, true)
	headBefore := b.Head()

	// Frozen writes advance only through the stop crossfade, then halt.
	b.WriteFade(in, 1, false)
	afterFirst := b.Head()
	b.WriteFade(in, 1, false)
	if got := b.Head(); got != afterFirst {
		t.Fatalf("head advanced while frozen: %d -> %d", afterFirst, got)
	}
	if afterFirst-headBefore > 1024 {
		t.Fatalf("stop fade too long: %d samples", afterFirst-headBefore)
	}
}

func TestBuffer16ResumeCrossfadeIsSmooth(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 4096))

	// Record a constant, freeze, then resume with the opposite constant.
	level := make([]float64, 2048)
	for i := range level {
		level[i] = 0.8
	}
	b.WriteFade(level, 1, true)
	b.WriteFade(level, 1, false)

	opposite := make([]float64, 1024)
	for i := range opposite {
		opposite[i] = -0.8
	}
	start := b.Head()
	b.WriteFade(opposite, 1, true)

	// The seam must ramp, not jump: successive samples move by less
	// than a coarse step bound.
	for i := 1; i < 512; i++ {
		a := b.Read(start + i - 1)
		c := b.Read(start + i)
		if math.Abs(c-a) > 0.05 {
			t.Fatalf("overwrite seam jumps at %d: %g -> %g", i, a, c)
		}
	}
}

func TestBuffer16Resync(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 256))
	b.Resync(1000) // wraps
	if got := b.Head(); got != 1000%256 {
		t.Fatalf("head = %d, want %d", got, 1000%256)
	}
}

func TestBuffer8RoundTripCoarse(t *testing.T) {
	var b Buffer8
	b.Init(make([]int8, 1024))

	in := ramp(512)
	b.WriteFade(in, 1, true)
	for i := 0; i < 512; i++ {
		got := b.Read(i)
		// mu-law: coarse but monotone; allow a few percent error.
		if diff := math.Abs(got - in[i]); diff > 0.05 {
			t.Fatalf("sample %d: got=%g want=%g", i, got, in[i])
		}
	}
}

func TestMuLawMonotone(t *testing.T) {
	prev := -2.0
	for v := -128; v <= 127; v++ {
		y := muLawDecode(int8(v))
		if y < prev {
			t.Fatalf("mu-law decode not monotone at %d", v)
		}
		prev = y
	}
	if muLawDecode(muLawEncode(0)) != 0 {
		t.Fatal("mu-law zero not preserved")
	}
}

func TestMuLawRoundTripHighLevel(t *testing.T) {
	// Encode and decode share one code scale; the residual error is the
	// companding step itself, well under a percent near full scale.
	for _, x := range []float64{-0.95, -0.83, -0.5, 0.5, 0.83, 0.95} {
		got := muLawDecode(muLawEncode(x))
		if diff := math.Abs(got - x); diff > 0.02 {
			t.Fatalf("round trip %g: got %g (err %g)", x, got, diff)
		}
	}
}

func TestReadHermiteMatchesIntegerPositions(t *testing.T) {
	var b Buffer16
	b.Init(make([]int16, 128))
	in := ramp(128)
	b.WriteFade(in, 1, true)

	for i := 4; i < 100; i++ {
		got := b.ReadHermite(float64(i))
		want := b.Read(i)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("hermite at integer %d: got=%g want=%g", i, got, want)
		}
	}
}
