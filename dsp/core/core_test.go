package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-2, 0, 1, 0},
		{5, 0, 1, 1},
		{-1, -1, 1, -1},
	}
	for _, tc := range cases {
		if got := Clamp(tc.value, tc.min, tc.max); got != tc.want {
			t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", tc.value, tc.min, tc.max, got, tc.want)
		}
	}
}

func TestSoftClipBounded(t *testing.T) {
	for x := -100.0; x <= 100.0; x += 0.37 {
		y := SoftClip(x)
		if y < -1 || y > 1 {
			t.Fatalf("SoftClip(%v) = %v outside [-1, 1]", x, y)
		}
	}
}

func TestSoftLimitNearLinearAtSmallAmplitude(t *testing.T) {
	// The cubic's relative deviation from linear grows as ~0.3*x^2,
	// about 3e-3 at x = 0.1.
	for _, x := range []float64{-0.1, -0.01, 0.01, 0.1} {
		y := SoftLimit(x)
		if diff := math.Abs(y - x); diff > 5e-3*math.Abs(x) {
			t.Fatalf("SoftLimit(%v) = %v deviates too far from linear", x, y)
		}
	}
}

func TestSemitonesToRatio(t *testing.T) {
	cases := []struct {
		semitones float64
		want      float64
	}{
		{0, 1},
		{12, 2},
		{-12, 0.5},
		{24, 4},
		{7, math.Pow(2, 7.0/12.0)},
	}
	for _, tc := range cases {
		got := SemitonesToRatio(tc.semitones)
		if diff := math.Abs(got-tc.want) / tc.want; diff > 1e-3 {
			t.Fatalf("SemitonesToRatio(%v) = %v, want %v (rel err %g)", tc.semitones, got, tc.want, diff)
		}
	}
}

func TestOnePoleConverges(t *testing.T) {
	state := 0.0
	for i := 0; i < 10000; i++ {
		state = OnePole(state, 1, 0.01)
	}
	if math.Abs(state-1) > 1e-9 {
		t.Fatalf("one-pole did not converge: %v", state)
	}
}

func TestXfadeCurvesMatchedEndpoints(t *testing.T) {
	if got := XfadeIn(0); math.Abs(got) > 1e-12 {
		t.Fatalf("XfadeIn(0) = %v, want 0", got)
	}
	if got := XfadeIn(1); math.Abs(got-1) > 1e-12 {
		t.Fatalf("XfadeIn(1) = %v, want 1", got)
	}
	if got := XfadeOut(0); math.Abs(got-1) > 1e-12 {
		t.Fatalf("XfadeOut(0) = %v, want 1", got)
	}
	if got := XfadeOut(1); math.Abs(got) > 1e-9 {
		t.Fatalf("XfadeOut(1) = %v, want 0", got)
	}
	// Equal-power: in^2 + out^2 stays near 1 across the fade.
	for x := 0.0; x <= 1.0; x += 1.0 / 64 {
		in, out := XfadeIn(x), XfadeOut(x)
		if p := in*in + out*out; math.Abs(p-1) > 0.01 {
			t.Fatalf("crossfade power at %v = %v, want ~1", x, p)
		}
	}
}

func TestInvTanhMonotonicAndFinite(t *testing.T) {
	prev := -1.0
	for x := 0.0; x <= 1.0; x += 1.0 / 128 {
		y := InvTanh(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("InvTanh(%v) not finite: %v", x, y)
		}
		if y < prev {
			t.Fatalf("InvTanh not monotonic at %v: %v < %v", x, y, prev)
		}
		prev = y
	}
}

func TestSineWindow(t *testing.T) {
	w := SineWindow(1024)
	if len(w) != 1024 {
		t.Fatalf("window length = %d, want 1024", len(w))
	}
	if w[0] != 0 {
		t.Fatalf("window[0] = %v, want 0", w[0])
	}
	if diff := math.Abs(w[512] - 1); diff > 1e-12 {
		t.Fatalf("window midpoint = %v, want 1", w[512])
	}
}

func TestHermite4Identity(t *testing.T) {
	// Interpolating a linear ramp must reproduce the ramp.
	for _, frac := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := Hermite4(frac, -1, 0, 1, 2)
		if math.Abs(got-frac) > 1e-12 {
			t.Fatalf("Hermite4(%v) = %v, want %v", frac, got, frac)
		}
	}
}
