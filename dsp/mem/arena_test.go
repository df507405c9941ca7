package mem

import "testing"

func TestArenaCarvesSequentially(t *testing.T) {
	a := NewArena(make([]byte, 1024))

	b1 := a.Bytes(100)
	if b1 == nil || len(b1) != 100 {
		t.Fatalf("first carving failed: %v", b1)
	}
	b2 := a.Bytes(100)
	if b2 == nil {
		t.Fatal("second carving failed")
	}

	b1[99] = 0xAA
	if b2[0] == 0xAA {
		t.Fatal("carvings overlap")
	}
}

func TestArenaTypedViewsShareRegion(t *testing.T) {
	region := make([]byte, 4096)
	a := NewArena(region)

	w := a.Int16(16)
	if w == nil {
		t.Fatal("Int16 carving failed")
	}
	w[0] = 0x0102

	found := false
	for _, b := range region[:64] {
		if b == 0x01 || b == 0x02 {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("typed view does not alias region bytes")
	}
}

func TestArenaExhaustionReturnsNil(t *testing.T) {
	a := NewArena(make([]byte, 64))
	if got := a.Bytes(65); got != nil {
		t.Fatalf("oversized carving should fail, got len %d", len(got))
	}
	if got := a.Float64(9); got != nil {
		t.Fatalf("oversized float carving should fail, got len %d", len(got))
	}
}

func TestArenaResetRedistributes(t *testing.T) {
	a := NewArena(make([]byte, 128))
	if a.Bytes(128) == nil {
		t.Fatal("initial carving failed")
	}
	if a.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", a.Remaining())
	}
	a.Reset()
	if a.Bytes(128) == nil {
		t.Fatal("carving after reset failed")
	}
}

func TestArenaAlignment(t *testing.T) {
	a := NewArena(make([]byte, 1024))
	a.Bytes(3) // force misalignment
	f := a.Float64(4)
	if f == nil {
		t.Fatal("float carving failed")
	}
	f[0] = 1.5 // would fault on strict-alignment targets if misaligned
}

func TestInt16View(t *testing.T) {
	region := make([]byte, 8)
	v := Int16View(region)
	if len(v) != 4 {
		t.Fatalf("view length = %d, want 4", len(v))
	}
	v[1] = -2
	if region[2] == 0 && region[3] == 0 {
		t.Fatal("view write not visible in region")
	}
}
