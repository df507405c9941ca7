// Package mem implements the linear allocator used to partition the two
// caller-owned raw memory regions. Views are carved front to back and
// never freed piecewise; the whole arena is redistributed from scratch
// whenever the engine re-prepares.
package mem

import "unsafe"

// Arena hands out typed views over one raw byte region. Allocation is a
// pointer bump; there is no deallocation. Undersized regions are a caller
// precondition: requests beyond the remaining space return nil views.
type Arena struct {
	region []byte
	offset int
}

// NewArena returns an arena over region. The arena does not copy; views
// alias the region's memory for the arena's lifetime.
func NewArena(region []byte) *Arena {
	return &Arena{region: region}
}

// Reset discards all carvings so the region can be redistributed.
func (a *Arena) Reset() {
	a.offset = 0
}

// Remaining returns the number of bytes still available.
func (a *Arena) Remaining() int {
	return len(a.region) - a.offset
}

// Bytes carves n raw bytes.
func (a *Arena) Bytes(n int) []byte {
	if n < 0 || a.offset+n > len(a.region) {
		return nil
	}
	view := a.region[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	return view
}

// Int16 carves n 16-bit words, aligned to 2 bytes.
func (a *Arena) Int16(n int) []int16 {
	b := a.alignedBytes(n*2, 2)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&b[0])), n)
}

// Float64 carves n float64 values, aligned to 8 bytes.
func (a *Arena) Float64(n int) []float64 {
	b := a.alignedBytes(n*8, 8)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), n)
}

// Uint32 carves n 32-bit words, aligned to 4 bytes.
func (a *Arena) Uint32(n int) []uint32 {
	b := a.alignedBytes(n*4, 4)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
}

func (a *Arena) alignedBytes(n, align int) []byte {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.region))) + uintptr(a.offset)
	if pad := int(base % uintptr(align)); pad != 0 {
		if a.Bytes(align-pad) == nil {
			return nil
		}
	}
	return a.Bytes(n)
}

// Int16View reinterprets a byte region as 16-bit words without copying.
// The region must be 2-byte aligned and at least 2 bytes long.
func Int16View(region []byte) []int16 {
	if len(region) < 2 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&region[0])), len(region)/2)
}

// Int8View reinterprets a byte region as signed 8-bit samples.
func Int8View(region []byte) []int8 {
	if len(region) == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&region[0])), len(region))
}
