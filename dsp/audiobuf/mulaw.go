package audiobuf

import "math"

// mu is the companding constant of the mu-law curve (ITU G.711 value).
const mu = 255.0

var muLawTable [256]float64

func init() {
	for i := range muLawTable {
		muLawTable[i] = expand(int8(i - 128))
	}
}

// expand inverts muLawEncode over the same 127 scale. Code -128 is
// never produced by the encoder; its entry is clamped to full scale.
func expand(v int8) float64 {
	y := float64(v) / 127
	sign := 1.0
	if y < 0 {
		sign = -1
		y = -y
	}
	if y > 1 {
		y = 1
	}
	return sign * (math.Pow(1+mu, y) - 1) / mu
}

// muLawEncode compresses a [-1, 1] sample to 8 bits.
func muLawEncode(x float64) int8 {
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	if x > 1 {
		x = 1
	}
	y := math.Log1p(mu*x) / math.Log1p(mu)
	return int8(math.Round(sign * y * 127))
}

// muLawDecode expands an 8-bit companded sample back to float.
func muLawDecode(v int8) float64 {
	return muLawTable[int(v)+128]
}
