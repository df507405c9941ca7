package granular

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-granular/dsp/resample"
)

const (
	defaultSampleRate = 32000.0
	defaultBlockSize  = 32
	maxBlockSize      = 512
)

// Option mutates processor construction parameters.
type Option func(*config) error

type config struct {
	sampleRate        float64
	blockSize         int
	channels          int
	lowFidelity       bool
	reverbDrySignal   bool
	quantizeSemitones bool
}

func defaultConfig() config {
	return config{
		sampleRate:      defaultSampleRate,
		blockSize:       defaultBlockSize,
		channels:        2,
		reverbDrySignal: true,
	}
}

// WithSampleRate sets the processing sample rate in Hz.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *config) error {
		if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
			return fmt.Errorf("sample rate must be > 0 and finite: %f", sampleRate)
		}
		cfg.sampleRate = sampleRate
		return nil
	}
}

// WithBlockSize sets the maximum frames per Process call. The size must
// divide evenly by the low-fidelity resampling factor.
func WithBlockSize(size int) Option {
	return func(cfg *config) error {
		if size < resample.Factor || size > maxBlockSize || size%resample.Factor != 0 {
			return fmt.Errorf("block size must be a multiple of %d in [%d, %d]: %d",
				resample.Factor, resample.Factor, maxBlockSize, size)
		}
		cfg.blockSize = size
		return nil
	}
}

// WithChannels sets the channel count, 1 or 2.
func WithChannels(channels int) Option {
	return func(cfg *config) error {
		if channels != 1 && channels != 2 {
			return fmt.Errorf("channel count must be 1 or 2: %d", channels)
		}
		cfg.channels = channels
		return nil
	}
}

// WithLowFidelity starts the processor in reduced-rate, reduced-depth
// operation, doubling the effective recording time.
func WithLowFidelity(enabled bool) Option {
	return func(cfg *config) error {
		cfg.lowFidelity = enabled
		return nil
	}
}

// WithReverbOnDrySignal routes the plate reverb after the dry/wet mix
// so the dry signal is reverberated too. Enabled by default.
func WithReverbOnDrySignal(enabled bool) Option {
	return func(cfg *config) error {
		cfg.reverbDrySignal = enabled
		return nil
	}
}

// WithSemitoneQuantization snaps the granular mode's transposition to
// the nearest semitone.
func WithSemitoneQuantization(enabled bool) Option {
	return func(cfg *config) error {
		cfg.quantizeSemitones = enabled
		return nil
	}
}
