package engines

import "github.com/cwbudde/algo-granular/dsp/audiobuf"

// MaxWSOLASize is the maximum analysis window of the time correlator, in
// samples at the full sample rate. The workspace carving for correlator
// scratch is sized from it.
const MaxWSOLASize = 4096

// correlatorDecimation trades correlation resolution for CPU: candidates
// are evaluated on a 1/32-rate copy of the window.
const correlatorDecimation = 32

// CorrelatorBlockSize is the length of each scratch area the correlator
// needs (the decimated window plus guard entries).
const CorrelatorBlockSize = MaxWSOLASize/correlatorDecimation + 2

// candidatesPerCall bounds the work done by one EvaluateSomeCandidates
// call so the search amortizes across Prepare calls.
const candidatesPerCall = 16

// Correlator searches the recent recording for the dominant pitch
// period. The search is incremental: LoadWindow snapshots a decimated
// window, then successive EvaluateSomeCandidates calls score a bounded
// number of candidate lags until the sweep completes.
type Correlator struct {
	window []float64
	scores []float64

	candidate int
	bestLag   int
	bestScore float64
	done      bool
	haveBest  bool
}

// Init points the correlator at its two scratch areas, each at least
// CorrelatorBlockSize entries long.
func (c *Correlator) Init(window, scores []float64) {
	c.window = window[:CorrelatorBlockSize]
	c.scores = scores[:CorrelatorBlockSize]
	c.candidate = 0
	c.done = false
	c.haveBest = false
}

// LoadWindow snapshots the most recent MaxWSOLASize samples before the
// buffer head, decimated, and restarts the candidate sweep.
func (c *Correlator) LoadWindow(buf audiobuf.Reader) {
	if c.window == nil || buf.Size() == 0 {
		return
	}
	start := buf.Head() - MaxWSOLASize
	n := MaxWSOLASize / correlatorDecimation
	for i := 0; i < n; i++ {
		c.window[i] = buf.Read(start + i*correlatorDecimation)
	}
	c.candidate = minLagDecimated
	c.bestScore = 0
	c.done = false
}

// minLagDecimated skips lags shorter than ~64 full-rate samples; the
// autocorrelation peak at lag 0 is never a useful period.
const minLagDecimated = 2

// EvaluateSomeCandidates scores up to candidatesPerCall lags and records
// the best so far. It returns true once the sweep has covered the window.
func (c *Correlator) EvaluateSomeCandidates() bool {
	if c.window == nil || c.done {
		return c.done
	}
	n := MaxWSOLASize / correlatorDecimation
	for k := 0; k < candidatesPerCall; k++ {
		lag := c.candidate
		if lag >= n/2 {
			c.done = true
			c.haveBest = c.haveBest || c.bestScore > 0
			break
		}
		score := 0.0
		for i := 0; i < n-lag; i++ {
			score += c.window[i] * c.window[i+lag]
		}
		c.scores[lag] = score
		if score > c.bestScore {
			c.bestScore = score
			c.bestLag = lag
		}
		c.candidate++
	}
	return c.done
}

// Period returns the detected pitch period in full-rate samples, or the
// fallback window length if no sweep has completed yet.
func (c *Correlator) Period() float64 {
	if !c.haveBest || c.bestLag == 0 {
		return 1024
	}
	return float64(c.bestLag * correlatorDecimation)
}

// Done reports whether the current sweep has finished.
func (c *Correlator) Done() bool { return c.done }
