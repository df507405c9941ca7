// Package engines implements the eight playback algorithms dispatched by
// the orchestrator: the granular player, the WSOLA stretch player and its
// incremental correlator, the looping delay, the kammerl slicer, and the
// phase vocoder behind the two spectral modes.
//
// All players share the same contract: Init runs at (re)configuration
// time and may allocate; Play/Process run in the audio callback, write
// exactly one block, and never allocate. Time-based players read from the
// recording buffers through the audiobuf.Reader interface, so they are
// agnostic to the active bit depth.
package engines
