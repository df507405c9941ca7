// Package granular is the orchestrator of the granular effects engine: a
// mode state machine that re-partitions caller-owned memory and
// reinitializes the playback engines on mode or fidelity changes
// (Prepare), a per-block signal pipeline sequencing capture, feedback,
// the active engine, post effects and output conversion (Process), and
// save/restore of the recording buffers to external storage.
//
// The processor is real-time safe after construction (Process performs
// no allocations) and not thread-safe: Prepare, Process and the
// persistence calls must come from a single goroutine, with Prepare run
// before the first Process after any mode, fidelity or channel change.
package granular
