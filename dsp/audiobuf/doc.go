// Package audiobuf implements the circular recording buffers that
// capture the live input for the time-based playback modes.
//
// Two bit depths exist: Buffer16 stores linear 16-bit samples, Buffer8
// stores mu-law companded 8-bit samples, doubling the recording time at
// reduced fidelity. Both operate over externally supplied memory views
// (see the mem package) and never allocate after Init.
//
// Writes go through WriteFade, which crossfades the overwrite seam when
// recording stops and resumes, so a freeze release does not click.
package audiobuf
