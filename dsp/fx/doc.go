// Package fx contains the post-processing collaborators sequenced by the
// orchestrator: the stereo diffuser, the plate reverb, the time-domain
// pitch shifter, the oliverb reverb engine, and the resonestor resonator
// bank.
//
// All processors follow the same contract: Init points them at memory
// carved from the engine workspace (or sample memory), parameter setters
// may be called every block, and Process transforms one block of stereo
// frames in place without allocating.
package fx
