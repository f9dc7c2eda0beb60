// Package engine drives the real-time pitch-correction chain. Incoming
// blocks are downmixed to mono, analyzed with the autocorrelation
// detector, and, depending on the mode, resynthesized toward the
// detected pitch or its quantized scale note. Blocks can be pushed
// directly through Process or staged through the internal ring buffers
// for decoupled producer/consumer use.
package engine
