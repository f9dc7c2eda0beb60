package music

import "math"

// Note describes a quantized pitch: the target frequency, its MIDI note
// number, and the deviation of the input from that target in cents.
type Note struct {
	Frequency float64
	MIDINote  int
	Cents     float64
}

// FrequencyToMIDI converts a frequency in Hz to a fractional MIDI note
// number (A4 = 440 Hz = 69). Non-positive frequencies map to 0.
func FrequencyToMIDI(freq float64) float64 {
	if freq <= 0 {
		return 0
	}

	return 69 + 12*math.Log2(freq/440)
}

// MIDIToFrequency converts a fractional MIDI note number to Hz.
func MIDIToFrequency(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}
