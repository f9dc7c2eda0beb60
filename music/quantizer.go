package music

import (
	"fmt"
	"math"
	"sort"
)

const (
	minTempo = 60.0
	maxTempo = 200.0
)

// Quantizer snaps pitches to scale notes and event times to a tempo grid.
// The zero strength setting leaves input untouched; strength one snaps
// fully to the target.
type Quantizer struct {
	sampleRate float64
	tempo      float64

	timeSignature     TimeSignature
	samplesPerBeat    float64
	samplesPerMeasure float64

	custom []int
}

// NewQuantizer constructs a Quantizer for the given sample rate and tempo
// in beats per minute. The tempo is clamped to [60, 200] BPM.
func NewQuantizer(sampleRate, tempo float64) (*Quantizer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}

	q := &Quantizer{
		sampleRate:    sampleRate,
		timeSignature: TimeSignature44,
	}
	q.setTempoClamped(tempo)

	return q, nil
}

// QuantizePitch maps inputHz toward the nearest note of the scale rooted
// at keyCenter (a MIDI pitch class, 0 = C) and blends between input and
// target by strength in MIDI space. Non-positive input or strength passes
// through unchanged.
func (q *Quantizer) QuantizePitch(inputHz float64, scale Scale, keyCenter int, strength float64) float64 {
	if inputHz <= 0 || strength <= 0 {
		return inputHz
	}

	if strength > 1 {
		strength = 1
	}

	intervals := q.intervals(scale)
	if len(intervals) == 0 {
		return inputHz
	}

	inputMIDI := FrequencyToMIDI(inputHz)
	targetMIDI := nearestScaleNote(inputMIDI, intervals, keyCenter)

	blended := inputMIDI + strength*(targetMIDI-inputMIDI)

	return MIDIToFrequency(blended)
}

// NearestNote returns the closest scale note to inputHz along with the
// deviation of the input from it in cents. A non-positive input yields
// the zero Note.
func (q *Quantizer) NearestNote(inputHz float64, scale Scale, keyCenter int) Note {
	if inputHz <= 0 {
		return Note{}
	}

	intervals := q.intervals(scale)
	if len(intervals) == 0 {
		intervals = scaleIntervals[ScaleChromatic]
	}

	inputMIDI := FrequencyToMIDI(inputHz)
	targetMIDI := nearestScaleNote(inputMIDI, intervals, keyCenter)
	targetHz := MIDIToFrequency(targetMIDI)

	return Note{
		Frequency: targetHz,
		MIDINote:  int(math.Round(targetMIDI)),
		Cents:     1200 * math.Log2(inputHz/targetHz),
	}
}

// QuantizeTiming snaps an event time in samples toward the nearest grid
// position and blends by strength. Non-positive strength passes the time
// through unchanged.
func (q *Quantizer) QuantizeTiming(timeSamples int, grid GridResolution, strength float64) int {
	if strength <= 0 {
		return timeSamples
	}

	if strength > 1 {
		strength = 1
	}

	spacing := grid.gridSamples(q.samplesPerBeat)
	if spacing <= 0 {
		return timeSamples
	}

	t := float64(timeSamples)
	snapped := math.Round(t/spacing) * spacing

	return int(t + strength*(snapped-t))
}

// SetTempo updates the tempo in BPM, clamping to [60, 200].
func (q *Quantizer) SetTempo(tempo float64) {
	q.setTempoClamped(tempo)
}

// SetTimeSignature updates the meter and recomputes the grid.
func (q *Quantizer) SetTimeSignature(ts TimeSignature) {
	q.timeSignature = ts
	q.recompute()
}

// SetCustomScale installs the pitch classes used by ScaleCustom. Degrees
// are reduced modulo 12, deduplicated, and sorted ascending. With an empty
// set, QuantizePitch passes pitches through unchanged under ScaleCustom,
// while NearestNote falls back to the chromatic intervals.
func (q *Quantizer) SetCustomScale(degrees []int) {
	seen := make(map[int]bool, len(degrees))
	cleaned := make([]int, 0, len(degrees))

	for _, d := range degrees {
		pc := ((d % 12) + 12) % 12
		if !seen[pc] {
			seen[pc] = true
			cleaned = append(cleaned, pc)
		}
	}

	sort.Ints(cleaned)
	q.custom = cleaned
}

// Reset clears no state; the quantizer is stateless between calls. It is
// provided so callers can treat all processing stages uniformly.
func (q *Quantizer) Reset() {}

// Tempo returns the current tempo in BPM.
func (q *Quantizer) Tempo() float64 {
	return q.tempo
}

// SamplesPerBeat returns the length of one beat in samples.
func (q *Quantizer) SamplesPerBeat() float64 {
	return q.samplesPerBeat
}

// SamplesPerMeasure returns the length of one measure in samples.
func (q *Quantizer) SamplesPerMeasure() float64 {
	return q.samplesPerMeasure
}

func (q *Quantizer) setTempoClamped(tempo float64) {
	if tempo < minTempo {
		tempo = minTempo
	} else if tempo > maxTempo {
		tempo = maxTempo
	}

	q.tempo = tempo
	q.recompute()
}

func (q *Quantizer) recompute() {
	q.samplesPerBeat = q.sampleRate * 60 / q.tempo
	if q.timeSignature.compound() {
		q.samplesPerBeat /= 2
	}

	q.samplesPerMeasure = q.samplesPerBeat * q.timeSignature.beatsPerMeasure()
}

func (q *Quantizer) intervals(scale Scale) []int {
	if scale == ScaleCustom {
		return q.custom
	}

	return scaleIntervals[scale]
}

// nearestScaleNote finds the scale degree closest to inputMIDI. The input
// is decomposed into an octave relative to the key center plus a residual
// in [0, 12); each degree is tried in its own octave and the one above,
// keeping the first candidate at minimal distance.
func nearestScaleNote(inputMIDI float64, intervals []int, keyCenter int) float64 {
	root := float64(keyCenter)
	d := inputMIDI - root
	octave := math.Floor(d / 12)
	rem := d - 12*octave

	best := 0.0
	bestDist := math.Inf(1)

	for _, iv := range intervals {
		for _, candidate := range []float64{float64(iv), float64(iv) + 12} {
			dist := math.Abs(rem - candidate)
			if dist < bestDist {
				bestDist = dist
				best = candidate
			}
		}
	}

	return root + 12*octave + best
}
