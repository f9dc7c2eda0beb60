// Package correct resynthesizes audio at a corrected pitch. Each block
// is resampled through a phase accumulator whose rate is the clamped
// pitch ratio, and the resampled signal is shaped by an attack/release
// amplitude envelope tracking the input so that level changes carry over
// to the shifted output.
package correct

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

const (
	minRatio = 0.5
	maxRatio = 2.0

	defaultAttackTime  = 0.005
	defaultReleaseTime = 0.05

	shiftedConfidence = 0.8
)

// Corrector shifts blocks of audio toward a target pitch. The phase
// accumulator and the amplitude envelope persist across blocks and are
// the only state carried between calls.
type Corrector struct {
	sampleRate float64
	bufferSize int

	overlapSize int

	attackTime  float64
	releaseTime float64

	attackCoeff  float64
	releaseCoeff float64

	preserveFormants bool

	phase    float64
	envelope float64
}

// NewCorrector constructs a Corrector for blocks of up to bufferSize
// samples at the given sample rate.
func NewCorrector(sampleRate float64, bufferSize int) (*Corrector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}

	if bufferSize < 2 {
		return nil, fmt.Errorf("buffer size must be >= 2: %d", bufferSize)
	}

	c := &Corrector{
		sampleRate:  sampleRate,
		bufferSize:  bufferSize,
		overlapSize: bufferSize / 2,
		attackTime:  defaultAttackTime,
		releaseTime: defaultReleaseTime,
	}
	c.recomputeCoeffs()

	return c, nil
}

// Process shifts input toward targetPitch with the given strength and
// writes the result to output. It returns the correction confidence and
// the processing latency in samples. A non-positive input pitch, target
// pitch, or strength passes the block through untouched with zero
// confidence and latency, leaving the accumulator and envelope as they
// were.
func (c *Corrector) Process(output, input []float64, inputPitch, targetPitch, strength float64) (float64, int, error) {
	n := len(input)
	if len(output) != n {
		return 0, 0, fmt.Errorf("output length must match input length %d: %d", n, len(output))
	}

	if inputPitch <= 0 || targetPitch <= 0 || strength <= 0 {
		copy(output, input)
		return 0, 0, nil
	}

	ratio := core.Clamp(1+strength*(targetPitch/inputPitch-1), minRatio, maxRatio)

	for j, x := range input {
		k := int(c.phase)
		t := c.phase - float64(k)

		var y float64
		switch {
		case k < n-1:
			y = (1-t)*input[k] + t*input[k+1]
		case k < n:
			y = input[k]
		}

		c.phase += ratio
		if c.phase >= float64(n) {
			c.phase = 0
		}

		level := math.Abs(x)

		coeff := c.releaseCoeff
		if level > c.envelope {
			coeff = c.attackCoeff
		}

		c.envelope += coeff * (level - c.envelope)

		output[j] = y * c.envelope
	}

	return shiftedConfidence, c.overlapSize, nil
}

// SetAttackTime updates the envelope attack time in seconds.
func (c *Corrector) SetAttackTime(seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("attack time must be > 0: %f", seconds)
	}

	c.attackTime = seconds
	c.recomputeCoeffs()

	return nil
}

// SetReleaseTime updates the envelope release time in seconds.
func (c *Corrector) SetReleaseTime(seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("release time must be > 0: %f", seconds)
	}

	c.releaseTime = seconds
	c.recomputeCoeffs()

	return nil
}

// SetPreserveFormants records whether formants should be preserved. The
// flag is informational; resynthesis does not change shape.
func (c *Corrector) SetPreserveFormants(enabled bool) {
	c.preserveFormants = enabled
}

// PreserveFormants reports the recorded formant preservation flag.
func (c *Corrector) PreserveFormants() bool {
	return c.preserveFormants
}

// Reset clears the phase accumulator and the amplitude envelope.
func (c *Corrector) Reset() {
	c.phase = 0
	c.envelope = 0
}

// Latency returns the processing latency in samples.
func (c *Corrector) Latency() int {
	return c.overlapSize
}

// AttackTime returns the envelope attack time in seconds.
func (c *Corrector) AttackTime() float64 {
	return c.attackTime
}

// ReleaseTime returns the envelope release time in seconds.
func (c *Corrector) ReleaseTime() float64 {
	return c.releaseTime
}

func (c *Corrector) recomputeCoeffs() {
	c.attackCoeff = 1 - math.Exp(-1/(c.attackTime*c.sampleRate))
	c.releaseCoeff = 1 - math.Exp(-1/(c.releaseTime*c.sampleRate))
}
