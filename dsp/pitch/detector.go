// Package pitch provides monophonic pitch detection based on the
// autocorrelation of a windowed analysis frame. The autocorrelation is
// computed through the frequency domain, which agrees with the direct
// time-domain definition up to rounding.
package pitch

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

const (
	defaultMinFrequency = 80.0
	defaultMaxFrequency = 2000.0

	defaultSmoothing = 0.8

	defaultConfidenceThreshold = 0.3
)

// Estimate is the outcome of a single analysis frame. Frequency is zero
// when the frame is judged unvoiced.
type Estimate struct {
	Frequency  float64
	Confidence float64
}

// Detector estimates the fundamental frequency of successive analysis
// frames. Detected pitches are exponentially smoothed across frames so
// that isolated estimation errors do not produce audible jumps.
type Detector struct {
	sampleRate float64
	windowSize int

	minFrequency float64
	maxFrequency float64

	smoothing           float64
	confidenceThreshold float64

	smoothedPitch float64

	coeffs []float64
	plan   *algofft.Plan[complex128]

	windowed []float64
	fwd      []complex128
	spec     []complex128
	inv      []complex128
}

// NewDetector constructs a Detector for frames of up to windowSize
// samples at the given sample rate. The detection range defaults to
// [80, 2000] Hz, capped at Nyquist.
func NewDetector(sampleRate float64, windowSize int) (*Detector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}

	if windowSize < 2 {
		return nil, fmt.Errorf("window size must be >= 2: %d", windowSize)
	}

	fftSize := core.NextPowerOfTwo(2 * windowSize)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("creating FFT plan: %w", err)
	}

	maxFrequency := defaultMaxFrequency
	if nyquist := sampleRate / 2; maxFrequency > nyquist {
		maxFrequency = nyquist
	}

	d := &Detector{
		sampleRate:          sampleRate,
		windowSize:          windowSize,
		minFrequency:        defaultMinFrequency,
		maxFrequency:        maxFrequency,
		smoothing:           defaultSmoothing,
		confidenceThreshold: defaultConfidenceThreshold,
		coeffs:              window.Generate(window.TypeHann, windowSize),
		plan:                plan,
		windowed:            make([]float64, windowSize),
		fwd:                 make([]complex128, fftSize),
		spec:                make([]complex128, fftSize),
		inv:                 make([]complex128, fftSize),
	}

	return d, nil
}

// Detect analyzes one frame of up to WindowSize samples and returns the
// smoothed pitch estimate. Empty or oversized frames, silent or aperiodic
// signals, and periods outside the frequency range all yield the zero
// Estimate; the smoothing register survives such frames untouched.
func (d *Detector) Detect(samples []float64) (Estimate, error) {
	n := len(samples)
	if n == 0 || n > d.windowSize {
		return Estimate{}, nil
	}

	if err := window.ApplyCoefficients(d.windowed[:n], samples, d.coeffs[:n]); err != nil {
		return Estimate{}, err
	}

	for i := range d.fwd {
		if i < n {
			d.fwd[i] = complex(d.windowed[i], 0)
		} else {
			d.fwd[i] = 0
		}
	}

	if err := d.plan.Forward(d.spec, d.fwd); err != nil {
		return Estimate{}, err
	}

	for i, c := range d.spec {
		re, im := real(c), imag(c)
		d.spec[i] = complex(re*re+im*im, 0)
	}

	if err := d.plan.Inverse(d.inv, d.spec); err != nil {
		return Estimate{}, err
	}

	r0 := real(d.inv[0])
	if r0 <= 0 {
		return Estimate{}, nil
	}

	lagMin, lagMax := d.lagRange(n)
	if lagMin >= lagMax {
		return Estimate{}, nil
	}

	// Ties go to the lowest lag.
	bestLag := lagMin
	bestValue := real(d.inv[lagMin])

	for lag := lagMin + 1; lag <= lagMax; lag++ {
		if v := real(d.inv[lag]); v > bestValue {
			bestValue = v
			bestLag = lag
		}
	}

	confidence := core.Clamp(bestValue/r0, 0, 1)
	if confidence < d.confidenceThreshold {
		return Estimate{}, nil
	}

	raw := d.sampleRate / float64(bestLag)
	if raw < d.minFrequency || raw > d.maxFrequency {
		return Estimate{}, nil
	}

	if d.smoothedPitch <= 0 {
		d.smoothedPitch = raw
	} else {
		d.smoothedPitch = d.smoothing*d.smoothedPitch + (1-d.smoothing)*raw
	}

	return Estimate{Frequency: d.smoothedPitch, Confidence: confidence}, nil
}

// SetMinFrequency updates the lower bound of the detection range with a
// floor of 1 Hz.
func (d *Detector) SetMinFrequency(minHz float64) {
	if minHz < 1 {
		minHz = 1
	}

	d.minFrequency = minHz
}

// SetMaxFrequency updates the upper bound of the detection range, capped
// at Nyquist.
func (d *Detector) SetMaxFrequency(maxHz float64) {
	if nyquist := d.sampleRate / 2; maxHz > nyquist {
		maxHz = nyquist
	}

	d.maxFrequency = maxHz
}

// SetFrequencyRange updates both bounds of the detection range. On error
// the previous range stays in effect.
func (d *Detector) SetFrequencyRange(minHz, maxHz float64) error {
	if minHz <= 0 || maxHz <= minHz {
		return fmt.Errorf("frequency range must satisfy 0 < min < max: [%f, %f]", minHz, maxHz)
	}

	if maxHz > d.sampleRate/2 {
		return fmt.Errorf("max frequency must be <= Nyquist (%f): %f", d.sampleRate/2, maxHz)
	}

	d.minFrequency = minHz
	d.maxFrequency = maxHz

	return nil
}

// SetSmoothing updates the exponential smoothing factor in [0, 1). Zero
// disables smoothing entirely.
func (d *Detector) SetSmoothing(alpha float64) error {
	if alpha < 0 || alpha >= 1 {
		return fmt.Errorf("smoothing factor must be in [0, 1): %f", alpha)
	}

	d.smoothing = alpha

	return nil
}

// SetConfidenceThreshold updates the voiced/unvoiced decision threshold,
// clamped to [0, 1].
func (d *Detector) SetConfidenceThreshold(threshold float64) {
	d.confidenceThreshold = core.Clamp(threshold, 0, 1)
}

// Reset clears the smoothing state so the next frame starts fresh.
func (d *Detector) Reset() {
	d.smoothedPitch = 0
}

// WindowSize returns the maximum analysis frame length in samples.
func (d *Detector) WindowSize() int {
	return d.windowSize
}

// SampleRate returns the configured sample rate in Hz.
func (d *Detector) SampleRate() float64 {
	return d.sampleRate
}

// FrequencyRange returns the current detection range in Hz.
func (d *Detector) FrequencyRange() (minHz, maxHz float64) {
	return d.minFrequency, d.maxFrequency
}

// lagRange converts the frequency range into an inclusive lag interval
// bounded by the frame length.
func (d *Detector) lagRange(n int) (int, int) {
	lagMin := int(d.sampleRate / d.maxFrequency)
	if lagMin < 1 {
		lagMin = 1
	}

	lagMax := int(d.sampleRate / d.minFrequency)
	if lagMax > n-1 {
		lagMax = n - 1
	}

	return lagMin, lagMax
}
