// Package window provides analysis window generation for pitch detection
// and grain processing.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var (
	hannCoeffs     = []float64{0.5, -0.5}
	hammingCoeffs  = []float64{0.54, -0.46}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

// Generate returns window coefficients of the given length in symmetric form:
// w[i] is evaluated at i/(length-1).
func Generate(t Type, length int) []float64 {
	if length <= 0 {
		return nil
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length))
	}

	return out
}

// Hann returns Hann window coefficients.
func Hann(size int) ([]float64, error) {
	return Generate(TypeHann, size), validateLength(size)
}

// Hamming returns Hamming window coefficients.
func Hamming(size int) ([]float64, error) {
	return Generate(TypeHamming, size), validateLength(size)
}

// Blackman returns Blackman window coefficients.
func Blackman(size int) ([]float64, error) {
	return Generate(TypeBlackman, size), validateLength(size)
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64) {
	if len(buf) == 0 {
		return
	}

	coeffs := Generate(t, len(buf))
	vecmath.MulBlockInPlace(buf, coeffs)
}

// ApplyCoefficients multiplies samples with coefficients into out.
// All three slices must have the same length.
func ApplyCoefficients(out, samples, coeffs []float64) error {
	if len(samples) != len(coeffs) || len(out) != len(samples) {
		return errMismatchedLength
	}

	vecmath.MulBlock(out, samples, coeffs)

	return nil
}

// ApplyCoefficientsInPlace multiplies samples with coefficients in place.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errMismatchedLength
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}

// CoherentGain returns the mean of the coefficients, the amplitude
// correction reference for windowed measurements.
func CoherentGain(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmptyCoeffs
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs)), nil
}

func evalWindow(t Type, x float64) float64 {
	switch t {
	case TypeRectangular:
		return 1
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int) float64 {
	if size <= 1 {
		return 0
	}

	return float64(n) / float64(size-1)
}
