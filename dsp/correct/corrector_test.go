package correct

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func TestNewCorrectorValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		bufferSize int
		wantErr    bool
	}{
		{name: "valid", sampleRate: 44100, bufferSize: 512, wantErr: false},
		{name: "zero sample rate", sampleRate: 0, bufferSize: 512, wantErr: true},
		{name: "buffer too small", sampleRate: 44100, bufferSize: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCorrector(tt.sampleRate, tt.bufferSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCorrector() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && c == nil {
				t.Fatal("NewCorrector() returned nil without error")
			}
		})
	}
}

func TestProcessLengthMismatch(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	_, _, err = c.Process(make([]float64, 128), make([]float64, 256), 440, 440, 1)
	if err == nil {
		t.Fatal("Process() should fail on mismatched lengths")
	}
}

func TestProcessPassthroughBranches(t *testing.T) {
	tests := []struct {
		name        string
		inputPitch  float64
		targetPitch float64
		strength    float64
	}{
		{name: "unvoiced input", inputPitch: 0, targetPitch: 440, strength: 1},
		{name: "negative input pitch", inputPitch: -10, targetPitch: 440, strength: 1},
		{name: "no target", inputPitch: 440, targetPitch: 0, strength: 1},
		{name: "zero strength", inputPitch: 450, targetPitch: 440, strength: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCorrector(44100, 256)
			if err != nil {
				t.Fatalf("NewCorrector() error = %v", err)
			}

			input := testutil.DeterministicSine(440, 44100, 0.5, 256)
			output := make([]float64, 256)

			conf, latency, err := c.Process(output, input, tt.inputPitch, tt.targetPitch, tt.strength)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}

			if conf != 0 {
				t.Fatalf("confidence = %v, want 0 for passthrough", conf)
			}

			if latency != 0 {
				t.Fatalf("latency = %d, want 0 for passthrough", latency)
			}

			for i := range input {
				if output[i] != input[i] {
					t.Fatalf("output[%d] = %v, want %v", i, output[i], input[i])
				}
			}
		})
	}
}

func TestProcessShiftedReportsConfidenceAndLatency(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	input := testutil.DeterministicSine(450, 44100, 0.5, 256)
	output := make([]float64, 256)

	conf, latency, err := c.Process(output, input, 450, 440, 1)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if conf != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", conf)
	}

	if latency != c.Latency() {
		t.Fatalf("latency = %d, want %d", latency, c.Latency())
	}

	if c.Latency() != 128 {
		t.Fatalf("Latency() = %d, want half the buffer size", c.Latency())
	}
}

func TestUnityRatioResamplesAtInputRate(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	input := testutil.DC(0.5, 256)
	output := make([]float64, 256)

	// Saturate the envelope first so shape tracking settles.
	for b := 0; b < 20; b++ {
		if _, _, err := c.Process(output, input, 440, 440, 1); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	// With the ratio at one the accumulator steps a sample per sample and
	// the settled envelope reproduces the constant level.
	for i, v := range output {
		if math.Abs(v-0.25) > 0.01 {
			t.Fatalf("output[%d] = %v, want near 0.25", i, v)
		}
	}
}

func TestRatioClamped(t *testing.T) {
	c, err := NewCorrector(44100, 8)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	input := testutil.DC(1, 8)
	output := make([]float64, 8)

	// A ten-octave upward target clamps the ratio at two, so the phase
	// wraps back to zero at n/2 and the read index never escapes range.
	if _, _, err := c.Process(output, input, 55, 56320, 1); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	testutil.RequireFinite(t, output)
}

func TestShiftedOutputStaysBounded(t *testing.T) {
	const (
		sampleRate = 44100.0
		bufferSize = 256
	)

	c, err := NewCorrector(sampleRate, bufferSize)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	signal := testutil.DeterministicSine(460, sampleRate, 0.9, 40*bufferSize)
	output := make([]float64, bufferSize)

	for b := 0; b < 40; b++ {
		block := signal[b*bufferSize : (b+1)*bufferSize]

		if _, _, err := c.Process(output, block, 460, 440, 1); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		testutil.RequireFinite(t, output)

		for i, v := range output {
			if math.Abs(v) > 1 {
				t.Fatalf("block %d output[%d] = %v exceeds input peak", b, i, v)
			}
		}
	}
}

func TestSetEnvelopeTimesValidation(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	if err := c.SetAttackTime(0.01); err != nil {
		t.Fatalf("SetAttackTime(0.01) error = %v", err)
	}

	if c.AttackTime() != 0.01 {
		t.Fatalf("AttackTime() = %v, want 0.01", c.AttackTime())
	}

	if err := c.SetAttackTime(0); err == nil {
		t.Fatal("SetAttackTime(0) should return an error")
	}

	if err := c.SetReleaseTime(0.1); err != nil {
		t.Fatalf("SetReleaseTime(0.1) error = %v", err)
	}

	if c.ReleaseTime() != 0.1 {
		t.Fatalf("ReleaseTime() = %v, want 0.1", c.ReleaseTime())
	}

	if err := c.SetReleaseTime(-1); err == nil {
		t.Fatal("SetReleaseTime(-1) should return an error")
	}
}

func TestPreserveFormantsFlag(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	if c.PreserveFormants() {
		t.Fatal("PreserveFormants() = true by default, want false")
	}

	c.SetPreserveFormants(true)

	if !c.PreserveFormants() {
		t.Fatal("PreserveFormants() = false after enabling, want true")
	}
}

func TestResetClearsEnvelope(t *testing.T) {
	c, err := NewCorrector(44100, 256)
	if err != nil {
		t.Fatalf("NewCorrector() error = %v", err)
	}

	input := testutil.DeterministicSine(450, 44100, 0.9, 256)
	output := make([]float64, 256)

	if _, _, err := c.Process(output, input, 450, 440, 1); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	c.Reset()

	// After Reset the envelope is zero, so a DC block starts from silence
	// and only climbs toward the input level.
	if _, _, err := c.Process(output, testutil.DC(1, 256), 450, 440, 1); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if output[0] >= output[255] {
		t.Fatalf("envelope did not rise from reset: output[0] = %v, output[255] = %v", output[0], output[255])
	}

	if output[0] > 0.5 {
		t.Fatalf("output[0] = %v right after Reset, want a small value", output[0])
	}
}
