package engine

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/correct"
	"github.com/cwbudde/algo-autotune/dsp/pitch"
	"github.com/cwbudde/algo-autotune/dsp/ring"
	"github.com/cwbudde/algo-autotune/music"
)

const (
	minBufferSize = 64
	maxBufferSize = 4096

	metricsHistorySize = 100

	// Staged processing keeps a few blocks of headroom on each side.
	ringBlocks = 4
)

// Mode selects how a processed block is corrected.
type Mode int

const (
	// ModePitchCorrection resynthesizes each block at the detected pitch,
	// stabilizing it without quantization.
	ModePitchCorrection Mode = iota

	// ModeQuantization reports the quantized pitch for each block while
	// passing the audio through untouched.
	ModeQuantization

	// ModeFullAutotune quantizes the detected pitch to the scale and
	// resynthesizes toward it.
	ModeFullAutotune

	// ModeBypass passes audio through untouched.
	ModeBypass
)

// String returns a short name for the mode.
func (m Mode) String() string {
	switch m {
	case ModePitchCorrection:
		return "pitch-correction"
	case ModeQuantization:
		return "quantization"
	case ModeFullAutotune:
		return "full-autotune"
	case ModeBypass:
		return "bypass"
	default:
		return "unknown"
	}
}

// Result reports what happened to one processed block.
type Result struct {
	Success        bool
	DetectedPitch  float64
	CorrectedPitch float64
	Confidence     float64
	LatencySamples int
}

// PerformanceMetrics summarizes recent processing cost.
type PerformanceMetrics struct {
	AverageLatencyMS float64
	CPUUsagePercent  float64
	FramesProcessed  uint64
	BufferUnderruns  uint64
}

// Parameters bundles the tuning settings of an Engine for bulk access.
type Parameters struct {
	Mode      Mode
	Scale     music.Scale
	KeyCenter int

	CorrectionStrength float64
	QuantizeStrength   float64

	AttackTime       float64
	ReleaseTime      float64
	PreserveFormants bool

	Tempo float64
}

// Engine is the top-level processing chain. It is not safe for concurrent
// use; drive it from a single goroutine.
type Engine struct {
	cfg Config

	detector  *pitch.Detector
	corrector *correct.Corrector
	quantizer *music.Quantizer

	input  *ring.Buffer
	output *ring.Buffer

	mono      []float64
	corrected []float64
	staged    []float64

	framesProcessed uint64
	timingHistory   []float64
	cpuLoad         float64

	runner      ModelRunner
	modelLoaded bool
	mlEnabled   bool
}

// New constructs an Engine from the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := ApplyOptions(opts...)

	if cfg.BufferSize < minBufferSize || cfg.BufferSize > maxBufferSize {
		return nil, fmt.Errorf("buffer size must be in [%d, %d]: %d", minBufferSize, maxBufferSize, cfg.BufferSize)
	}

	detector, err := pitch.NewDetector(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}

	corrector, err := correct.NewCorrector(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("creating corrector: %w", err)
	}

	if err := corrector.SetAttackTime(cfg.AttackTime); err != nil {
		return nil, err
	}

	if err := corrector.SetReleaseTime(cfg.ReleaseTime); err != nil {
		return nil, err
	}

	corrector.SetPreserveFormants(cfg.PreserveFormants)

	quantizer, err := music.NewQuantizer(cfg.SampleRate, cfg.Tempo)
	if err != nil {
		return nil, fmt.Errorf("creating quantizer: %w", err)
	}

	input, err := ring.New(ringBlocks*cfg.BufferSize, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("creating input buffer: %w", err)
	}

	output, err := ring.New(ringBlocks*cfg.BufferSize, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("creating output buffer: %w", err)
	}

	return &Engine{
		cfg:           cfg,
		detector:      detector,
		corrector:     corrector,
		quantizer:     quantizer,
		input:         input,
		output:        output,
		mono:          make([]float64, cfg.BufferSize),
		corrected:     make([]float64, cfg.BufferSize),
		staged:        make([]float64, cfg.BufferSize*cfg.Channels),
		timingHistory: make([]float64, 0, metricsHistorySize),
	}, nil
}

// RecommendedBufferSize returns a block size suited to the sample rate.
func RecommendedBufferSize(sampleRate float64) int {
	switch {
	case sampleRate <= 22050:
		return 128
	case sampleRate <= 44100:
		return 256
	case sampleRate <= 48000:
		return 512
	case sampleRate <= 96000:
		return 1024
	default:
		return 2048
	}
}

// Process runs one block through the chain. Both slices must hold the
// same number of interleaved frames, at most BufferSize of them. On
// error the output is left untouched.
func (e *Engine) Process(output, input []float64) (Result, error) {
	ch := e.cfg.Channels

	if len(input) == 0 || len(input)%ch != 0 || len(input)/ch > e.cfg.BufferSize {
		return Result{}, fmt.Errorf("input length must be a multiple of %d up to %d: %d", ch, e.cfg.BufferSize*ch, len(input))
	}

	if len(output) != len(input) {
		return Result{}, fmt.Errorf("output length must be %d: %d", len(input), len(output))
	}

	start := time.Now()

	res := Result{Success: true}

	if e.cfg.Mode == ModeBypass {
		copy(output, input)
	} else {
		res = e.processBlock(output, input)
	}

	e.framesProcessed += uint64(e.cfg.BufferSize)
	e.recordTiming(time.Since(start))

	return res, nil
}

// ProcessFrame runs a single interleaved frame through the chain.
func (e *Engine) ProcessFrame(output, input []float64) (Result, error) {
	ch := e.cfg.Channels

	if len(input) != ch || len(output) != ch {
		return Result{}, fmt.Errorf("frame length must be %d: %d in, %d out", ch, len(input), len(output))
	}

	return e.Process(output, input)
}

// processBlock downmixes the block to mono, corrects it, and broadcasts
// the corrected signal to every output channel.
func (e *Engine) processBlock(output, input []float64) Result {
	ch := e.cfg.Channels
	n := len(input) / ch

	mono := e.mono[:n]
	for i := 0; i < n; i++ {
		if ch == 1 {
			mono[i] = input[i]
		} else {
			mono[i] = 0.5 * (input[i*ch] + input[i*ch+1])
		}
	}

	est, err := e.detector.Detect(mono)
	if err != nil || est.Frequency <= 0 {
		copy(output, input)
		return Result{Success: true}
	}

	res := Result{Success: true, DetectedPitch: est.Frequency}

	if e.cfg.Mode == ModeQuantization {
		res.CorrectedPitch = e.quantizer.QuantizePitch(est.Frequency, e.cfg.Scale, e.cfg.KeyCenter, e.cfg.QuantizeStrength)
		res.Confidence = est.Confidence

		copy(output, input)

		return res
	}

	target := est.Frequency
	if e.cfg.Mode == ModeFullAutotune {
		target = e.quantizer.QuantizePitch(est.Frequency, e.cfg.Scale, e.cfg.KeyCenter, e.cfg.QuantizeStrength)
	}

	corrected := e.corrected[:n]

	confidence, latency, err := e.corrector.Process(corrected, mono, est.Frequency, target, e.cfg.CorrectionStrength)
	if err != nil {
		copy(corrected, mono)
		confidence, latency = 0, 0
	}

	if e.mlEnabled && e.runner != nil {
		first := corrected[0]
		if _, err := e.runner.Run(mono[:1], corrected[:1], target, e.cfg.CorrectionStrength); err != nil {
			corrected[0] = first
		}
	}

	for i, v := range corrected {
		for c := 0; c < ch; c++ {
			output[i*ch+c] = v
		}
	}

	res.CorrectedPitch = target
	res.Confidence = confidence
	res.LatencySamples = latency

	return res
}

// WriteInput stages interleaved frames for later processing and returns
// the number of frames accepted.
func (e *Engine) WriteInput(frames []float64) int {
	return e.input.Write(frames)
}

// ProcessBuffered processes one staged block if a full block of input is
// available and the output buffer has room for it. It reports whether a
// block was processed.
func (e *Engine) ProcessBuffered() (Result, bool, error) {
	if e.input.Available() < e.cfg.BufferSize || e.output.Space() < e.cfg.BufferSize {
		return Result{}, false, nil
	}

	e.input.Read(e.staged)

	res, err := e.Process(e.staged, e.staged)
	if err != nil {
		return Result{}, false, err
	}

	e.output.Write(e.staged)

	return res, true, nil
}

// ReadOutput drains processed frames into dst and returns the number of
// frames copied.
func (e *Engine) ReadOutput(dst []float64) int {
	return e.output.Read(dst)
}

// ConfigureFeatures derives the processing mode from feature switches
// and records the formant preservation flag.
func (e *Engine) ConfigureFeatures(correction, quantization, formants bool) {
	switch {
	case correction && quantization:
		e.cfg.Mode = ModeFullAutotune
	case correction:
		e.cfg.Mode = ModePitchCorrection
	case quantization:
		e.cfg.Mode = ModeQuantization
	default:
		e.cfg.Mode = ModeBypass
	}

	e.cfg.PreserveFormants = formants
	e.corrector.SetPreserveFormants(formants)
}

// SetMode switches the processing mode.
func (e *Engine) SetMode(mode Mode) {
	e.cfg.Mode = mode
}

// SetScale updates the target scale.
func (e *Engine) SetScale(scale music.Scale) {
	e.cfg.Scale = scale
}

// SetKeyCenter updates the scale root as a MIDI note number.
func (e *Engine) SetKeyCenter(keyCenter int) error {
	if keyCenter < 0 || keyCenter > 127 {
		return fmt.Errorf("key center must be in [0, 127]: %d", keyCenter)
	}

	e.cfg.KeyCenter = keyCenter

	return nil
}

// SetCustomScale installs the pitch classes used with music.ScaleCustom.
func (e *Engine) SetCustomScale(degrees []int) {
	e.quantizer.SetCustomScale(degrees)
}

// SetCorrectionStrength updates the resynthesis strength in [0, 1].
func (e *Engine) SetCorrectionStrength(strength float64) error {
	if strength < 0 || strength > 1 {
		return fmt.Errorf("correction strength must be in [0, 1]: %f", strength)
	}

	e.cfg.CorrectionStrength = strength

	return nil
}

// SetQuantizeStrength updates the pitch quantization strength in [0, 1].
func (e *Engine) SetQuantizeStrength(strength float64) error {
	if strength < 0 || strength > 1 {
		return fmt.Errorf("quantize strength must be in [0, 1]: %f", strength)
	}

	e.cfg.QuantizeStrength = strength

	return nil
}

// SetTempo updates the tempo used for timing quantization.
func (e *Engine) SetTempo(tempo float64) {
	e.quantizer.SetTempo(tempo)
}

// SetFrequencyRange updates the detector's search range in Hz.
func (e *Engine) SetFrequencyRange(minHz, maxHz float64) error {
	return e.detector.SetFrequencyRange(minHz, maxHz)
}

// SetAttackTime updates the correction envelope attack time in seconds.
func (e *Engine) SetAttackTime(seconds float64) error {
	if err := e.corrector.SetAttackTime(seconds); err != nil {
		return err
	}

	e.cfg.AttackTime = seconds

	return nil
}

// SetReleaseTime updates the correction envelope release time in seconds.
func (e *Engine) SetReleaseTime(seconds float64) error {
	if err := e.corrector.SetReleaseTime(seconds); err != nil {
		return err
	}

	e.cfg.ReleaseTime = seconds

	return nil
}

// SetPreserveFormants records the formant preservation flag.
func (e *Engine) SetPreserveFormants(enabled bool) {
	e.cfg.PreserveFormants = enabled
	e.corrector.SetPreserveFormants(enabled)
}

// Parameters returns the current tuning settings.
func (e *Engine) Parameters() Parameters {
	return Parameters{
		Mode:               e.cfg.Mode,
		Scale:              e.cfg.Scale,
		KeyCenter:          e.cfg.KeyCenter,
		CorrectionStrength: e.cfg.CorrectionStrength,
		QuantizeStrength:   e.cfg.QuantizeStrength,
		AttackTime:         e.cfg.AttackTime,
		ReleaseTime:        e.cfg.ReleaseTime,
		PreserveFormants:   e.cfg.PreserveFormants,
		Tempo:              e.quantizer.Tempo(),
	}
}

// SetParameters applies a full set of tuning settings. An out-of-range
// key center or strength is clamped rather than rejected, and the tempo
// is clamped to [60, 200] BPM. Non-positive attack, release, and tempo
// values leave the current settings in place.
func (e *Engine) SetParameters(p Parameters) {
	e.cfg.Mode = p.Mode
	e.cfg.Scale = p.Scale

	e.cfg.KeyCenter = clampInt(p.KeyCenter, 0, 127)
	e.cfg.CorrectionStrength = core.Clamp(p.CorrectionStrength, 0, 1)
	e.cfg.QuantizeStrength = core.Clamp(p.QuantizeStrength, 0, 1)

	if p.AttackTime > 0 {
		e.cfg.AttackTime = p.AttackTime
		e.corrector.SetAttackTime(p.AttackTime)
	}

	if p.ReleaseTime > 0 {
		e.cfg.ReleaseTime = p.ReleaseTime
		e.corrector.SetReleaseTime(p.ReleaseTime)
	}

	e.cfg.PreserveFormants = p.PreserveFormants
	e.corrector.SetPreserveFormants(p.PreserveFormants)

	if p.Tempo > 0 {
		e.quantizer.SetTempo(p.Tempo)
	}
}

// Reset clears all processing state, staged audio, and metrics.
func (e *Engine) Reset() {
	e.detector.Reset()
	e.corrector.Reset()
	e.quantizer.Reset()
	e.input.Clear()
	e.output.Clear()

	e.framesProcessed = 0
	e.timingHistory = e.timingHistory[:0]
	e.cpuLoad = 0
}

// IsInitialized reports whether the processing chain is ready.
func (e *Engine) IsInitialized() bool {
	return e != nil && e.detector != nil && e.corrector != nil
}

// Mode returns the current processing mode.
func (e *Engine) Mode() Mode {
	return e.cfg.Mode
}

// Scale returns the current target scale.
func (e *Engine) Scale() music.Scale {
	return e.cfg.Scale
}

// KeyCenter returns the current scale root as a MIDI note number.
func (e *Engine) KeyCenter() int {
	return e.cfg.KeyCenter
}

// CorrectionStrength returns the current resynthesis strength.
func (e *Engine) CorrectionStrength() float64 {
	return e.cfg.CorrectionStrength
}

// QuantizeStrength returns the current pitch quantization strength.
func (e *Engine) QuantizeStrength() float64 {
	return e.cfg.QuantizeStrength
}

// SampleRate returns the processing sample rate in Hz.
func (e *Engine) SampleRate() float64 {
	return e.cfg.SampleRate
}

// BufferSize returns the block size in frames.
func (e *Engine) BufferSize() int {
	return e.cfg.BufferSize
}

// Channels returns the number of interleaved channels.
func (e *Engine) Channels() int {
	return e.cfg.Channels
}

// FramesProcessed returns the frame counter, which advances by BufferSize
// on every Process call whatever the length of the block.
func (e *Engine) FramesProcessed() uint64 {
	return e.framesProcessed
}

// Metrics summarizes processing cost over the most recent blocks.
// Underruns are tracked by the caller's audio layer, so the count here
// stays zero.
func (e *Engine) Metrics() PerformanceMetrics {
	var avg float64

	if len(e.timingHistory) > 0 {
		sum := 0.0
		for _, ms := range e.timingHistory {
			sum += ms
		}

		avg = sum / float64(len(e.timingHistory))
	}

	return PerformanceMetrics{
		AverageLatencyMS: avg,
		CPUUsagePercent:  e.cpuLoad,
		FramesProcessed:  e.framesProcessed,
	}
}

// CPULoad returns the fraction of the block duration spent processing
// the most recent block, as a percentage.
func (e *Engine) CPULoad() float64 {
	return e.cpuLoad
}

func (e *Engine) recordTiming(elapsed time.Duration) {
	ms := float64(elapsed.Nanoseconds()) / 1e6

	if len(e.timingHistory) == metricsHistorySize {
		copy(e.timingHistory, e.timingHistory[1:])
		e.timingHistory = e.timingHistory[:metricsHistorySize-1]
	}

	e.timingHistory = append(e.timingHistory, ms)

	blockDuration := 1000 * float64(e.cfg.BufferSize) / e.cfg.SampleRate
	e.cpuLoad = 100 * ms / blockDuration
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
