package engine

import "github.com/cwbudde/algo-autotune/music"

// Config defines the processing settings of an Engine.
type Config struct {
	SampleRate float64
	BufferSize int
	Channels   int

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

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns sensible defaults for live vocal processing.
func DefaultConfig() Config {
	return Config{
		SampleRate:         44100,
		BufferSize:         1024,
		Channels:           1,
		Mode:               ModePitchCorrection,
		Scale:              music.ScaleChromatic,
		KeyCenter:          0,
		CorrectionStrength: 1,
		QuantizeStrength:   1,
		AttackTime:         0.005,
		ReleaseTime:        0.05,
		Tempo:              120,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBufferSize sets the processing block size in frames.
func WithBufferSize(bufferSize int) Option {
	return func(cfg *Config) {
		if bufferSize > 0 {
			cfg.BufferSize = bufferSize
		}
	}
}

// WithChannels sets the number of interleaved channels.
func WithChannels(channels int) Option {
	return func(cfg *Config) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithMode sets the processing mode.
func WithMode(mode Mode) Option {
	return func(cfg *Config) {
		cfg.Mode = mode
	}
}

// WithScale sets the target scale and its root as a MIDI note number.
func WithScale(scale music.Scale, keyCenter int) Option {
	return func(cfg *Config) {
		cfg.Scale = scale
		if keyCenter >= 0 && keyCenter <= 127 {
			cfg.KeyCenter = keyCenter
		}
	}
}

// WithCorrectionStrength sets the resynthesis strength in [0, 1].
func WithCorrectionStrength(strength float64) Option {
	return func(cfg *Config) {
		if strength >= 0 && strength <= 1 {
			cfg.CorrectionStrength = strength
		}
	}
}

// WithQuantizeStrength sets the pitch quantization strength in [0, 1].
func WithQuantizeStrength(strength float64) Option {
	return func(cfg *Config) {
		if strength >= 0 && strength <= 1 {
			cfg.QuantizeStrength = strength
		}
	}
}

// WithEnvelopeTimes sets the correction envelope attack and release
// times in seconds.
func WithEnvelopeTimes(attack, release float64) Option {
	return func(cfg *Config) {
		if attack > 0 {
			cfg.AttackTime = attack
		}

		if release > 0 {
			cfg.ReleaseTime = release
		}
	}
}

// WithPreserveFormants records the formant preservation flag.
func WithPreserveFormants(enabled bool) Option {
	return func(cfg *Config) {
		cfg.PreserveFormants = enabled
	}
}

// WithTempo sets the tempo in BPM used for timing quantization.
func WithTempo(tempo float64) Option {
	return func(cfg *Config) {
		if tempo > 0 {
			cfg.Tempo = tempo
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
