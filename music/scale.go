package music

// Scale identifies a set of pitch classes relative to a key center.
type Scale int

const (
	ScaleChromatic Scale = iota
	ScaleMajor
	ScaleMinor
	ScalePentatonic
	ScaleBlues
	ScaleDorian
	ScaleMixolydian
	ScaleCustom
)

var scaleIntervals = map[Scale][]int{
	ScaleChromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:      {0, 2, 4, 5, 7, 9, 11},
	ScaleMinor:      {0, 2, 3, 5, 7, 8, 10},
	ScalePentatonic: {0, 2, 4, 7, 9},
	ScaleBlues:      {0, 3, 5, 6, 7, 10},
	ScaleDorian:     {0, 2, 3, 5, 7, 9, 10},
	ScaleMixolydian: {0, 2, 4, 5, 7, 9, 10},
}

// String returns a short name for the scale.
func (s Scale) String() string {
	switch s {
	case ScaleChromatic:
		return "chromatic"
	case ScaleMajor:
		return "major"
	case ScaleMinor:
		return "minor"
	case ScalePentatonic:
		return "pentatonic"
	case ScaleBlues:
		return "blues"
	case ScaleDorian:
		return "dorian"
	case ScaleMixolydian:
		return "mixolydian"
	case ScaleCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// TimeSignature identifies the meter used for timing quantization.
type TimeSignature int

const (
	TimeSignature44 TimeSignature = iota
	TimeSignature34
	TimeSignature24
	TimeSignature68
	TimeSignature128
)

// beatsPerMeasure returns the number of beats in one measure.
func (ts TimeSignature) beatsPerMeasure() float64 {
	switch ts {
	case TimeSignature34:
		return 3
	case TimeSignature24:
		return 2
	case TimeSignature68:
		return 6
	case TimeSignature128:
		return 12
	default:
		return 4
	}
}

// compound reports whether the signature counts eighth-note beats, which
// halves the duration of a beat relative to the quarter-note meters.
func (ts TimeSignature) compound() bool {
	return ts == TimeSignature68 || ts == TimeSignature128
}

// GridResolution selects the rhythmic subdivision for timing quantization.
type GridResolution int

const (
	GridQuarter GridResolution = iota
	GridEighth
	GridSixteenth
	GridTriplet
	GridDotted
)

// gridSamples returns the grid spacing in samples for a beat of the given
// length.
func (g GridResolution) gridSamples(samplesPerBeat float64) float64 {
	switch g {
	case GridEighth:
		return samplesPerBeat / 2
	case GridSixteenth:
		return samplesPerBeat / 4
	case GridTriplet:
		return samplesPerBeat / 3
	case GridDotted:
		return samplesPerBeat * 1.5
	default:
		return samplesPerBeat
	}
}
