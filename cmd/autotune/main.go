// Command autotune corrects the pitch of a WAV file offline.
//
// Usage:
//
//	autotune [flags] -i in.wav -o out.wav
//
// Examples:
//
//	autotune -i vocal.wav -o tuned.wav
//	autotune -scale major -key 69 -strength 0.8 -i vocal.wav -o tuned.wav
//	autotune -mode correction -strength 0.5 -i vocal.wav -o soft.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-autotune/engine"
	"github.com/cwbudde/algo-autotune/music"
)

var scales = map[string]music.Scale{
	"chromatic":  music.ScaleChromatic,
	"major":      music.ScaleMajor,
	"minor":      music.ScaleMinor,
	"pentatonic": music.ScalePentatonic,
	"blues":      music.ScaleBlues,
	"dorian":     music.ScaleDorian,
	"mixolydian": music.ScaleMixolydian,
}

var modes = map[string]engine.Mode{
	"correction":   engine.ModePitchCorrection,
	"quantization": engine.ModeQuantization,
	"full":         engine.ModeFullAutotune,
	"bypass":       engine.ModeBypass,
}

func main() {
	in := flag.String("i", "", "input WAV filename")
	out := flag.String("o", "out.wav", "output WAV filename")
	scaleName := flag.String("scale", "chromatic", "target scale (chromatic, major, minor, pentatonic, blues, dorian, mixolydian)")
	key := flag.Int("key", 0, "key center as a MIDI note number, 0 = C-1")
	strength := flag.Float64("strength", 1.0, "correction strength in [0, 1]")
	modeName := flag.String("mode", "full", "processing mode (correction, quantization, full, bypass)")
	bufferSize := flag.Int("buffer", 1024, "processing block size in frames")
	verbose := flag.Bool("v", false, "print per-block pitch estimates")

	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	scale, ok := scales[*scaleName]
	if !ok {
		log.Fatalf("unknown scale %q", *scaleName)
	}

	mode, ok := modes[*modeName]
	if !ok {
		log.Fatalf("unknown mode %q", *modeName)
	}

	if err := run(*in, *out, scale, *key, *strength, mode, *bufferSize, *verbose); err != nil {
		log.Fatalln(err)
	}
}

func run(in, out string, scale music.Scale, key int, strength float64, mode engine.Mode, bufferSize int, verbose bool) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return fmt.Errorf("not a valid WAV file: %s", in)
	}

	format := decoder.Format()

	e, err := engine.New(
		engine.WithSampleRate(float64(format.SampleRate)),
		engine.WithBufferSize(bufferSize),
		engine.WithChannels(format.NumChannels),
		engine.WithScale(scale, key),
		engine.WithCorrectionStrength(strength),
		engine.WithMode(mode),
	)
	if err != nil {
		return err
	}

	of, err := os.Create(out)
	if err != nil {
		return err
	}
	defer of.Close()

	enc := wav.NewEncoder(of, format.SampleRate, 16, format.NumChannels, 1)
	defer enc.Close()

	blockLen := bufferSize * format.NumChannels

	intBuf := &audio.IntBuffer{Data: make([]int, blockLen)}
	input := make([]float64, blockLen)
	output := make([]float64, blockLen)
	outInts := make([]int, blockLen)

	const scale16 = 1 << 15

	block := 0

	for {
		n, err := decoder.PCMBuffer(intBuf)
		if err != nil {
			return err
		}

		if n == 0 {
			break
		}

		if intBuf.SourceBitDepth > 16 {
			return fmt.Errorf("unsupported bit depth: %d", intBuf.SourceBitDepth)
		}

		for i := 0; i < blockLen; i++ {
			if i < n {
				input[i] = float64(intBuf.Data[i]) / scale16
			} else {
				input[i] = 0
			}
		}

		res, err := e.Process(output, input)
		if err != nil {
			return err
		}

		if verbose && res.DetectedPitch > 0 {
			log.Printf("block %d: %.1f Hz -> %.1f Hz (confidence %.2f)", block, res.DetectedPitch, res.CorrectedPitch, res.Confidence)
		}

		for i := 0; i < n; i++ {
			v := output[i] * scale16
			if v > scale16-1 {
				v = scale16 - 1
			} else if v < -scale16 {
				v = -scale16
			}

			outInts[i] = int(v)
		}

		if err := enc.Write(&audio.IntBuffer{
			Format:         format,
			SourceBitDepth: 16,
			Data:           outInts[:n],
		}); err != nil {
			return err
		}

		block++
	}

	m := e.Metrics()
	log.Printf("processed %d frames, average block time %.2f ms", m.FramesProcessed, m.AverageLatencyMS)

	return nil
}
