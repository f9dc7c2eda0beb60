// Package music provides musical scale quantization: mapping detected
// pitches to the nearest note of a scale and snapping event times to a
// rhythmic grid derived from tempo and time signature.
package music
