// Package audio holds the sample level helpers shared by the segmenter, the
// translation engines and the CLI client: float32 and PCM16 conversion,
// WAV encoding and level measurement.
package audio
