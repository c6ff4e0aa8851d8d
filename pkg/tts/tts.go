// Package tts defines the interface for text-to-speech synthesis.
//
// A Synthesizer drives one conversion per call: it resolves names, submits
// the text, waits for the backend and returns either the direct link to the
// generated audio or the decoded samples. The daemon transports and the CLI
// only depend on this contract.
package tts

import (
	"context"
	"time"
)

// DefaultLanguage is the text language used when none is given.
const DefaultLanguage = "en"

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice is the exact name of the target voice. Required.
	Voice string

	// NarrationStyle is the exact narration style name. Empty selects the
	// voice's default style.
	NarrationStyle string

	// Project and Folder name where the recordings are stored. Empty selects
	// the library defaults. Both are created when missing.
	Project string
	Folder  string

	// Language is the ISO-639-1 code of the text (e.g., "en", "fr").
	Language string

	// DirectLink returns the URL of the generated audio instead of downloading it.
	DirectLink bool
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize runs one conversion to completion.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// ConversionID is the backend id of the generated recording.
	ConversionID string

	// URL is the domain-relative link to the generated audio. Always set.
	URL string

	// Samples is mono audio in [-1, 1]. Nil when DirectLink was requested.
	Samples []float32

	// SampleRate is the audio sample rate in Hz. Zero when DirectLink was requested.
	SampleRate int

	// Polls is how many status fetches the conversion took.
	Polls int

	// Elapsed is the time spent waiting for the conversion.
	Elapsed time.Duration
}

// HasAudio reports whether decoded samples are present.
func (r *SynthesizeResult) HasAudio() bool {
	return len(r.Samples) > 0
}
