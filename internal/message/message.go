// Package message defines the request and result types shared by the transports.
package message

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// SynthesisRequest asks for one text to be converted with a named voice.
type SynthesisRequest struct {
	// ID is a unique identifier for this request (UUID). Assigned on receipt if empty.
	ID string `json:"id"`

	// Source identifies the caller (e.g., "audiobook-worker", "cli").
	Source string `json:"source,omitempty"`

	// Text is the text to synthesize.
	Text string `json:"text"`

	// Voice is the exact voice name as listed in the catalogue.
	Voice string `json:"voice"`

	// NarrationStyle is the exact style name; empty picks the voice's default style.
	NarrationStyle string `json:"narration_style,omitempty"`

	// Project and Folder override the configured project and folder names.
	Project string `json:"project,omitempty"`
	Folder  string `json:"folder,omitempty"`

	// Language is the ISO-639-1 code of Text. Defaults to the configured language.
	Language string `json:"language,omitempty"`

	// DirectLink returns the recording URL instead of audio.
	DirectLink bool `json:"direct_link,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// Normalize fills in the id and timestamp of a freshly received request.
func (r *SynthesisRequest) Normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
}

// SynthesisResult is the outcome of a SynthesisRequest.
type SynthesisResult struct {
	// RequestID is the original request ID.
	RequestID string `json:"request_id"`

	// ConversionID identifies the converted recording on the backend.
	ConversionID string `json:"conversion_id,omitempty"`

	// URL is the recording location relative to the backend domain.
	URL string `json:"url,omitempty"`

	// Audio is a base64-encoded 16-bit mono WAV. Empty for direct-link requests.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio.
	ContentType string `json:"content_type,omitempty"`

	// SampleRate and DurationMS describe the decoded audio.
	SampleRate int   `json:"sample_rate,omitempty"`
	DurationMS int64 `json:"duration_ms,omitempty"`

	// Polls is how many times the conversion status was fetched.
	Polls int `json:"polls,omitempty"`

	// ErrorKind classifies Error: "invalid", "not_found", "conversion", "timeout" or "backend".
	ErrorKind string `json:"error_kind,omitempty"`

	// Error is set if synthesis failed at any stage.
	Error string `json:"error,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *SynthesisResult) SetAudioBytes(audio []byte, contentType string) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
		r.ContentType = contentType
	}
}

// AudioBytes decodes Audio.
func (r *SynthesisResult) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// Failed reports whether the result carries an error.
func (r *SynthesisResult) Failed() bool {
	return r.Error != ""
}

// VoiceInfo is one catalogue entry as exposed by the transports.
type VoiceInfo struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	NarrationStyles []StyleInfo `json:"narration_styles"`
}

// StyleInfo is one narration style of a VoiceInfo.
type StyleInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}
