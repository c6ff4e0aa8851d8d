// Package audio turns downloaded recordings into sample buffers and back.
//
// Decoding keeps the native sample rate and downmixes to mono float32 in
// [-1, 1]. WAV (integer PCM only) and MP3 are recognised by their leading bytes.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for data that is neither integer PCM WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const wavFormatPCM = 1

// Buffer is decoded mono audio.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Decode reads WAV or MP3 bytes into a mono Buffer.
func Decode(data []byte) (*Buffer, error) {
	switch {
	case isWAV(data):
		return decodeWAV(data)
	case isMP3(data):
		return decodeMP3(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("decoding wav: invalid file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("decoding wav: unsupported bit depth %d", bitDepth)
	}
	channels := pcm.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	// 8-bit WAV is unsigned; everything wider is signed.
	scale := float32(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(pcm.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(pcm.Data[i*channels+ch]-offset) / scale
		}
		samples[i] = sum / float32(channels)
	}
	return &Buffer{Samples: samples, SampleRate: pcm.Format.SampleRate}, nil
}

func decodeMP3(data []byte) (*Buffer, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decoding mp3: %w", err)
	}

	// go-mp3 always yields interleaved stereo, 16-bit little endian.
	const frameBytes = 4
	frames := len(raw) / frameBytes
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(raw[i*frameBytes:]))
		right := int16(binary.LittleEndian.Uint16(raw[i*frameBytes+2:]))
		samples[i] = (float32(left) + float32(right)) / 2 / 32768
	}
	return &Buffer{Samples: samples, SampleRate: d.SampleRate()}, nil
}
