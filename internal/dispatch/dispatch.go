// Package dispatch turns transport requests into synthesis calls.
//
// The dispatcher fills in configured defaults, runs the request through a
// tts.Synthesizer, encodes decoded audio as WAV and records metrics. The
// caller always receives a result; synthesis failures travel in its Error
// field rather than as a transport error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/respeecher/internal/message"
	"github.com/nadzzz/respeecher/internal/metrics"
	"github.com/nadzzz/respeecher/internal/transport"
	"github.com/nadzzz/respeecher/pkg/api"
	"github.com/nadzzz/respeecher/pkg/audio"
	"github.com/nadzzz/respeecher/pkg/resolver"
	"github.com/nadzzz/respeecher/pkg/tts"
	"github.com/nadzzz/respeecher/pkg/tts/respeecher"
)

// Error kinds reported in message.SynthesisResult.ErrorKind.
const (
	KindInvalid    = "invalid"
	KindNotFound   = "not_found"
	KindConversion = "conversion"
	KindTimeout    = "timeout"
	KindBackend    = "backend"
)

// Catalogue lists the voices a synthesizer can use.
type Catalogue interface {
	Voices(ctx context.Context) ([]api.Voice, error)
}

// Defaults apply to requests that leave the field empty.
type Defaults struct {
	Project  string
	Folder   string
	Language string
}

// Dispatcher is the central request handler.
type Dispatcher struct {
	synthesizer tts.Synthesizer
	catalogue   Catalogue
	defaults    Defaults
	metrics     *metrics.Metrics // nil disables metrics
}

var _ transport.Handler = (*Dispatcher)(nil)

// New creates a Dispatcher. catalogue and m may be nil.
func New(synthesizer tts.Synthesizer, catalogue Catalogue, defaults Defaults, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		synthesizer: synthesizer,
		catalogue:   catalogue,
		defaults:    defaults,
		metrics:     m,
	}
}

// Synthesize processes a single request through the full pipeline.
func (d *Dispatcher) Synthesize(ctx context.Context, req *message.SynthesisRequest) (*message.SynthesisResult, error) {
	start := time.Now()
	req.Normalize()
	logger := slog.With("request_id", req.ID, "source", req.Source)
	logger.Info("synthesis started", "voice", req.Voice, "text_length", len(req.Text), "direct_link", req.DirectLink)

	result := &message.SynthesisResult{RequestID: req.ID}

	res, err := d.synthesizer.Synthesize(ctx, req.Text, d.opts(req))
	if err != nil {
		result.ErrorKind = classify(err)
		result.Error = fmt.Sprintf("synthesis failed: %v", err)
		logger.Error("synthesis failed", "kind", result.ErrorKind, "error", err)
		d.observe(result.ErrorKind, time.Since(start), 0)
		return result, nil
	}

	result.ConversionID = res.ConversionID
	result.URL = res.URL
	result.Polls = res.Polls

	if res.HasAudio() {
		buf := &audio.Buffer{Samples: res.Samples, SampleRate: res.SampleRate}
		result.SetAudioBytes(audio.EncodeWAV(buf), "audio/wav")
		result.SampleRate = res.SampleRate
		result.DurationMS = buf.Duration().Milliseconds()
	}

	d.observe("", time.Since(start), res.Polls)
	logger.Info("synthesis complete", "conversion_id", res.ConversionID,
		"polls", res.Polls, "duration", time.Since(start))
	return result, nil
}

// Voices lists the selectable voices with their narration styles.
func (d *Dispatcher) Voices(ctx context.Context) ([]message.VoiceInfo, error) {
	if d.catalogue == nil {
		return nil, errors.New("voice catalogue not available")
	}
	voices, err := d.catalogue.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}

	out := make([]message.VoiceInfo, 0, len(voices))
	for _, v := range voices {
		info := message.VoiceInfo{ID: v.ID, Name: v.Name}
		for _, ns := range v.NarrationStyles {
			info.NarrationStyles = append(info.NarrationStyles, message.StyleInfo{
				ID:        ns.ID,
				Name:      ns.Name,
				IsDefault: ns.IsDefault,
			})
		}
		out = append(out, info)
	}
	return out, nil
}

func (d *Dispatcher) opts(req *message.SynthesisRequest) tts.SynthesizeOpts {
	opts := tts.SynthesizeOpts{
		Voice:          req.Voice,
		NarrationStyle: req.NarrationStyle,
		Project:        req.Project,
		Folder:         req.Folder,
		Language:       req.Language,
		DirectLink:     req.DirectLink,
	}
	if opts.Project == "" {
		opts.Project = d.defaults.Project
	}
	if opts.Folder == "" {
		opts.Folder = d.defaults.Folder
	}
	if opts.Language == "" {
		opts.Language = d.defaults.Language
	}
	return opts
}

func (d *Dispatcher) observe(kind string, elapsed time.Duration, polls int) {
	if d.metrics == nil {
		return
	}
	status := metrics.StatusDone
	switch kind {
	case "":
	case KindConversion:
		status = metrics.StatusError
	case KindTimeout:
		status = metrics.StatusTimeout
	default:
		status = metrics.StatusFailed
	}
	d.metrics.Observe(status, elapsed, polls)
}

// classify maps a synthesis error onto one of the Kind constants.
func classify(err error) string {
	switch {
	case errors.Is(err, respeecher.ErrEmptyText), errors.Is(err, respeecher.ErrNoVoice):
		return KindInvalid
	case errors.Is(err, resolver.ErrNotFound):
		return KindNotFound
	case errors.Is(err, respeecher.ErrConversionFailed):
		return KindConversion
	case errors.Is(err, respeecher.ErrTimeout):
		return KindTimeout
	default:
		return KindBackend
	}
}
