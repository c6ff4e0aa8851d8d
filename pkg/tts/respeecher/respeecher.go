// Package respeecher implements tts.Synthesizer on top of the Respeecher gateway.
//
// One Synthesize call resolves the project, folder, voice and narration style,
// submits the text as an original recording, orders a single conversion and
// polls the converted recording until it is done, failed, or the timeout is
// exceeded. Nothing is cancelled or rolled back on the backend when a call fails.
package respeecher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nadzzz/respeecher/pkg/api"
	"github.com/nadzzz/respeecher/pkg/audio"
	"github.com/nadzzz/respeecher/pkg/resolver"
	"github.com/nadzzz/respeecher/pkg/tts"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 2 * time.Minute
)

// Config holds the connection and polling settings.
type Config struct {
	APIKey       string        // Required
	Domain       string        // Default api.DefaultDomain
	PollInterval time.Duration // Default DefaultPollInterval
	Timeout      time.Duration // Default DefaultTimeout
	Verbose      bool          // Log style selection and conversion time at info level
}

// Clock is the time source used while polling.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Decoder turns downloaded bytes into samples.
type Decoder func(data []byte) (*audio.Buffer, error)

// Synthesizer implements tts.Synthesizer against one account.
type Synthesizer struct {
	client   *api.Client
	resolver *resolver.Resolver
	user     api.User

	pollInterval time.Duration
	timeout      time.Duration
	verbose      bool

	clock      Clock
	decode     Decoder
	logger     *slog.Logger
	httpClient *http.Client
	pageSize   int
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock replaces the wall clock used for polling.
func WithClock(c Clock) Option {
	return func(s *Synthesizer) {
		s.clock = c
	}
}

// WithDecoder replaces audio.Decode.
func WithDecoder(d Decoder) Option {
	return func(s *Synthesizer) {
		s.decode = d
	}
}

// WithLogger sets the logger for the synthesizer and everything it builds.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = l
	}
}

// WithHTTPClient sets the HTTP client used for every backend call.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Synthesizer) {
		s.httpClient = hc
	}
}

// WithPaginationLimit overrides the page size of list requests.
func WithPaginationLimit(n int) Option {
	return func(s *Synthesizer) {
		s.pageSize = n
	}
}

// New connects to the backend and fetches the user profile once.
func New(ctx context.Context, cfg Config, opts ...Option) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("respeecher API key is required")
	}
	if cfg.PollInterval < 0 || cfg.Timeout < 0 {
		return nil, fmt.Errorf("poll interval and timeout must not be negative")
	}

	s := &Synthesizer{
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		verbose:      cfg.Verbose,
		clock:        clock.New(),
		decode:       audio.Decode,
		logger:       slog.Default(),
	}
	if s.pollInterval == 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.timeout == 0 {
		s.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(s)
	}

	clientOpts := []api.Option{api.WithLogger(s.logger)}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(s.httpClient))
	}
	if s.pageSize > 0 {
		clientOpts = append(clientOpts, api.WithPaginationLimit(s.pageSize))
	}
	s.client = api.New(cfg.Domain, cfg.APIKey, clientOpts...)

	user, err := s.client.UserProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching user profile: %w", err)
	}
	s.user = *user
	s.resolver = resolver.New(s.client, s.user, resolver.WithLogger(s.logger))

	s.logger.Debug("respeecher session ready", "user", user.Username, "domain", s.client.Domain())
	return s, nil
}

// User returns the profile fetched at construction.
func (s *Synthesizer) User() api.User { return s.user }

// Voices returns the voices that can be selected by name.
func (s *Synthesizer) Voices(ctx context.Context) ([]api.Voice, error) {
	return s.resolver.Voices(ctx)
}

// Reset drops every memoized project, folder and voice lookup.
func (s *Synthesizer) Reset() { s.resolver.Reset() }

// Close is a no-op; the HTTP client is shared across calls.
func (s *Synthesizer) Close() error { return nil }

// Synthesize converts text with the given voice. It blocks until the conversion
// is done, failed, or timed out.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if opts.Voice == "" {
		return nil, ErrNoVoice
	}
	language := opts.Language
	if language == "" {
		language = tts.DefaultLanguage
	}

	project, err := s.resolver.Project(ctx, opts.Project)
	if err != nil {
		return nil, err
	}
	folder, err := s.resolver.Folder(ctx, project.ID, opts.Folder)
	if err != nil {
		return nil, err
	}
	sel, err := s.resolver.VoiceAndStyle(ctx, opts.Voice, opts.NarrationStyle)
	if err != nil {
		return nil, err
	}
	s.logf("selected narration style", "voice", opts.Voice,
		"narration_style_id", sel.NarrationStyleID, "narration_style", sel.NarrationStyle.Name)

	original, err := s.client.CreateOriginal(ctx, folder.ID, text, language)
	if err != nil {
		return nil, fmt.Errorf("submitting text: %w", err)
	}
	order, err := s.client.ConversionOrder(ctx, original.ID, sel.VoiceID, sel.NarrationStyleID)
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}

	logger := s.logger.With("conversion_id", order.ConversionID)
	logger.Debug("conversion ordered", "original_id", original.ID, "order_id", order.ID)

	conv, err := s.wait(ctx, order.ConversionID)
	if err != nil {
		return nil, err
	}

	result := &tts.SynthesizeResult{
		ConversionID: order.ConversionID,
		URL:          conv.recording.URLString(),
		Polls:        conv.polls,
		Elapsed:      conv.elapsed,
	}
	if opts.DirectLink {
		return result, nil
	}

	data, err := s.client.DownloadRecording(ctx, result.URL)
	if err != nil {
		return nil, fmt.Errorf("downloading conversion: %w", err)
	}
	buf, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding conversion: %w", err)
	}
	result.Samples = buf.Samples
	result.SampleRate = buf.SampleRate
	logger.Debug("conversion downloaded", "bytes", len(data), "sample_rate", buf.SampleRate)
	return result, nil
}

// logf logs at info level in verbose mode and at debug level otherwise.
func (s *Synthesizer) logf(msg string, args ...any) {
	if s.verbose {
		s.logger.Info(msg, args...)
		return
	}
	s.logger.Debug(msg, args...)
}
