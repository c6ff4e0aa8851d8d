package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/respeecher/internal/message"
	"github.com/nadzzz/respeecher/internal/metrics"
	"github.com/nadzzz/respeecher/pkg/api"
	"github.com/nadzzz/respeecher/pkg/audio"
	"github.com/nadzzz/respeecher/pkg/resolver"
	"github.com/nadzzz/respeecher/pkg/tts"
	"github.com/nadzzz/respeecher/pkg/tts/respeecher"
)

type fakeSynthesizer struct {
	result *tts.SynthesizeResult
	err    error

	text string
	opts tts.SynthesizeOpts
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.text, f.opts = text, opts
	return f.result, f.err
}

func (f *fakeSynthesizer) Close() error { return nil }

type fakeCatalogue struct {
	voices []api.Voice
	err    error
}

func (f *fakeCatalogue) Voices(context.Context) ([]api.Voice, error) { return f.voices, f.err }

func TestSynthesize_Audio(t *testing.T) {
	synth := &fakeSynthesizer{result: &tts.SynthesizeResult{
		ConversionID: "conv-1",
		URL:          "/media/conv-1",
		Samples:      make([]float32, 8000),
		SampleRate:   16000,
		Polls:        3,
	}}
	m := metrics.New()
	d := New(synth, nil, Defaults{Project: "books", Folder: "ch1", Language: "en"}, m)

	res, err := d.Synthesize(context.Background(), &message.SynthesisRequest{Text: "hello", Voice: "Alice"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.False(t, res.Failed())
	assert.Equal(t, "conv-1", res.ConversionID)
	assert.Equal(t, "audio/wav", res.ContentType)
	assert.Equal(t, 16000, res.SampleRate)
	assert.Equal(t, int64(500), res.DurationMS)
	assert.Equal(t, 3, res.Polls)

	wav, err := res.AudioBytes()
	require.NoError(t, err)
	buf, err := audio.Decode(wav)
	require.NoError(t, err)
	assert.Len(t, buf.Samples, 8000)

	assert.Equal(t, "hello", synth.text)
	assert.Equal(t, tts.SynthesizeOpts{Voice: "Alice", Project: "books", Folder: "ch1", Language: "en"}, synth.opts)
	n, err := testutil.GatherAndCount(m.Registry(), "respeecher_synthesis_requests_total", "respeecher_conversion_polls")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSynthesize_RequestOverridesDefaults(t *testing.T) {
	synth := &fakeSynthesizer{result: &tts.SynthesizeResult{ConversionID: "c", URL: "/media/c"}}
	d := New(synth, nil, Defaults{Project: "books", Folder: "ch1", Language: "en"}, nil)

	res, err := d.Synthesize(context.Background(), &message.SynthesisRequest{
		ID:             "req-1",
		Text:           "hallo",
		Voice:          "Alice",
		NarrationStyle: "calm",
		Project:        "podcasts",
		Folder:         "ep2",
		Language:       "de",
		DirectLink:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, "/media/c", res.URL)
	assert.Empty(t, res.Audio)
	assert.Equal(t, tts.SynthesizeOpts{
		Voice: "Alice", NarrationStyle: "calm", Project: "podcasts", Folder: "ep2", Language: "de", DirectLink: true,
	}, synth.opts)
}

func TestSynthesize_ErrorKinds(t *testing.T) {
	tests := []struct {
		err      error
		wantKind string
	}{
		{respeecher.ErrEmptyText, KindInvalid},
		{respeecher.ErrNoVoice, KindInvalid},
		{&resolver.NotFoundError{Kind: "voice", Name: "Bob"}, KindNotFound},
		{&respeecher.ConversionError{ConversionID: "c", Message: "boom"}, KindConversion},
		{&respeecher.TimeoutError{ConversionID: "c", Timeout: time.Minute}, KindTimeout},
		{fmt.Errorf("placing order: %w", &api.HTTPError{StatusCode: 500}), KindBackend},
	}
	for _, tt := range tests {
		t.Run(tt.wantKind+" "+tt.err.Error(), func(t *testing.T) {
			m := metrics.New()
			d := New(&fakeSynthesizer{err: tt.err}, nil, Defaults{}, m)

			res, err := d.Synthesize(context.Background(), &message.SynthesisRequest{Text: "x", Voice: "v"})
			require.NoError(t, err)
			assert.True(t, res.Failed())
			assert.Equal(t, tt.wantKind, res.ErrorKind)
			assert.Contains(t, res.Error, tt.err.Error())

			n, err := testutil.GatherAndCount(m.Registry(), "respeecher_synthesis_requests_total")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestVoices(t *testing.T) {
	cat := &fakeCatalogue{voices: []api.Voice{{
		ID:   "v1",
		Name: "Alice",
		NarrationStyles: []api.NarrationStyle{
			{ID: "s1", Name: "calm"},
			{ID: "s2", Name: "neutral", IsDefault: true},
		},
	}}}
	d := New(&fakeSynthesizer{}, cat, Defaults{}, nil)

	voices, err := d.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Alice", voices[0].Name)
	assert.Equal(t, []message.StyleInfo{
		{ID: "s1", Name: "calm"},
		{ID: "s2", Name: "neutral", IsDefault: true},
	}, voices[0].NarrationStyles)
}

func TestVoices_Errors(t *testing.T) {
	d := New(&fakeSynthesizer{}, nil, Defaults{}, nil)
	_, err := d.Voices(context.Background())
	assert.Error(t, err)

	boom := errors.New("boom")
	d = New(&fakeSynthesizer{}, &fakeCatalogue{err: boom}, Defaults{}, nil)
	_, err = d.Voices(context.Background())
	assert.ErrorIs(t, err, boom)
}
