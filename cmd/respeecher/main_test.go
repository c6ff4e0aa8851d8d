package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/respeecher/pkg/api"
	"github.com/nadzzz/respeecher/pkg/api/apitest"
	"github.com/nadzzz/respeecher/pkg/audio"
)

func backend(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer(t)
	srv.Voices = []api.Voice{{
		ID:   "voice-alice",
		Name: "Alice",
		NarrationStyles: []api.NarrationStyle{
			{ID: "style-neutral", IsDefault: true, Tags: []api.NarrationStyleTag{{Name: "neutral"}}},
		},
	}}
	srv.Audio = audio.EncodeWAV(&audio.Buffer{Samples: make([]float32, 1600), SampleRate: 16000})

	t.Setenv("RESPEECHER_API_KEY", apitest.APIKey)
	t.Setenv("RESPEECHER_RESPEECHER_DOMAIN", srv.URL)
	t.Setenv("RESPEECHER_RESPEECHER_POLL_INTERVAL", "1ms")
	t.Setenv("RESPEECHER_LOGGING_LEVEL", "error")
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		synthesizeFlags = synthesizeOptions{}
		voicesJSON = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSynthesizeCommand_PrintsURL(t *testing.T) {
	srv := backend(t)

	out, err := run(t, "synthesize", "--voice", "Alice", "Hello", "there")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, srv.URL+"/media/"), out)

	_, text, lang := srv.LastOriginal()
	assert.Equal(t, "Hello there", text)
	assert.Equal(t, "en", lang)
	assert.Equal(t, 0, srv.Calls("GET /media/{id}"))
}

func TestSynthesizeCommand_WritesWAV(t *testing.T) {
	srv := backend(t)
	path := filepath.Join(t.TempDir(), "out.wav")

	out, err := run(t, "synthesize", "--voice", "Alice", "--language", "fr", "-o", path, "Bonjour")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	buf, err := audio.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 16000, buf.SampleRate)
	assert.Len(t, buf.Samples, 1600)

	_, _, lang := srv.LastOriginal()
	assert.Equal(t, "fr", lang)
}

func TestSynthesizeCommand_UnknownVoice(t *testing.T) {
	backend(t)
	_, err := run(t, "synthesize", "--voice", "Bob", "Hello")
	assert.ErrorContains(t, err, `voice "Bob" not found`)
}

func TestVoicesCommand(t *testing.T) {
	backend(t)

	out, err := run(t, "voices")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "neutral (default)")
}

func TestReadText(t *testing.T) {
	text, err := readText(strings.NewReader("  from stdin\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	text, err = readText(nil, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a b", text)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}
