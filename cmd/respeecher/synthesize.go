package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/respeecher/pkg/audio"
	"github.com/nadzzz/respeecher/pkg/tts"
)

type synthesizeOptions struct {
	voice    string
	style    string
	project  string
	folder   string
	language string
	output   string
}

var synthesizeFlags synthesizeOptions

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize [text...]",
	Short: "Convert text to speech with a Respeecher voice",
	Long: `Synthesize submits the text, orders one conversion and waits for it.

Without --output the recording URL is printed. With --output the recording is
downloaded, decoded and written as a 16-bit mono WAV file. Pass "-" as the only
argument to read the text from stdin.`,
	Example: `  respeecher synthesize --voice Alice "Hello there"
  respeecher synthesize --voice Alice --style calm -o hello.wav "Hello there"
  echo "Bonjour" | respeecher synthesize --voice Alice --language fr -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSynthesize,
}

func init() {
	f := synthesizeCmd.Flags()
	f.StringVar(&synthesizeFlags.voice, "voice", "", "voice name (exact match, required)")
	f.StringVar(&synthesizeFlags.style, "style", "", "narration style name (default: the voice's default style)")
	f.StringVar(&synthesizeFlags.project, "project", "", "project name (default from config)")
	f.StringVar(&synthesizeFlags.folder, "folder", "", "folder name (default from config)")
	f.StringVar(&synthesizeFlags.language, "language", "", "ISO-639-1 language of the text (default from config)")
	f.StringVarP(&synthesizeFlags.output, "output", "o", "", "write decoded audio to this WAV file")
	_ = synthesizeCmd.MarkFlagRequired("voice")
	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	synth, err := newSynthesizer(ctx)
	if err != nil {
		return err
	}
	defer synth.Close()

	opts := tts.SynthesizeOpts{
		Voice:          synthesizeFlags.voice,
		NarrationStyle: synthesizeFlags.style,
		Project:        firstNonEmpty(synthesizeFlags.project, cfg.Respeecher.Project),
		Folder:         firstNonEmpty(synthesizeFlags.folder, cfg.Respeecher.Folder),
		Language:       firstNonEmpty(synthesizeFlags.language, cfg.Respeecher.Language),
		DirectLink:     synthesizeFlags.output == "",
	}

	res, err := synth.Synthesize(ctx, text, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.DirectLink {
		fmt.Fprintln(out, strings.TrimSuffix(cfg.Respeecher.Domain, "/")+res.URL)
		return nil
	}

	buf := &audio.Buffer{Samples: res.Samples, SampleRate: res.SampleRate}
	if err := os.WriteFile(synthesizeFlags.output, audio.EncodeWAV(buf), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", synthesizeFlags.output, err)
	}
	fmt.Fprintf(out, "wrote %s (%s, %d Hz)\n", synthesizeFlags.output, buf.Duration(), buf.SampleRate)
	return nil
}

// readText joins the arguments, or reads stdin when the only argument is "-".
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
