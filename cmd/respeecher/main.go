// Respeecher converts text to speech with Respeecher voices, either once from
// the command line or as a daemon serving HTTP and gRPC.
//
// Usage:
//
//	respeecher synthesize --voice Alice -o out.wav "Hello there"
//	respeecher voices
//	respeecher serve --config /path/to/respeecher.yaml
//
// @title       respeecher API
// @version     1.0
// @description Text-to-speech through Respeecher voices.
// @BasePath    /
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nadzzz/respeecher/internal/config"
	"github.com/nadzzz/respeecher/pkg/tts/respeecher"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configFile string
	envFile    string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "respeecher",
	Short:         "Text-to-speech through Respeecher voices",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `respeecher submits text to the Respeecher gateway, orders a conversion with
the chosen voice and narration style, and waits for the result.

The API key is read from respeecher.api_key in the config file or from the
RESPEECHER_API_KEY environment variable. A .env file in the working
directory is loaded first if present.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if verbose {
			cfg.Respeecher.Verbose = true
		}
		config.SetupLogging(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/respeecher.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log narration style selection and conversion time")
}

// loadEnv loads a dotenv file. Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}
	return nil
}

// newSynthesizer authenticates against the configured backend.
func newSynthesizer(ctx context.Context) (*respeecher.Synthesizer, error) {
	rc := cfg.Respeecher
	return respeecher.New(ctx, respeecher.Config{
		APIKey:       rc.APIKey,
		Domain:       rc.Domain,
		PollInterval: rc.PollInterval,
		Timeout:      rc.Timeout,
		Verbose:      rc.Verbose,
	}, respeecher.WithLogger(slog.Default()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
