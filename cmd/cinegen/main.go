package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/config"
	"github.com/fpang/cinegen/internal/logging"
	"github.com/fpang/cinegen/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

// Persistent flags
var (
	envFileFlag      string
	noPromptFlag     bool
	validateFlag     bool
	enhanceModelFlag string
	imageModelFlag   string
	videoModelFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "cinegen",
	Short: "Cinematic image and video generation with Gemini and Veo",
	Long: `CineGen turns a short idea into a cinematic prompt with Gemini, then renders
it as a 2K still with Gemini image generation or as a 1080p clip with Veo.

Examples:
  cinegen generate "um farol numa tempestade"
  cinegen generate --mode video "a fox running through snow"
  cinegen generate --mode video --image ref.jpg "slow dolly in"
  cinegen generate --variation 2 -o out/fox.png "a fox in snow"
  cinegen enhance "a lighthouse at night"`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", ".env", "Optional .env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&noPromptFlag, "no-prompt", false, "Never show the API key dialog; fail when no key is configured")
	rootCmd.PersistentFlags().BoolVar(&validateFlag, "validate", false, "Validate the API key with a minimal request before running")
	rootCmd.PersistentFlags().StringVar(&enhanceModelFlag, "model-enhance", "", "Override the prompt enhancement model")
	rootCmd.PersistentFlags().StringVar(&imageModelFlag, "model-image", "", "Override the image generation model")
	rootCmd.PersistentFlags().StringVar(&videoModelFlag, "model-video", "", "Override the video generation model")

	rootCmd.AddCommand(generateCmd, enhanceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, initializes logging and applies model flags.
func setup() *config.Config {
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		logging.Init()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.InitWith(cfg.LogLevel, cfg.LogFormat)
	if !cfg.MetricsEnabled {
		metrics.SetOutput(nil)
	}

	cfg.Models = cfg.Models.Merge(chat.ModelSet{
		Enhance: enhanceModelFlag,
		Image:   imageModelFlag,
		Video:   videoModelFlag,
	})
	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM so an in-flight video poll
// stops promptly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
