// Command cinegen-mcp exposes CineGen as Model Context Protocol tools over
// stdio. stdout carries the protocol, so logs and metrics go to stderr.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/cinegen/internal/cli"
	"github.com/fpang/cinegen/internal/config"
	"github.com/fpang/cinegen/internal/logging"
	"github.com/fpang/cinegen/internal/metrics"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const serviceName = "cinegen-mcp"

var version = "dev"

var (
	envFileFlag   string
	noPromptFlag  bool
	outputDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "MCP server exposing CineGen prompt enhancement and media generation",
	Long: `Runs an MCP server on stdio with four tools:

  enhance_prompt    enhance a prompt and return two variations
  generate_media    render an image or video (optionally animating a reference image)
  select_variation  render a variation of the latest enhancement
  studio_state      report progress and the latest result

Generated files are written to --output-dir unless a tool call names a path.`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Optional .env file to load before reading the environment")
	rootCmd.Flags().BoolVar(&noPromptFlag, "no-prompt", false, "Never show the API key dialog")
	rootCmd.Flags().StringVar(&outputDirFlag, "output-dir", os.TempDir(), "Directory for generated media")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	cfg, err := config.Load(envFileFlag)
	if err != nil {
		logging.Init()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.InitWith(cfg.LogLevel, cfg.LogFormat)
	if cfg.MetricsEnabled {
		metrics.SetOutput(os.Stderr)
	} else {
		metrics.SetOutput(nil)
	}

	keys := cli.NewKeyring(noPromptFlag)
	orch := studio.New(keys, studio.BackendFactory(cfg.Models, cfg.Poller()))
	tools := &Tools{orch: orch, outputDir: outputDirFlag}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serviceName,
		Version: version,
	}, nil)
	tools.register(server)

	logging.NewStartupLogger(serviceName).
		Version(version).
		Model("enhance", cfg.Models.Enhance).
		Model("image", cfg.Models.Image).
		Model("video", cfg.Models.Video).
		Feature("prompt", !noPromptFlag).
		Feature("metrics", cfg.MetricsEnabled).
		Config("outputDir", outputDirFlag).
		Config("pollTimeout", cfg.PollTimeout.String()).
		InitDuration(time.Since(initStart)).
		Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
