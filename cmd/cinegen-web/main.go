package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fpang/cinegen/internal/auth"
	"github.com/fpang/cinegen/internal/config"
	"github.com/fpang/cinegen/internal/logging"
	"github.com/fpang/cinegen/internal/metrics"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/fpang/cinegen/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	portFlag     int
	envFileFlag  string
	staticKeys   bool
	validateFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "cinegen-web",
	Short: "HTTP and WebSocket front end for CineGen",
	Long: `Serves the CineGen JSON API and streams studio snapshots over a WebSocket.

The API key is selected by POST /api/credential. With --static-keys the server
also accepts GEMINI_API_KEY or the GPG credential file.

Examples:
  cinegen-web
  cinegen-web --port 9090
  cinegen-web --static-keys`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default CINEGEN_PORT or 8080)")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Optional .env file to load before reading the environment")
	rootCmd.Flags().BoolVar(&staticKeys, "static-keys", false, "Allow GEMINI_API_KEY and the GPG credential file as key sources")
	rootCmd.Flags().BoolVar(&validateFlag, "validate", true, "Validate posted API keys before selecting them")
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
	if !cfg.MetricsEnabled {
		metrics.SetOutput(nil)
	}
	port := cfg.Port
	if portFlag != 0 {
		port = portFlag
	}

	var sources []auth.Source
	if staticKeys {
		sources = auth.DefaultSources(nil, "")
	}
	keys := auth.NewKeyring(nil, sources...)
	orch := studio.New(keys, studio.BackendFactory(cfg.Models, cfg.Poller()))

	opts := web.Options{AllowedOrigins: cfg.AllowedOrigins}
	if validateFlag {
		opts.Validate = auth.GeminiValidator("")
	}
	server := web.NewServer(orch, keys, opts)
	defer server.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.PollTimeout + 2*time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.PollTimeout == 0 {
		// Unbounded polling: a video request may hold its response open indefinitely.
		srv.WriteTimeout = 0
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	logging.NewStartupLogger("cinegen-web").
		Version(version).
		Model("enhance", cfg.Models.Enhance).
		Model("image", cfg.Models.Image).
		Model("video", cfg.Models.Video).
		Feature("staticKeys", staticKeys).
		Feature("validateKeys", validateFlag).
		Feature("metrics", cfg.MetricsEnabled).
		Config("port", strconv.Itoa(port)).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("pollTimeout", cfg.PollTimeout.String()).
		Config("allowedOrigins", strings.Join(cfg.AllowedOrigins, ",")).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  CineGen API: http://localhost:%d\n\n", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
