// Command cinegen-lambda serves the CineGen HTTP API from AWS Lambda behind
// an API Gateway HTTP API (payload v2).
//
// Video requests hold the invocation open while Veo renders, so the function
// timeout must exceed CINEGEN_VIDEO_POLL_TIMEOUT. The WebSocket route is not
// usable through API Gateway HTTP APIs; clients poll GET /api/state instead.
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/cinegen/internal/auth"
	"github.com/fpang/cinegen/internal/config"
	"github.com/fpang/cinegen/internal/lambdaboot"
	"github.com/fpang/cinegen/internal/logging"
	"github.com/fpang/cinegen/internal/metrics"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/fpang/cinegen/internal/web"
)

var version = "dev"

var server *web.Server

func init() {
	initStart := time.Now()
	if os.Getenv(config.EnvLogFormat) == "" {
		os.Setenv(config.EnvLogFormat, "json")
	}
	logging.Init()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !cfg.MetricsEnabled {
		metrics.SetOutput(nil)
	}

	clients := lambdaboot.InitAWS()
	keys := lambdaboot.Keyring(clients.SSM, cfg.SSMAPIKeyParam)
	lambdaboot.PreloadKey(context.Background(), keys)

	orch := studio.New(keys, studio.BackendFactory(cfg.Models, cfg.Poller()))
	server = web.NewServer(orch, keys, web.Options{
		Validate:       auth.GeminiValidator(""),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	param := cfg.SSMAPIKeyParam
	if param == "" {
		param = lambdaboot.DefaultSSMParam
	}
	lambdaboot.StartupLog("cinegen-lambda", initStart).
		Version(version).
		Model("enhance", cfg.Models.Enhance).
		Model("image", cfg.Models.Image).
		Model("video", cfg.Models.Video).
		Feature("metrics", cfg.MetricsEnabled).
		Feature("keyPreloaded", keys.HasSelected(context.Background())).
		Config("ssmParam", param).
		Config("pollTimeout", cfg.PollTimeout.String()).
		Config("allowedOrigins", strings.Join(cfg.AllowedOrigins, ",")).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(server.Handler())
	lambda.Start(adapter.ProxyWithContext)
}
