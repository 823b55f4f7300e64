// Package config loads CineGen settings from the environment, after
// optionally reading a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Environment variables.
const (
	EnvLogLevel       = "CINEGEN_LOG_LEVEL"
	EnvLogFormat      = "CINEGEN_LOG_FORMAT"
	EnvPort           = "CINEGEN_PORT"
	EnvEnhanceModel   = "CINEGEN_ENHANCE_MODEL"
	EnvImageModel     = "CINEGEN_IMAGE_MODEL"
	EnvVideoModel     = "CINEGEN_VIDEO_MODEL"
	EnvPollInterval   = "CINEGEN_VIDEO_POLL_INTERVAL"
	EnvPollTimeout    = "CINEGEN_VIDEO_POLL_TIMEOUT"
	EnvSSMAPIKeyParam = "CINEGEN_SSM_API_KEY_PARAM"
	EnvMetrics        = "CINEGEN_METRICS"
	EnvAllowedOrigins = "CINEGEN_ALLOWED_ORIGINS"
)

// DefaultPort is the web server port when none is configured.
const DefaultPort = 8080

// Config holds every runtime setting.
type Config struct {
	LogLevel  string
	LogFormat string
	Port      int

	Models       chat.ModelSet
	PollInterval time.Duration
	// PollTimeout of zero waits for a video job indefinitely.
	PollTimeout time.Duration

	SSMAPIKeyParam string
	MetricsEnabled bool
	AllowedOrigins []string
}

// Load reads .env files (when present, never overriding real environment
// variables) and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:       os.Getenv(EnvLogLevel),
		LogFormat:      os.Getenv(EnvLogFormat),
		Port:           DefaultPort,
		Models:         chat.DefaultModels(),
		PollInterval:   chat.DefaultPollInterval,
		PollTimeout:    chat.DefaultPollTimeout,
		SSMAPIKeyParam: os.Getenv(EnvSSMAPIKeyParam),
		AllowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
	}

	cfg.Models = cfg.Models.Merge(chat.ModelSet{
		Enhance: os.Getenv(EnvEnhanceModel),
		Image:   os.Getenv(EnvImageModel),
		Video:   os.Getenv(EnvVideoModel),
	})

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Port = port
	}

	var err error
	if cfg.PollInterval, err = durationEnv(EnvPollInterval, cfg.PollInterval); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvPollInterval)
	}
	if cfg.PollTimeout, err = durationEnv(EnvPollTimeout, cfg.PollTimeout); err != nil {
		return nil, err
	}
	if cfg.PollTimeout < 0 {
		return nil, fmt.Errorf("%s must not be negative", EnvPollTimeout)
	}

	if v := os.Getenv(EnvMetrics); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMetrics, err)
		}
		cfg.MetricsEnabled = enabled
	} else {
		cfg.MetricsEnabled = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	}

	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	log.Debug().
		Int("port", cfg.Port).
		Str("enhanceModel", cfg.Models.Enhance).
		Str("imageModel", cfg.Models.Image).
		Str("videoModel", cfg.Models.Video).
		Dur("pollInterval", cfg.PollInterval).
		Dur("pollTimeout", cfg.PollTimeout).
		Bool("metrics", cfg.MetricsEnabled).
		Msg("Configuration loaded")

	return cfg, nil
}

// Poller builds the video poller described by the configuration.
func (c *Config) Poller() *chat.Poller {
	return chat.NewPoller(c.PollInterval, c.PollTimeout)
}

// durationEnv accepts Go durations ("90s", "10m") or a bare number of seconds.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", name, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
