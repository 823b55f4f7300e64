package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/cinegen/internal/chat"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvLogLevel, EnvLogFormat, EnvPort, EnvEnhanceModel, EnvImageModel, EnvVideoModel,
		EnvPollInterval, EnvPollTimeout, EnvSSMAPIKeyParam, EnvMetrics, EnvAllowedOrigins,
		"AWS_LAMBDA_FUNCTION_NAME",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Models != chat.DefaultModels() {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if cfg.PollInterval != 5*time.Second || cfg.PollTimeout != 10*time.Minute {
		t.Errorf("poll = %v / %v", cfg.PollInterval, cfg.PollTimeout)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics should be off outside Lambda by default")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvVideoModel, "veo-custom")
	t.Setenv(EnvPollTimeout, "0")
	t.Setenv(EnvPollInterval, "2s")
	t.Setenv(EnvMetrics, "true")
	t.Setenv(EnvSSMAPIKeyParam, "/cinegen/dev/key")
	t.Setenv(EnvAllowedOrigins, "http://a.test, http://b.test,")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.Models.Video != "veo-custom" || cfg.Models.Image != chat.ModelGemini3ProImage {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if cfg.PollTimeout != 0 || cfg.PollInterval != 2*time.Second {
		t.Errorf("poll = %v / %v", cfg.PollInterval, cfg.PollTimeout)
	}
	if !cfg.MetricsEnabled || cfg.SSMAPIKeyParam != "/cinegen/dev/key" {
		t.Errorf("metrics=%v ssm=%q", cfg.MetricsEnabled, cfg.SSMAPIKeyParam)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}

	p := cfg.Poller()
	if p.Interval != 2*time.Second || p.Timeout != 0 {
		t.Errorf("Poller = %+v", p)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"port":          {EnvPort, "abc"},
		"port range":    {EnvPort, "70000"},
		"timeout":       {EnvPollTimeout, "soon"},
		"negative":      {EnvPollTimeout, "-1m"},
		"zero interval": {EnvPollInterval, "0"},
		"metrics":       {EnvMetrics, "maybe"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}

func TestFromEnv_LambdaEnablesMetrics(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "cinegen")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.MetricsEnabled {
		t.Error("metrics should default on under Lambda")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvImageModel)
	t.Cleanup(func() { os.Unsetenv(EnvImageModel) })
	t.Setenv(EnvPort, "7000")

	path := filepath.Join(t.TempDir(), ".env")
	content := EnvImageModel + "=image-from-dotenv\n" + EnvPort + "=1234\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Models.Image != "image-from-dotenv" {
		t.Errorf("Image model = %q", cfg.Models.Image)
	}
	if cfg.Port != 7000 {
		t.Errorf(".env must not override the real environment, Port = %d", cfg.Port)
	}
}

func TestLoad_MissingDotEnv(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
