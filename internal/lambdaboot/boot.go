// Package lambdaboot provides the Lambda cold-start bootstrap: AWS config,
// the SSM-backed credential keyring and the startup log.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/cinegen/internal/auth"
	"github.com/fpang/cinegen/internal/logging"
)

// DefaultSSMParam is read when CINEGEN_SSM_API_KEY_PARAM is not set.
const DefaultSSMParam = "/cinegen/prod/gemini-api-key"

// AWSClients holds the AWS SDK clients used by the Lambda.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// Keyring builds a headless keyring that reads GEMINI_API_KEY first and
// then the encrypted SSM parameter. An empty param uses DefaultSSMParam.
func Keyring(ssmClient auth.ParameterGetter, param string) *auth.Keyring {
	if param == "" {
		param = DefaultSSMParam
	}
	sources := []auth.Source{auth.EnvSource{Var: auth.EnvAPIKey}}
	if ssmClient != nil {
		sources = append(sources, &auth.SSMSource{Client: ssmClient, Param: param})
	}
	return auth.NewKeyring(nil, sources...)
}

// PreloadKey selects the key during cold start so the first request does not
// pay for the SSM round trip. Failure is not fatal: the key can still be
// posted to /api/credential.
func PreloadKey(ctx context.Context, keys *auth.Keyring) {
	start := time.Now()
	if err := keys.Select(ctx); err != nil {
		log.Warn().Err(err).Msg("Gemini API key not available at startup")
		return
	}
	log.Debug().Str("source", keys.Source()).Dur("elapsed", time.Since(start)).Msg("Gemini API key preloaded")
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
