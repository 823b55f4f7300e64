package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	// EnvAPIKey is the environment variable checked first for the Gemini key.
	EnvAPIKey = "GEMINI_API_KEY"

	credentialDir  = ".cinegen"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// ErrNoKey is returned when no source holds an API key.
var ErrNoKey = errors.New("API key not found. Set GEMINI_API_KEY, run scripts/setup-gpg-credentials.sh, or configure CINEGEN_SSM_API_KEY_PARAM")

// Source is one place an API key may be stored.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (string, error)
}

// Resolve returns the first key found, in source order, and the name of the
// source that held it.
func Resolve(ctx context.Context, sources ...Source) (string, string, error) {
	var errs []error
	for _, s := range sources {
		key, err := s.Lookup(ctx)
		if err == nil && key != "" {
			log.Debug().Str("source", s.Name()).Msg("Using API key")
			return key, s.Name(), nil
		}
		if err != nil {
			log.Debug().Err(err).Str("source", s.Name()).Msg("API key source unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return "", "", errors.Join(append([]error{ErrNoKey}, errs...)...)
}

// DefaultSources returns the environment and GPG sources, plus SSM when a
// client and parameter name are given.
func DefaultSources(ssmClient ParameterGetter, ssmParam string) []Source {
	sources := []Source{EnvSource{Var: EnvAPIKey}, NewGPGSource()}
	if ssmClient != nil && ssmParam != "" {
		sources = append(sources, &SSMSource{Client: ssmClient, Param: ssmParam})
	}
	return sources
}

// GetAPIKey resolves the key from the environment or the GPG file.
func GetAPIKey(ctx context.Context) (string, error) {
	key, _, err := Resolve(ctx, DefaultSources(nil, "")...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve API key")
	}
	return key, err
}

// EnvSource reads the key from an environment variable.
type EnvSource struct {
	Var string
}

func (s EnvSource) Name() string { return "env:" + s.Var }

func (s EnvSource) Lookup(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(os.Getenv(s.Var)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is not set", s.Var)
}

// GPGSource decrypts the key from ~/.cinegen/credentials.gpg. A passphrase
// file next to the executable or in the working directory enables
// non-interactive decryption when it is owner-only.
type GPGSource struct {
	Path           string
	PassphrasePath string
	// Run executes gpg. Tests replace it.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewGPGSource creates a GPGSource for the default credential path.
func NewGPGSource() *GPGSource {
	s := &GPGSource{Run: runCommand}
	if p, err := credentialPath(); err == nil {
		s.Path = p
	}
	if p, err := passphrasePath(); err == nil {
		s.PassphrasePath = p
	}
	return s
}

func (s *GPGSource) Name() string { return "gpg" }

func (s *GPGSource) Lookup(ctx context.Context) (string, error) {
	if s.Path == "" {
		return "", errors.New("no credential path")
	}
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", s.Path)
	}

	log.Debug().Str("file", s.Path).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet"}
	if s.PassphrasePath != "" {
		if fi, err := os.Stat(s.PassphrasePath); err == nil {
			if mode := fi.Mode().Perm(); mode&0o077 != 0 {
				log.Warn().
					Str("passphrase_file", s.PassphrasePath).
					Str("permissions", fmt.Sprintf("%04o", mode)).
					Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			} else {
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", s.PassphrasePath)
			}
		}
	}
	args = append(args, s.Path)

	run := s.Run
	if run == nil {
		run = runCommand
	}
	output, err := run(ctx, "gpg", args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ParameterGetter is the subset of *ssm.Client used to read the key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads the key from an encrypted SSM parameter.
type SSMSource struct {
	Client ParameterGetter
	Param  string
}

func (s *SSMSource) Name() string { return "ssm:" + s.Param }

func (s *SSMSource) Lookup(ctx context.Context) (string, error) {
	start := time.Now()
	out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.Param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read API key from SSM: %w", err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", s.Param)
	}
	log.Debug().Str("param", s.Param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return strings.TrimSpace(*out.Parameter.Value), nil
}

func credentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// passphrasePath prefers a passphrase file beside the executable, then the
// working directory (for development).
func passphrasePath() (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), passphraseFile)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, passphraseFile), nil
}
