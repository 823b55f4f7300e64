package cli

import (
	"context"

	"github.com/fpang/cinegen/internal/auth"
	"github.com/rs/zerolog/log"
)

// NewKeyring builds the keyring for interactive binaries: GEMINI_API_KEY,
// then the GPG credential file, then the native password dialog unless
// noPrompt is set.
func NewKeyring(noPrompt bool) *auth.Keyring {
	var prompter auth.Prompter
	if !noPrompt {
		prompter = auth.ZenityPrompt
	}
	return auth.NewKeyring(prompter, auth.DefaultSources(nil, "")...)
}

// RequireKey selects a key and, when validate is set, proves it works with
// model. It exits fatally on failure.
func RequireKey(ctx context.Context, keys *auth.Keyring, validate bool, model string) {
	if err := keys.Select(ctx); err != nil {
		HandleValidationError(&auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "No API key selected", Err: err})
	}
	log.Info().Str("source", keys.Source()).Msg("API key selected")
	if !validate {
		return
	}

	key, err := keys.Key(ctx)
	if err != nil {
		HandleValidationError(&auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "No API key selected", Err: err})
	}
	if err := auth.GeminiValidator(model)(ctx, key); err != nil {
		HandleValidationError(err)
	}
	log.Info().Msg("API key validation complete - ready for operations")
}
