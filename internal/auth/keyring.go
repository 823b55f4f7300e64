package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrDeclined is returned when the user dismisses credential selection.
var ErrDeclined = errors.New("credential selection declined")

// Prompter asks the user for an API key.
type Prompter func(ctx context.Context) (string, error)

// Keyring holds the API key selected for this process. Static sources are
// consulted on Select; after Clear only an explicit Set or the prompter can
// select a key again.
type Keyring struct {
	mu       sync.Mutex
	key      string
	source   string
	cleared  bool
	sources  []Source
	prompter Prompter
}

// NewKeyring creates a Keyring. prompter may be nil for headless processes.
func NewKeyring(prompter Prompter, sources ...Source) *Keyring {
	return &Keyring{sources: sources, prompter: prompter}
}

// HasSelected reports whether a key is currently selected.
func (k *Keyring) HasSelected(ctx context.Context) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key != ""
}

// Select tries the static sources, then the prompter. It returns ErrDeclined
// when the user cancels and ErrNoKey when nothing produced a key.
func (k *Keyring) Select(ctx context.Context) error {
	k.mu.Lock()
	sources, prompter, cleared := k.sources, k.prompter, k.cleared
	k.mu.Unlock()

	if !cleared && len(sources) > 0 {
		if key, name, err := Resolve(ctx, sources...); err == nil {
			return k.Set(key, name)
		}
	}
	if prompter == nil {
		return ErrNoKey
	}

	key, err := prompter(ctx)
	if err != nil {
		if errors.Is(err, ErrDeclined) {
			log.Info().Msg("Credential selection declined")
		}
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ErrDeclined
	}
	return k.Set(key, "prompt")
}

// Key returns the selected key.
func (k *Keyring) Key(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key == "" {
		return "", ErrNoKey
	}
	return k.key, nil
}

// Source names where the selected key came from.
func (k *Keyring) Source() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.source
}

// Set selects key explicitly.
func (k *Keyring) Set(key, source string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key")
	}
	k.mu.Lock()
	k.key, k.source, k.cleared = key, source, false
	k.mu.Unlock()
	log.Info().Str("source", source).Msg("API key selected")
	return nil
}

// Clear forgets the selected key.
func (k *Keyring) Clear() {
	k.mu.Lock()
	k.key, k.source, k.cleared = "", "", true
	k.mu.Unlock()
	log.Info().Msg("API key cleared")
}

// ZenityPrompt shows a native password dialog. Cancelling maps to ErrDeclined.
func ZenityPrompt(ctx context.Context) (string, error) {
	key, err := zenity.Entry(
		"Cole sua chave de API do Gemini (Google AI Studio):",
		zenity.Title("CineGen Studio - Selecionar chave"),
		zenity.HideText(),
		zenity.Context(ctx),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrDeclined
		}
		return "", fmt.Errorf("credential dialog failed: %w", err)
	}
	return key, nil
}
