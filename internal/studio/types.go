// Package studio runs CineGen generations: enhance the prompt, generate the
// image or video, and publish a snapshot of the state after every transition.
package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/cinegen/internal/chat"
)

// Mode selects the kind of media to generate.
type Mode string

const (
	ModeImage Mode = "IMAGE"
	ModeVideo Mode = "VIDEO"
)

// ParseMode accepts "image" or "video" in any case. Empty means image.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeImage):
		return ModeImage, nil
	case string(ModeVideo):
		return ModeVideo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Progress messages shown while a run is in flight.
const (
	MsgAnalyzing        = "Analisando sua solicitação e aprimorando detalhes..."
	MsgAnimatingImage   = "Animando sua imagem com Veo (isso pode levar 1-2 minutos)..."
	MsgRenderingVideo   = "Renderizando vídeo cinematográfico (isso pode levar 1-2 minutos)..."
	MsgRenderingImage   = "Renderizando imagem em alta definição..."
	FallbackVideoPrompt = "Cinematic slow motion movement"
)

// Request is one generation request.
type Request struct {
	Input string
	Mode  Mode
	// ReferenceImage is base64 image data, optionally a data URL. Only video
	// generation sends it, but in any mode it lets a blank Input fall back to
	// FallbackVideoPrompt.
	ReferenceImage  string
	SkipEnhancement bool
}

// Status is the user-visible progress of the studio.
type Status struct {
	Enhancing       bool   `json:"enhancing"`
	Generating      bool   `json:"generating"`
	ProgressMessage string `json:"progressMessage"`
	Error           string `json:"error,omitempty"`
	CredentialIssue bool   `json:"credentialIssue,omitempty"`
}

// Busy reports whether a run is in progress.
func (s Status) Busy() bool {
	return s.Enhancing || s.Generating
}

// MediaResult is the output of a successful run.
type MediaResult struct {
	Kind Mode   `json:"type"`
	URL  string `json:"url"`
	// Prompt is the exact prompt sent to the generator.
	Prompt string `json:"prompt"`
}

// Snapshot is a copy of the studio state.
type Snapshot struct {
	RunID       string            `json:"runId,omitempty"`
	Status      Status            `json:"status"`
	Media       *MediaResult      `json:"media,omitempty"`
	Enhancement *chat.Enhancement `json:"enhancement,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// CredentialSelector tracks whether an API key is available and can ask for one.
type CredentialSelector interface {
	HasSelected(ctx context.Context) bool
	Select(ctx context.Context) error
	Key(ctx context.Context) (string, error)
}

// Generator performs the backend calls of a run.
type Generator interface {
	EnhancePrompt(ctx context.Context, input string) (*chat.Enhancement, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	GenerateVideo(ctx context.Context, prompt, reference string) (string, error)
}

// GeneratorFactory builds a Generator bound to one API key.
type GeneratorFactory func(ctx context.Context, apiKey string) (Generator, error)

// BackendFactory builds Gemini backends with the given models and poller.
func BackendFactory(models chat.ModelSet, poller *chat.Poller) GeneratorFactory {
	return func(ctx context.Context, apiKey string) (Generator, error) {
		return chat.NewBackend(ctx, apiKey, models, poller)
	}
}
