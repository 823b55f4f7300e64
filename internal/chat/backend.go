package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of *genai.Models used for enhancement and images.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// VideoStarter is the subset of *genai.Models used to submit a video job.
type VideoStarter interface {
	GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
}

// OperationFetcher is the subset of *genai.Operations used to poll a video job.
type OperationFetcher interface {
	GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

// Backend bundles the three generation clients for one API key. A Backend is
// built per credential and never shared across keys.
type Backend struct {
	Enhancer *Enhancer
	Images   *ImageGenerator
	Videos   *VideoGenerator
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, newError(KindCredentialMissing, MsgCredentialMissing, nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewBackend creates a Gemini client for apiKey and wires the generation
// clients to it.
func NewBackend(ctx context.Context, apiKey string, models ModelSet, poller *Poller) (*Backend, error) {
	client, err := NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("enhanceModel", models.Enhance).
		Str("imageModel", models.Image).
		Str("videoModel", models.Video).
		Msg("Gemini backend created")
	return NewBackendWith(client.Models, client.Models, client.Operations, apiKey, models, poller), nil
}

// NewBackendWith wires the generation clients to explicit SDK collaborators.
func NewBackendWith(content ContentGenerator, videos VideoStarter, ops OperationFetcher, apiKey string, models ModelSet, poller *Poller) *Backend {
	models = DefaultModels().Merge(models)
	if poller == nil {
		poller = NewPoller(DefaultPollInterval, DefaultPollTimeout)
	}
	return &Backend{
		Enhancer: &Enhancer{Generator: content, Model: models.Enhance},
		Images:   &ImageGenerator{Generator: content, Model: models.Image},
		Videos: &VideoGenerator{
			Starter:    videos,
			Operations: ops,
			Model:      models.Video,
			APIKey:     apiKey,
			Poller:     poller,
		},
	}
}

// EnhancePrompt delegates to the enhancement client.
func (b *Backend) EnhancePrompt(ctx context.Context, input string) (*Enhancement, error) {
	return b.Enhancer.Enhance(ctx, input)
}

// GenerateImage delegates to the image client.
func (b *Backend) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return b.Images.Generate(ctx, prompt)
}

// GenerateVideo delegates to the video client. reference may be empty.
func (b *Backend) GenerateVideo(ctx context.Context, prompt, reference string) (string, error) {
	return b.Videos.Generate(ctx, prompt, reference)
}
