package chat

import (
	"context"
	"time"

	"github.com/fpang/cinegen/internal/media"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Cinematic output settings for still images.
const (
	ImageAspectRatio = "16:9"
	ImageSize        = "2K"
)

// ImageGenerator produces a single still image from a prompt.
type ImageGenerator struct {
	Generator ContentGenerator
	Model     string
}

// Generate returns the first image the model produced as a PNG data URL.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.Model
	if model == "" {
		model = ModelGemini3ProImage
	}

	log.Info().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Msg("Generating image")

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: ImageAspectRatio,
			ImageSize:   ImageSize,
		},
	}

	start := time.Now()
	resp, err := g.Generator.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("Image request failed")
		return "", backendError(err)
	}

	blob := firstInlineData(resp)
	if blob == nil {
		log.Warn().Str("model", model).Msg("Image response carried no image part")
		return "", newError(KindNoMediaProduced, MsgNoImage, nil)
	}

	log.Info().
		Int("image_bytes", len(blob.Data)).
		Str("mime", blob.MIMEType).
		Dur("duration", time.Since(start)).
		Msg("Image generated")

	return media.DataURL("image/png", blob.Data), nil
}

// firstInlineData scans the first candidate's parts in order.
func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return nil
	}
	for _, part := range c.Content.Parts {
		if part != nil && part.InlineData != nil {
			return part.InlineData
		}
	}
	return nil
}
