package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fpang/cinegen/internal/media"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Video output settings.
const (
	VideoResolution  = "1080p"
	VideoAspectRatio = "16:9"
)

// VideoGenerator submits a video job, waits for it and returns a fetchable URL.
type VideoGenerator struct {
	Starter    VideoStarter
	Operations OperationFetcher
	Model      string
	APIKey     string
	Poller     *Poller
}

// Generate runs text-to-video, or image-to-video when reference is non-empty.
// reference is base64 image data with or without a data URL prefix.
func (g *VideoGenerator) Generate(ctx context.Context, prompt, reference string) (string, error) {
	model := g.Model
	if model == "" {
		model = ModelVeo31FastPreview
	}

	var image *genai.Image
	if reference != "" {
		ref, err := media.DecodeReference(reference)
		if err != nil {
			return "", newError(KindVideoGenerationFailure, MsgVideoFailure, fmt.Errorf("failed to decode reference image: %w", err))
		}
		image = &genai.Image{ImageBytes: ref.Data, MIMEType: ref.MIMEType}
	}

	log.Info().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Bool("image_to_video", image != nil).
		Msg("Starting video generation")

	start := time.Now()
	op, err := g.Starter.GenerateVideos(ctx, model, prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     VideoResolution,
		AspectRatio:    VideoAspectRatio,
	})
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("Video request failed")
		return "", backendError(err)
	}

	poller := g.Poller
	if poller == nil {
		poller = NewPoller(DefaultPollInterval, DefaultPollTimeout)
	}
	op, polls, err := poller.Await(ctx, g.Operations, op)
	if err != nil {
		if errors.Is(err, ErrPollTimeout) {
			return "", newError(KindVideoGenerationFailure, MsgVideoFailure, err)
		}
		log.Error().Err(err).Int("polls", polls).Msg("Video polling failed")
		return "", backendError(err)
	}

	if StateOf(op) == PollFailed {
		log.Error().Interface("operation_error", op.Error).Str("operation", op.Name).Msg("Video operation failed")
		return "", newError(KindVideoGenerationFailure, MsgVideoFailure, fmt.Errorf("operation error: %v", op.Error))
	}

	uri := videoURI(op)
	if uri == "" {
		log.Error().Str("operation", op.Name).Msg("Video operation completed without a video")
		return "", newError(KindVideoGenerationFailure, MsgVideoFailure, nil)
	}

	signed, err := withAPIKey(uri, g.APIKey)
	if err != nil {
		return "", newError(KindVideoGenerationFailure, MsgVideoFailure, err)
	}

	log.Info().
		Str("operation", op.Name).
		Int("polls", polls).
		Dur("duration", time.Since(start)).
		Msg("Video generated")

	return signed, nil
}

func videoURI(op *genai.GenerateVideosOperation) string {
	if op == nil || op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return ""
	}
	v := op.Response.GeneratedVideos[0]
	if v == nil || v.Video == nil {
		return ""
	}
	return v.Video.URI
}

// withAPIKey appends key as the last query parameter, keeping any existing
// query untouched.
func withAPIKey(uri, key string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid video URI: %w", err)
	}
	param := "key=" + url.QueryEscape(key)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}
