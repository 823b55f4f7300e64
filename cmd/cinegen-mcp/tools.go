package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fpang/cinegen/internal/chat"
	"github.com/fpang/cinegen/internal/media"
	"github.com/fpang/cinegen/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Tools implements the MCP tool handlers on top of one orchestrator.
type Tools struct {
	orch      *studio.Orchestrator
	outputDir string
}

type EnhancePromptInput struct {
	Prompt string `json:"prompt" jsonschema:"Short idea to turn into a detailed cinematic prompt"`
}

type GenerateMediaInput struct {
	Prompt          string `json:"prompt,omitempty" jsonschema:"What to render. May be empty when animating a reference image"`
	Mode            string `json:"mode,omitempty" jsonschema:"IMAGE (default) or VIDEO"`
	ImagePath       string `json:"image_path,omitempty" jsonschema:"Reference image file to animate. Only used in VIDEO mode"`
	SkipEnhancement bool   `json:"skip_enhancement,omitempty" jsonschema:"Send the prompt verbatim instead of enhancing it first"`
	OutputPath      string `json:"output_path,omitempty" jsonschema:"File to write the result to"`
}

type SelectVariationInput struct {
	Variation  int    `json:"variation" jsonschema:"1 or 2"`
	Mode       string `json:"mode,omitempty" jsonschema:"IMAGE (default) or VIDEO"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"File to write the result to"`
}

type StudioStateInput struct{}

type MediaOutput struct {
	RunID       string            `json:"run_id"`
	Type        string            `json:"type"`
	Prompt      string            `json:"prompt"`
	SavedFile   string            `json:"saved_file"`
	Bytes       int64             `json:"bytes"`
	Enhancement *chat.Enhancement `json:"enhancement,omitempty"`
	GeneratedAt string            `json:"generated_at"`
}

type StudioStateOutput struct {
	RunID       string            `json:"run_id,omitempty"`
	Status      studio.Status     `json:"status"`
	MediaType   string            `json:"media_type,omitempty"`
	MediaPrompt string            `json:"media_prompt,omitempty"`
	Enhancement *chat.Enhancement `json:"enhancement,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
}

func (t *Tools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "enhance_prompt",
		Description: "Rewrite a short idea as a detailed cinematic prompt (lighting, camera, mood) and return two alternative variations plus suggestions. Nothing is rendered.",
	}, t.handleEnhance)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_media",
		Description: "Render a 16:9 2K image with Gemini or a 1080p video with Veo. The prompt is enhanced first unless skip_enhancement is set. In VIDEO mode an image_path animates that image. Videos take one to two minutes.",
	}, t.handleGenerate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_variation",
		Description: "Render variation 1 or 2 of the most recent enhancement without enhancing again.",
	}, t.handleSelectVariation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "studio_state",
		Description: "Report whether a generation is running, its progress message, the last error and the latest result.",
	}, t.handleState)
}

func (t *Tools) handleEnhance(ctx context.Context, req *mcp.CallToolRequest, input EnhancePromptInput) (*mcp.CallToolResult, chat.Enhancement, error) {
	enh, err := t.orch.Enhance(ctx, input.Prompt)
	if err != nil {
		return nil, chat.Enhancement{}, toolError(err)
	}
	return nil, *enh, nil
}

func (t *Tools) handleGenerate(ctx context.Context, req *mcp.CallToolRequest, input GenerateMediaInput) (*mcp.CallToolResult, MediaOutput, error) {
	reference := ""
	if input.ImagePath != "" {
		encoded, err := media.EncodeFile(input.ImagePath)
		if err != nil {
			return nil, MediaOutput{}, fmt.Errorf("failed to read reference image: %w", err)
		}
		reference = encoded
	}

	snap, err := t.orch.Run(ctx, studio.Request{
		Input:           input.Prompt,
		Mode:            studio.Mode(input.Mode),
		ReferenceImage:  reference,
		SkipEnhancement: input.SkipEnhancement,
	})
	if err != nil {
		return nil, MediaOutput{}, toolError(err)
	}
	out, err := t.save(ctx, snap, input.OutputPath)
	return nil, out, err
}

func (t *Tools) handleSelectVariation(ctx context.Context, req *mcp.CallToolRequest, input SelectVariationInput) (*mcp.CallToolResult, MediaOutput, error) {
	snap, err := t.orch.SelectVariation(ctx, input.Variation, studio.Mode(input.Mode))
	if err != nil {
		return nil, MediaOutput{}, toolError(err)
	}
	out, err := t.save(ctx, snap, input.OutputPath)
	return nil, out, err
}

func (t *Tools) handleState(ctx context.Context, req *mcp.CallToolRequest, input StudioStateInput) (*mcp.CallToolResult, StudioStateOutput, error) {
	snap := t.orch.Snapshot()
	out := StudioStateOutput{
		RunID:       snap.RunID,
		Status:      snap.Status,
		Enhancement: snap.Enhancement,
	}
	if snap.Media != nil {
		out.MediaType = string(snap.Media.Kind)
		out.MediaPrompt = snap.Media.Prompt
	}
	if !snap.UpdatedAt.IsZero() {
		out.UpdatedAt = snap.UpdatedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

// save writes the result to disk. Media URLs are never returned: data URLs
// are large and video links carry the API key.
func (t *Tools) save(ctx context.Context, snap studio.Snapshot, path string) (MediaOutput, error) {
	if snap.Media == nil {
		return MediaOutput{}, errors.New(chat.MsgUnexpected)
	}
	if path == "" {
		ext := ".png"
		if snap.Media.Kind == studio.ModeVideo {
			ext = ".mp4"
		}
		path = filepath.Join(t.outputDir, "cinegen-"+snap.RunID+ext)
	}
	n, err := media.Save(ctx, nil, snap.Media.URL, path)
	if err != nil {
		return MediaOutput{}, fmt.Errorf("failed to save media: %w", err)
	}
	return MediaOutput{
		RunID:       snap.RunID,
		Type:        string(snap.Media.Kind),
		Prompt:      snap.Media.Prompt,
		SavedFile:   path,
		Bytes:       n,
		Enhancement: snap.Enhancement,
		GeneratedAt: snap.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// toolError turns an orchestrator error into the message the model sees.
func toolError(err error) error {
	log.Warn().Err(err).Msg("Tool call failed")
	switch {
	case errors.Is(err, studio.ErrBusy),
		errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, studio.ErrInvalidMode),
		errors.Is(err, studio.ErrNoVariation):
		return err
	case errors.Is(err, studio.ErrCredentialMissing):
		return errors.New(chat.MsgCredentialMissing)
	}
	return errors.New(chat.UserMessage(err))
}
