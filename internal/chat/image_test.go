package chat

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestImageGenerate_FirstInlinePart(t *testing.T) {
	gen := &fakeContent{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here is your image"},
				{InlineData: &genai.Blob{Data: []byte{0, 0, 0}, MIMEType: "image/png"}},
				{InlineData: &genai.Blob{Data: []byte{1, 1, 1}, MIMEType: "image/png"}},
			}},
		}},
	}}
	g := &ImageGenerator{Generator: gen, Model: "image-model"}

	got, err := g.Generate(context.Background(), "a lighthouse")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "data:image/png;base64,AAAA" {
		t.Errorf("Generate = %q", got)
	}

	cfg := gen.calls[0].config
	if cfg.ImageConfig == nil || cfg.ImageConfig.AspectRatio != "16:9" || cfg.ImageConfig.ImageSize != "2K" {
		t.Errorf("unexpected image config: %+v", cfg.ImageConfig)
	}
	if gen.calls[0].model != "image-model" {
		t.Errorf("model = %q", gen.calls[0].model)
	}
}

func TestImageGenerate_NoImage(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"text only":     textResponse("blocked"),
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := (&ImageGenerator{Generator: &fakeContent{resp: resp}}).Generate(context.Background(), "x")
			if KindOf(err) != KindNoMediaProduced {
				t.Fatalf("kind = %v, want no_media_produced", KindOf(err))
			}
			if UserMessage(err) != MsgNoImage {
				t.Errorf("UserMessage = %q", UserMessage(err))
			}
		})
	}
}

func TestImageGenerate_TransportError(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	_, err := (&ImageGenerator{Generator: &fakeContent{err: netErr}}).Generate(context.Background(), "x")
	if KindOf(err) == KindNoMediaProduced {
		t.Error("transport failure must be distinguishable from no media")
	}
	if !errors.Is(err, netErr) {
		t.Error("transport error should be wrapped")
	}
}
