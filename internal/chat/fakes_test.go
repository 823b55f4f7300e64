package chat

import (
	"context"
	"time"

	"google.golang.org/genai"
)

type contentCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeContent struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls []contentCall
}

func (f *fakeContent) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, contentCall{model: model, contents: contents, config: config})
	return f.resp, f.err
}

type fakeVideos struct {
	op     *genai.GenerateVideosOperation
	err    error
	calls  int
	model  string
	prompt string
	image  *genai.Image
	config *genai.GenerateVideosConfig
}

func (f *fakeVideos) GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.calls++
	f.model, f.prompt, f.image, f.config = model, prompt, image, config
	return f.op, f.err
}

// fakeOperations returns pending results until its pending budget runs out,
// then final.
type fakeOperations struct {
	pending int
	final   *genai.GenerateVideosOperation
	err     error
	calls   int
}

func (f *fakeOperations) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.pending {
		return &genai.GenerateVideosOperation{Name: op.Name}, nil
	}
	return f.final, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func doneVideo(uri string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name: "operations/video-1",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: uri}}},
		},
	}
}

// noWait records requested waits without sleeping.
type noWait struct {
	waits []time.Duration
}

func (n *noWait) Wait(ctx context.Context, d time.Duration) error {
	n.waits = append(n.waits, d)
	return ctx.Err()
}
