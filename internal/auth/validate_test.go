package auth

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/fpang/cinegen/internal/metrics"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	model string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	return f.resp, f.err
}

func okResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "ok"}}},
	}}}
}

func TestValidateAPIKey(t *testing.T) {
	metrics.SetOutput(io.Discard)
	t.Cleanup(func() { metrics.SetOutput(os.Stdout) })

	tests := []struct {
		name     string
		gen      *fakeGenerator
		wantType ValidationErrorType
		wantOK   bool
	}{
		{"valid", &fakeGenerator{resp: okResponse()}, 0, true},
		{"empty response", &fakeGenerator{resp: &genai.GenerateContentResponse{}}, ErrTypeUnknown, false},
		{"invalid key", &fakeGenerator{err: genai.APIError{Code: 400, Message: "API key not valid"}}, ErrTypeInvalidKey, false},
		{"forbidden", &fakeGenerator{err: genai.APIError{Code: 403}}, ErrTypeInvalidKey, false},
		{"quota", &fakeGenerator{err: genai.APIError{Code: 429}}, ErrTypeQuotaExceeded, false},
		{"server", &fakeGenerator{err: genai.APIError{Code: 503}}, ErrTypeNetworkError, false},
		{"network", &fakeGenerator{err: errors.New("dial tcp: no such host")}, ErrTypeNetworkError, false},
		{"other", &fakeGenerator{err: errors.New("weird")}, ErrTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(context.Background(), tt.gen, "")
			if tt.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Type != tt.wantType {
				t.Errorf("type = %v, want %v", valErr.Type, tt.wantType)
			}
		})
	}
}

func TestValidateAPIKey_DefaultModel(t *testing.T) {
	metrics.SetOutput(io.Discard)
	t.Cleanup(func() { metrics.SetOutput(os.Stdout) })

	gen := &fakeGenerator{resp: okResponse()}
	ValidateAPIKey(context.Background(), gen, "")
	if gen.model != "gemini-2.5-flash-lite" {
		t.Errorf("model = %q", gen.model)
	}
}

func TestValidateAPIKey_NilGenerator(t *testing.T) {
	var valErr *ValidationError
	if err := ValidateAPIKey(context.Background(), nil, ""); !errors.As(err, &valErr) || valErr.Type != ErrTypeNoKey {
		t.Errorf("expected ErrTypeNoKey, got %v", err)
	}
}
