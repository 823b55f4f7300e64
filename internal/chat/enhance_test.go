package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/cinegen/internal/assets"
	"google.golang.org/genai"
)

const validEnhancement = `{"prompt_final":"A red fox in a snowy forest at golden hour, 35mm","variacao_1":"A fox under northern lights","variacao_2":"A fox in a misty dawn","suggestions":["add shallow depth of field","try a low angle"]}`

func TestEnhance_Success(t *testing.T) {
	gen := &fakeContent{resp: textResponse(validEnhancement)}
	e := &Enhancer{Generator: gen, Model: "enhance-model"}

	got, err := e.Enhance(context.Background(), "a fox in snow")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got.FinalPrompt != "A red fox in a snowy forest at golden hour, 35mm" {
		t.Errorf("FinalPrompt = %q", got.FinalPrompt)
	}
	if got.VariationOne == "" || got.VariationTwo == "" {
		t.Error("variations should be populated")
	}
	if len(got.Suggestions) != 2 {
		t.Errorf("Suggestions = %v", got.Suggestions)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected exactly 1 call, got %d", len(gen.calls))
	}
	call := gen.calls[0]
	if call.model != "enhance-model" {
		t.Errorf("model = %q", call.model)
	}
	if call.config.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", call.config.ResponseMIMEType)
	}
	schema := call.config.ResponseSchema
	if schema == nil || schema.Type != genai.TypeObject || len(schema.Required) != 4 {
		t.Fatalf("unexpected schema: %+v", schema)
	}
	if schema.Properties["suggestions"].Type != genai.TypeArray {
		t.Error("suggestions should be an array")
	}
	if call.config.SystemInstruction.Parts[0].Text != assets.EnhancementSystemPrompt {
		t.Error("system instruction should be the embedded enhancement prompt")
	}
	if call.contents[0].Parts[0].Text != "a fox in snow" {
		t.Errorf("user content = %q", call.contents[0].Parts[0].Text)
	}
}

func TestEnhance_DefaultModel(t *testing.T) {
	gen := &fakeContent{resp: textResponse(validEnhancement)}
	if _, err := (&Enhancer{Generator: gen}).Enhance(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if gen.calls[0].model != ModelGemini25Flash {
		t.Errorf("default model = %q", gen.calls[0].model)
	}
}

func TestEnhance_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		resp  *genai.GenerateContentResponse
		want  ErrorKind
		calls int
	}{
		{"blank input", "   ", textResponse(validEnhancement), KindEnhancementFailure, 0},
		{"empty text", "a cat", textResponse(""), KindEnhancementFailure, 1},
		{"no candidates", "a cat", &genai.GenerateContentResponse{}, KindEnhancementFailure, 1},
		{"not json", "a cat", textResponse("I cannot help with that"), KindParseFailure, 1},
		{"missing field", "a cat", textResponse(`{"prompt_final":"x","variacao_1":"y","suggestions":[]}`), KindParseFailure, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeContent{resp: tt.resp}
			_, err := (&Enhancer{Generator: gen}).Enhance(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
			if len(gen.calls) != tt.calls {
				t.Errorf("calls = %d, want %d", len(gen.calls), tt.calls)
			}
		})
	}
}

func TestEnhance_EmptyTextMessage(t *testing.T) {
	_, err := (&Enhancer{Generator: &fakeContent{resp: textResponse("")}}).Enhance(context.Background(), "a cat")
	if UserMessage(err) != MsgEnhancementFailure {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestEnhance_CredentialRejected(t *testing.T) {
	gen := &fakeContent{err: genai.APIError{Code: 403, Message: "Permission denied", Status: "PERMISSION_DENIED"}}
	_, err := (&Enhancer{Generator: gen}).Enhance(context.Background(), "a cat")
	if !IsCredentialIssue(err) {
		t.Errorf("expected credential issue, got %v", err)
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		t.Error("original API error should stay in the chain")
	}
}

func TestEnhancement_Variation(t *testing.T) {
	e := &Enhancement{VariationOne: "one", VariationTwo: "two"}
	if v, ok := e.Variation(1); !ok || v != "one" {
		t.Errorf("Variation(1) = %q, %v", v, ok)
	}
	if v, ok := e.Variation(2); !ok || v != "two" {
		t.Errorf("Variation(2) = %q, %v", v, ok)
	}
	if _, ok := e.Variation(3); ok {
		t.Error("Variation(3) should not exist")
	}
	var nilE *Enhancement
	if _, ok := nilE.Variation(1); ok {
		t.Error("nil enhancement has no variations")
	}
}
