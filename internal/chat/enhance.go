package chat

import (
	"context"
	"strings"
	"time"

	"github.com/fpang/cinegen/internal/assets"
	"github.com/fpang/cinegen/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Enhancement is the structured result of prompt enhancement. JSON names
// match the response schema sent to the model.
type Enhancement struct {
	FinalPrompt  string   `json:"prompt_final"`
	VariationOne string   `json:"variacao_1"`
	VariationTwo string   `json:"variacao_2"`
	Suggestions  []string `json:"suggestions"`
}

// Variation returns variation 1 or 2.
func (e *Enhancement) Variation(n int) (string, bool) {
	if e == nil {
		return "", false
	}
	switch n {
	case 1:
		return e.VariationOne, e.VariationOne != ""
	case 2:
		return e.VariationTwo, e.VariationTwo != ""
	}
	return "", false
}

var enhancementFields = []string{"prompt_final", "variacao_1", "variacao_2", "suggestions"}

// EnhancementSchema is the response schema requested from the enhancement model.
func EnhancementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"prompt_final": {Type: genai.TypeString, Description: "O prompt final altamente detalhado e otimizado."},
			"variacao_1":   {Type: genai.TypeString, Description: "Uma variação criativa alternativa."},
			"variacao_2":   {Type: genai.TypeString, Description: "Uma segunda variação criativa alternativa."},
			"suggestions": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Sugestões de melhoria (estilo, luz, angulo).",
			},
		},
		Required: enhancementFields,
	}
}

// Enhancer rewrites casual prompts into detailed cinematic ones.
type Enhancer struct {
	Generator ContentGenerator
	Model     string
}

// Enhance sends input to the enhancement model and decodes the structured reply.
// The call is made exactly once.
func (e *Enhancer) Enhance(ctx context.Context, input string) (*Enhancement, error) {
	if strings.TrimSpace(input) == "" {
		return nil, newError(KindEnhancementFailure, MsgEnhancementFailure, nil)
	}

	model := e.Model
	if model == "" {
		model = ModelGemini25Flash
	}

	log.Info().
		Str("model", model).
		Int("input_length", len(input)).
		Msg("Enhancing prompt")

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assets.EnhancementSystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    EnhancementSchema(),
	}
	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}

	start := time.Now()
	resp, err := e.Generator.GenerateContent(ctx, model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("Enhancement request failed")
		return nil, backendError(err)
	}

	var text string
	if resp != nil {
		text = resp.Text()
	}
	if strings.TrimSpace(text) == "" {
		log.Warn().Str("model", model).Msg("Enhancement returned no text")
		return nil, newError(KindEnhancementFailure, MsgEnhancementFailure, nil)
	}

	result, err := jsonutil.ParseJSON[Enhancement](text)
	if err != nil {
		log.Error().Err(err).Msg("Enhancement response is not valid JSON")
		return nil, newError(KindParseFailure, MsgParseFailure, err)
	}
	if err := jsonutil.RequireFields(text, enhancementFields...); err != nil {
		log.Error().Err(err).Msg("Enhancement response is incomplete")
		return nil, newError(KindParseFailure, MsgParseFailure, err)
	}

	log.Info().
		Dur("duration", time.Since(start)).
		Int("final_length", len(result.FinalPrompt)).
		Int("suggestions", len(result.Suggestions)).
		Msg("Prompt enhanced")

	return &result, nil
}
