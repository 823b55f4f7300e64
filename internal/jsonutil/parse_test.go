package jsonutil

import (
	"errors"
	"strings"
	"testing"
)

type enhancement struct {
	PromptFinal string   `json:"prompt_final"`
	Suggestions []string `json:"suggestions"`
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n ", `{}`},
		{"too short", "```{}```", "```{}```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON(`Here you go: {"a": {"b": 1}} hope it helps`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a": {"b": 1}}` {
		t.Errorf("got %q", got)
	}

	got, err = ExtractJSON(`list: [1, 2, 3].`)
	if err != nil || got != `[1, 2, 3]` {
		t.Errorf("array extraction = %q, %v", got, err)
	}

	if _, err := ExtractJSON("plain prose"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
	if _, err := ExtractJSON("{ never closed"); err == nil {
		t.Error("expected error for unclosed object")
	}
}

func TestParseJSON(t *testing.T) {
	raw := "```json\n{\"prompt_final\":\"A lighthouse at dusk\",\"suggestions\":[\"add fog\"]}\n```"
	got, err := ParseJSON[enhancement](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PromptFinal != "A lighthouse at dusk" {
		t.Errorf("PromptFinal = %q", got.PromptFinal)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "add fog" {
		t.Errorf("Suggestions = %v", got.Suggestions)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON[enhancement](`{"prompt_final": 42}`)
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("expected invalid JSON error, got %v", err)
	}

	_, err = ParseJSON[enhancement]("")
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON for empty input, got %v", err)
	}
}

func TestRequireFields(t *testing.T) {
	raw := `{"prompt_final":"x","variacao_1":"","suggestions":null}`

	if err := RequireFields(raw, "prompt_final", "variacao_1"); err != nil {
		t.Errorf("expected present fields to pass, got %v", err)
	}

	err := RequireFields(raw, "prompt_final", "variacao_2", "suggestions")
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
	if !strings.Contains(err.Error(), "variacao_2, suggestions") {
		t.Errorf("error should list missing fields in order, got %v", err)
	}

	if err := RequireFields(`[1,2]`, "a"); err == nil {
		t.Error("expected error for non-object payload")
	}
}
