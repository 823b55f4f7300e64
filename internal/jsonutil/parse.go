// Package jsonutil parses JSON out of model responses, which may arrive
// wrapped in markdown code fences or surrounded by prose even when a JSON
// response type was requested.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response holds no object or array at all.
var ErrNoJSON = errors.New("no JSON content found")

const previewLimit = 200

// StripMarkdownFences removes a ```json ... ``` (or bare ```) wrapper.
// Text without a leading fence is returned trimmed but otherwise unchanged.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// ExtractJSON returns the span from the first '{' or '[' to the last
// matching closer.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", ErrNoJSON
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return text[:end+1], nil
}

// ParseJSON strips fences, extracts the JSON payload and decodes it into T.
func ParseJSON[T any](raw string) (T, error) {
	var zero T
	payload, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview(payload))
	}
	return result, nil
}

// RequireFields checks that every named key is present in the top-level
// object of raw. Decoding into a struct cannot tell a missing string field
// from an empty one, so callers that need presence use this after ParseJSON.
func RequireFields(raw string, fields ...string) error {
	payload, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return fmt.Errorf("expected a JSON object: %w", err)
	}

	var missing []string
	for _, f := range fields {
		v, ok := obj[f]
		if !ok || string(v) == "null" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func preview(s string) string {
	if len(s) > previewLimit {
		return s[:previewLimit] + "..."
	}
	return s
}
