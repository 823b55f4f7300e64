// Package assets provides embedded static assets for the application.
//
// Prompt texts are stored as text files under prompts/ and embedded at compile time
// so they can be reviewed and edited without touching Go code.
package assets

import (
	_ "embed"
	"strings"
)

// EnhancementSystemPrompt instructs the enhancement model to rewrite a casual
// request into a detailed cinematic prompt with two variations and suggestions.
//
//go:embed prompts/enhancement-system.txt
var EnhancementSystemPrompt string

//go:embed prompts/validation.txt
var validationPrompt string

// ValidationPrompt is the tiny request sent when checking that an API key works.
func ValidationPrompt() string {
	return strings.TrimSpace(validationPrompt)
}
