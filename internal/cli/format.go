package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fpang/cinegen/internal/chat"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatEnhancement renders an enhancement for the terminal.
func FormatEnhancement(e *chat.Enhancement) string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Prompt final:\n  %s\n\n", e.FinalPrompt)
	fmt.Fprintf(&b, "Variação 1:\n  %s\n\n", e.VariationOne)
	fmt.Fprintf(&b, "Variação 2:\n  %s\n", e.VariationTwo)
	if len(e.Suggestions) > 0 {
		b.WriteString("\nSugestões:\n")
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
