package llm

import "strings"

// CleanCodeBlock removes a markdown fence wrapped around a code answer.
// Models often fence code (```python ... ```) even when told not to.
// Text without a leading fence is returned trimmed but otherwise unchanged.
func CleanCodeBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the fence line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		info := strings.TrimSpace(text[:idx])
		if len(info) < 20 && !strings.ContainsAny(info, " ({=") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
