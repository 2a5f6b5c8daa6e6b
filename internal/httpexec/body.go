package httpexec

import (
	"encoding/json"
	"strings"
)

// ParseObject decodes a response body into a structured value for template
// consumption. Non-JSON bodies are returned as the raw text.
func ParseObject(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return text
	}
	return value
}
