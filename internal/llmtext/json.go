// Package llmtext extracts machine-readable structure from the free-form text
// the reasoning service returns. Responses regularly arrive wrapped in prose
// or markdown fences, so parsing is tolerant up front and strict afterwards.
package llmtext

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ExtractObject locates the outermost JSON object in a response and decodes
// it into v. Surrounding prose, ```json fences, and stray control characters
// are tolerated; a missing or undecodable object is an error.
func ExtractObject(content string, v any) error {
	trimmed := TrimToObject(content)
	if trimmed == "" {
		return fmt.Errorf("no JSON object found in response")
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	cleaned := controlChars.ReplaceAllString(trimmed, "")
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("decode response object: %w", err)
	}
	return nil
}

// TrimToObject strips fences and prose, returning the substring from the
// first '{' to the last '}', or "" when no object delimiters are present.
func TrimToObject(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
