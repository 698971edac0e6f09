package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ParseJSONResponse extracts a JSON object from LLM output. A fenced code
// block is preferred; otherwise the text from the first '{' to the last '}'
// is used. The returned map is never nil: on failure it is empty and the
// error says why.
func ParseJSONResponse(text string) (map[string]any, error) {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start != -1 && end > start {
			text = text[start : end+1]
		}
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return map[string]any{}, fmt.Errorf("parse JSON from LLM response: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return map[string]any{}, nil
		}
		return map[string]any{}, fmt.Errorf("LLM response is JSON %T, not an object", v)
	}
	return obj, nil
}
