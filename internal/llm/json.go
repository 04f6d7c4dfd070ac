package llm

import (
	"encoding/json"
	"strings"

	"github.com/pa-workflow-server/internal/domain"
)

// ParseJSONResponse extracts a JSON object from a model response. Models
// sometimes wrap the payload in a markdown code fence even when asked for
// bare JSON, so a fenced block is unwrapped before decoding. A response that
// still fails to decode yields a ParseError carrying the raw text.
func ParseJSONResponse(content string) (map[string]interface{}, error) {
	text := strings.TrimSpace(content)

	if strings.Contains(text, "```json") {
		parts := strings.SplitN(text, "```json", 2)
		text = parts[1]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	} else if strings.Contains(text, "```") {
		parts := strings.SplitN(text, "```", 2)
		text = parts[1]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, domain.NewParseError(content, err)
	}

	return parsed, nil
}
