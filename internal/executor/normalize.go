package executor

import (
	"encoding/json"
	"strings"

	"github.com/bobmcallan/toolgate/internal/validate"
)

// normalizeResponse maps a remote response body onto the envelope. Recognized
// shapes: an object with error, an object with result, an object with a
// content array, and bare scalars. Anything else is returned as JSON.
func normalizeResponse(body []byte) Result {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return TextResult(strings.TrimSpace(string(body)))
	}
	return normalizeValue(doc)
}

func normalizeValue(v any) Result {
	switch t := v.(type) {
	case nil:
		return TextResult("")
	case string:
		return TextResult(t)
	case bool, float64:
		return TextResult(validate.Stringify(t))
	case map[string]any:
		if e, ok := t["error"]; ok && e != nil {
			return Result{Content: "Error: " + errorMessage(e), IsError: true}
		}
		if r, ok := t["result"]; ok {
			res := normalizeValue(r)
			if isErr, _ := t["isError"].(bool); isErr {
				res.IsError = true
			}
			return res
		}
		if content, ok := t["content"].([]any); ok {
			isErr, _ := t["isError"].(bool)
			return Result{Content: firstText(content), IsError: isErr}
		}
	}
	return TextResult(compactJSON(v))
}

func errorMessage(e any) string {
	if m, ok := e.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if s, ok := e.(string); ok {
		return s
	}
	return compactJSON(e)
}

func firstText(content []any) string {
	if len(content) == 0 {
		return ""
	}
	if item, ok := content[0].(map[string]any); ok {
		if text, ok := item["text"].(string); ok {
			return text
		}
	}
	return compactJSON(content[0])
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return validate.Stringify(v)
	}
	return string(raw)
}
