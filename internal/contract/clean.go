package contract

import (
	"encoding/json"
	"strings"
)

// CleanModelJSON strips Markdown fences and surrounding commentary from a model
// response, keeping the span from the first open to the last matching close
// delimiter. open is '[' for lists and '{' for objects. It returns "" when no
// such span exists.
func CleanModelJSON(raw string, open byte) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	// A complete JSON document is returned whole so that a wrong top-level
	// shape is reported as such instead of slicing out a nested value.
	if json.Valid([]byte(s)) {
		return s
	}

	closeCh := byte(']')
	if open == '{' {
		closeCh = '}'
	}

	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closeCh)
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
