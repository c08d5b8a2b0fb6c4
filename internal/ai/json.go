package ai

import (
	"encoding/json"
	"strings"
)

// CleanJSON strips markdown code fences from a model response. When the
// remainder is still not valid JSON, the first balanced array or object in
// the text is returned instead; failing that the stripped text is returned
// unchanged so the caller can report the parse error.
func CleanJSON(s string) string {
	s = stripCodeFences(s)
	if json.Valid([]byte(s)) {
		return s
	}
	if j := findFirstJSON(s); j != "" {
		return j
	}
	return s
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// findFirstJSON scans for the first balanced [...] or {...} span that
// decodes as JSON. Brackets inside string literals are ignored.
func findFirstJSON(s string) string {
	for start := 0; start < len(s); start++ {
		if s[start] != '[' && s[start] != '{' {
			continue
		}
		if end := matchClose(s, start); end != -1 {
			if cand := s[start : end+1]; json.Valid([]byte(cand)) {
				return cand
			}
		}
	}
	return ""
}

func matchClose(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
