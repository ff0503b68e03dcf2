package services

import (
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

type extractStrategy struct {
	name string
	find func(text string) (string, bool)
}

// Tried in order; the first candidate that decodes wins.
var extractStrategies = []extractStrategy{
	{"direct", func(text string) (string, bool) { return text, true }},
	{"json_fence", func(text string) (string, bool) { return fenced(text, "```json") }},
	{"fence", func(text string) (string, bool) { return fenced(text, "```") }},
	{"braces", outermostBraces},
}

// ExtractJSON recovers a JSON object of type T from model output that may be
// plain JSON, wrapped in a code fence, or embedded in prose.
func ExtractJSON[T any](text string) (T, error) {
	var zero T
	text = strings.TrimSpace(text)
	if text == "" {
		return zero, &ParseError{Reason: "empty response"}
	}

	for _, s := range extractStrategies {
		candidate, ok := s.find(text)
		if !ok {
			continue
		}
		var out T
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &out); err == nil {
			return out, nil
		}
	}

	return zero, &ParseError{Reason: "no JSON object found in: " + truncate(text, 200)}
}

func fenced(text, open string) (string, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	start += len(open)
	end := strings.Index(text[start:], "```")
	if end < 0 {
		return "", false
	}
	return text[start : start+end], true
}

func outermostBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
