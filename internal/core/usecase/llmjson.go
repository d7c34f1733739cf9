package usecase

import "strings"

// Model responses are asked for strict JSON but frequently wrap it in prose
// or code fences. These helpers cut out the first balanced-looking payload;
// callers treat a failed parse as a signal to use their fallback value.

func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func extractJSONArray(raw string) (string, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
