// Package jsonutil extracts JSON objects from model output. Every stage that
// consumes generated text parses it through this package so the tolerance
// rules (markdown fences, surrounding prose, nested braces) stay uniform.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedOutputError reports output that could not be parsed as the
// expected JSON object. Raw carries the original model output so callers can
// log it when deciding whether the failure is recoverable.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

// stripFences removes a leading/trailing triple-backtick fence, with or
// without a "json" language tag.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// Extract returns the JSON object embedded in raw model output. It first
// strips markdown fences and attempts a direct parse; on failure it scans for
// the first '{' and returns the substring up to the matching closing brace.
func Extract(raw string) (string, error) {
	cleaned := stripFences(raw)

	if json.Valid([]byte(cleaned)) && strings.HasPrefix(cleaned, "{") {
		return cleaned, nil
	}

	start := strings.IndexByte(cleaned, '{')
	if start == -1 {
		return "", &MalformedOutputError{Reason: "no JSON object found", Raw: raw}
	}

	depth := 0
	for i := start; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := cleaned[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return "", &MalformedOutputError{Reason: "extracted object is not valid JSON", Raw: raw}
				}
				return candidate, nil
			}
		}
	}
	return "", &MalformedOutputError{Reason: "unbalanced braces", Raw: raw}
}

// Decode extracts the JSON object from raw and unmarshals it into v.
func Decode(raw string, v any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &MalformedOutputError{Reason: err.Error(), Raw: raw}
	}
	return nil
}

// DecodeObject extracts the JSON object from raw and returns its top-level
// keys, for callers that validate shape before committing to a schema.
func DecodeObject(raw string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := Decode(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// RequireList validates that key exists in obj and holds a JSON array.
func RequireList(obj map[string]json.RawMessage, key string, raw string) error {
	val, ok := obj[key]
	if !ok {
		return &MalformedOutputError{Reason: fmt.Sprintf("missing %q key", key), Raw: raw}
	}
	trimmed := strings.TrimSpace(string(val))
	if !strings.HasPrefix(trimmed, "[") {
		return &MalformedOutputError{Reason: fmt.Sprintf("%q is not a list", key), Raw: raw}
	}
	return nil
}
