// Package parse extracts structured payloads from free-form model output.
// Completion providers frequently wrap JSON in prose or code fences; callers
// get a tagged ok/not-ok result and decide on their own fallbacks instead of
// treating malformed output as an error.
package parse

import "encoding/json"

// FirstObject locates the first well-formed JSON object substring in raw and
// returns it. The scan is brace-matching and string-aware, so braces inside
// string literals do not confuse it. Returns ok=false when no balanced object
// exists or the candidate fails to parse.
func FirstObject(raw string) (json.RawMessage, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), true
				}
				// Keep scanning: a later substring may still be valid.
				start = -1
			}
		}
	}

	return nil, false
}

// Unmarshal decodes the first JSON object in raw into dst. Returns false when
// no object is found or decoding fails; dst is left untouched in that case.
func Unmarshal(raw string, dst any) bool {
	obj, ok := FirstObject(raw)
	if !ok {
		return false
	}
	return json.Unmarshal(obj, dst) == nil
}
