package llm

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// adjustmentsSchema accepts a flat trait-delta object, optionally nested
// under "personality_adjustments" alongside a reflection. Delta bounds are
// enforced by the caller's clamp, not the schema, so slightly out-of-range
// model output still applies (clamped) instead of being discarded.
const adjustmentsSchemaJSON = `{
	"type": "object",
	"properties": {
		"reflection": {"type": "string"},
		"personality_adjustments": {
			"type": "object",
			"additionalProperties": {"type": "number"}
		},
		"warmth": {"type": "number"},
		"logic": {"type": "number"},
		"creativity": {"type": "number"},
		"energy": {"type": "number"},
		"humor": {"type": "number"}
	}
}`

var adjustmentsSchema = mustCompileSchema(adjustmentsSchemaJSON)

func mustCompileSchema(schemaJSON string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		panic(err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// ParseAdjustments extracts trait deltas from a model response. It accepts
// either a flat {"warmth":1,...} object or one nested under
// "personality_adjustments". Malformed output returns ok=false; the caller
// simply skips the mutation for that invocation.
func ParseAdjustments(text string) (deltas map[string]int, ok bool) {
	jsonStr := ExtractJSON(text)
	if jsonStr == "" {
		return nil, false
	}

	// jsonschema.UnmarshalJSON keeps numbers as json.Number, which the
	// validator requires.
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(jsonStr))
	if err != nil {
		return nil, false
	}
	if err := adjustmentsSchema.Validate(parsed); err != nil {
		return nil, false
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, false
	}
	if nested, ok := obj["personality_adjustments"].(map[string]any); ok {
		obj = nested
	}

	deltas = make(map[string]int)
	for _, trait := range []string{"warmth", "logic", "creativity", "energy", "humor"} {
		if raw, present := obj[trait]; present {
			if num, ok := raw.(json.Number); ok {
				if f, err := num.Float64(); err == nil {
					deltas[trait] = int(f)
				}
			}
		}
	}
	if len(deltas) == 0 {
		return nil, false
	}
	return deltas, true
}

// ExtractJSON finds a JSON object or array in the response text.
func ExtractJSON(text string) string {
	// 1. Try fenced JSON block: ```json\n...\n```
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + 7
		// Skip optional newline after ```json
		if start < len(text) && text[start] == '\n' {
			start++
		}
		if end := strings.Index(text[start:], "```"); end >= 0 {
			candidate := strings.TrimSpace(text[start : start+end])
			if candidate != "" {
				return candidate
			}
		}
	}

	// 2. Try generic fenced block: ```\n...\n```
	if idx := strings.Index(text, "```\n"); idx >= 0 {
		start := idx + 4
		if end := strings.Index(text[start:], "```"); end >= 0 {
			candidate := strings.TrimSpace(text[start : start+end])
			if isJSON(candidate) {
				return candidate
			}
		}
	}

	// 3. Try raw JSON: find first { or [ and match closing
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			candidate := extractBalanced(text[i:])
			if candidate != "" && isJSON(candidate) {
				return candidate
			}
		}
	}

	return ""
}

// isJSON checks if a string is valid JSON.
func isJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}

// extractBalanced extracts a balanced JSON structure from the start of the string.
func extractBalanced(s string) string {
	if len(s) == 0 {
		return ""
	}

	open := s[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' && inString {
			escaped = true
			continue
		}

		if ch == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if ch == open {
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}

	return ""
}
