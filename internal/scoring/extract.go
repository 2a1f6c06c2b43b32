package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSON means the model output contains no object at all.
	ErrNoJSON = errors.New("no JSON object found in model output")
	// ErrMalformedJSON means an object was located but could not be parsed.
	ErrMalformedJSON = errors.New("malformed JSON in model output")
)

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractObject recovers the first well-formed JSON object from free-form
// model text. The text may wrap the object in prose or a fenced code block,
// and may be truncated by the generation limit.
//
// The scan tracks string state so braces inside string values are ignored.
// If the object never closes (truncated output), everything from the first
// '{' to the last '}' is parsed as a best-effort fallback: length-limited
// generations usually still end on a closing brace.
func ExtractObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	first := strings.IndexByte(text, '{')
	if first == -1 {
		return nil, ErrNoJSON
	}

	depth := 0
	inString := false
	escape := false
	for i := first; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return unmarshalObject(text[first : i+1])
			}
		}
	}

	// Truncated output: take first '{' through the last '}' and hope the
	// model closed the object on its way out.
	last := strings.LastIndexByte(text, '}')
	if last > first {
		text = text[first : last+1]
	} else {
		text = text[first:]
	}
	return unmarshalObject(text)
}

func unmarshalObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return obj, nil
}
