package research

import (
	"encoding/json"
	"regexp"
	"strings"
)

// extractJSON locates the JSON payload inside a model response and
// unmarshals it into v. It accepts the literal payload, a fenced code block,
// or the first balanced JSON array/object embedded in surrounding prose.
func extractJSON(text string, v interface{}) bool {
	candidates := []string{strings.TrimSpace(stripFences(text))}

	if arr := firstBalanced(text, '[', ']'); arr != "" {
		candidates = append(candidates, arr)
	}
	if obj := firstBalanced(text, '{', '}'); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return true
		}
	}
	return false
}

var reFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

func stripFences(text string) string {
	if m := reFence.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

// firstBalanced returns the first substring delimited by a balanced
// open/close pair, respecting JSON string literals and escapes.
func firstBalanced(text string, opener, closer byte) string {
	start := strings.IndexByte(text, opener)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == opener:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// The backend does not always honor the response schema, so URLs are also
// scavenged from the raw text with a permissive pattern.
var reURL = regexp.MustCompile(`https?://[^\s"'<>\\\]\[)(]+`)

// extractURLs scans free-form text for URLs, trimming trailing punctuation
// and dropping exact duplicates while preserving first-seen order.
func extractURLs(text string) []string {
	matches := reURL.FindAllString(text, -1)
	var urls []string
	seen := make(map[string]bool)
	for _, m := range matches {
		u := strings.TrimRight(m, ".,;:!?")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}
