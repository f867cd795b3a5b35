// Package frontmatter extracts the metadata block from the top of a
// content file.
//
// The canonical form is a JSON object between two `+++` delimiter lines.
// YAML front matter between `---` delimiters is accepted as well. Parsing
// is total: any malformed input degrades to "no front matter" with the
// original text returned as body, and no error escapes this package.
package frontmatter

import (
	"encoding/json"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	jsonDelimiter = "+++"
	yamlDelimiter = "---"
)

// Parse splits raw content into front matter and body.
//
// Content that does not start with a recognized delimiter, or that has no
// closing delimiter, comes back unchanged with an empty front matter map.
func Parse(raw string) (map[string]any, string) {
	switch {
	case strings.HasPrefix(raw, jsonDelimiter):
		return parseDelimited(raw, jsonDelimiter, parseJSONHeader)
	case strings.HasPrefix(raw, yamlDelimiter):
		return parseDelimited(raw, yamlDelimiter, parseYAMLHeader)
	default:
		return map[string]any{}, raw
	}
}

func parseDelimited(raw, delimiter string, parseHeader func(string) (map[string]any, error)) (map[string]any, string) {
	parts := strings.SplitN(raw, delimiter, 3)
	if len(parts) < 3 {
		// No closing delimiter; the whole text is body.
		return map[string]any{}, raw
	}

	fields, err := parseHeader(parts[1])
	if err != nil {
		slog.Error("Failed to parse front matter, treating whole file as body", "error", err)
		return map[string]any{}, raw
	}
	return fields, strings.TrimSpace(parts[2])
}

func parseJSONHeader(header string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(header), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func parseYAMLHeader(header string) (map[string]any, error) {
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(header), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
