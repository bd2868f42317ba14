// Package parse decodes record lists supplied by users for import.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lherron/quotesync/internal/domain"
	"github.com/lherron/quotesync/internal/store"
)

// Format represents supported input formats
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat determines whether data is a JSON or YAML document.
func DetectFormat(data []byte) (Format, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("input is empty")
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid(data) {
			return FormatJSON, nil
		}
		return "", fmt.Errorf("input appears to be JSON but is invalid")
	}

	// Plain text is valid YAML; only structured documents count.
	var probe interface{}
	if err := yaml.Unmarshal(data, &probe); err == nil {
		switch probe.(type) {
		case map[string]interface{}, []interface{}:
			return FormatYAML, nil
		}
	}
	return "", fmt.Errorf("input is neither a JSON nor a YAML document")
}

// FormatFromPath guesses the format from a file extension. It returns "" when
// the extension is not recognized.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	}
	return ""
}

// Records decodes a list of records in the given format, auto-detecting it
// when format is empty. The document must be a list; entries without text or
// category are rejected with their position.
func Records(data []byte, format string) ([]store.StoredRecord, error) {
	f := Format(strings.ToLower(format))
	if f == "" {
		detected, err := DetectFormat(data)
		if err != nil {
			return nil, err
		}
		f = detected
	}

	var out []store.StoredRecord
	switch f {
	case FormatJSON:
		trimmed := strings.TrimSpace(string(data))
		if !strings.HasPrefix(trimmed, "[") {
			return nil, fmt.Errorf("invalid JSON format (expected array)")
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case FormatYAML, "yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("invalid YAML format (expected list)")
		}
		if err := node.Decode(&out); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	for i := range out {
		out[i].Text = strings.TrimSpace(out[i].Text)
		out[i].Category = strings.TrimSpace(out[i].Category)
		if err := domain.ValidateText(out[i].Text); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := domain.ValidateCategory(out[i].Category); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return out, nil
}
