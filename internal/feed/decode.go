package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// Format is the encoding of a feed document.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a configuration value to a Format. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, s)
}

// envelope is the object form of a feed document.
type envelope struct {
	IOCs []domain.IOC `json:"iocs" yaml:"iocs"`
}

// Decode parses a feed document. Both a bare list of records and an object
// with an "iocs" list are accepted. FormatAuto sniffs the first non-space
// byte: '[' or '{' is JSON, anything else YAML.
func Decode(data []byte, format Format) ([]domain.IOC, error) {
	if format == FormatAuto || format == "" {
		format = sniff(data)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []domain.IOC{}, nil
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '{' {
			var env envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return nil, fmt.Errorf("decoding JSON feed: %w", err)
			}
			return nonNil(env.IOCs), nil
		}
		var records []domain.IOC
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decoding JSON feed: %w", err)
		}
		return nonNil(records), nil
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("decoding YAML feed: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var env envelope
			if err := node.Decode(&env); err != nil {
				return nil, fmt.Errorf("decoding YAML feed: %w", err)
			}
			return nonNil(env.IOCs), nil
		}
		var records []domain.IOC
		if err := node.Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding YAML feed: %w", err)
		}
		return nonNil(records), nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
}

// FormatFor picks a format from a Content-Type header or file name,
// falling back to auto.
func FormatFor(contentType, name string) Format {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.HasSuffix(mt, "json"):
			return FormatJSON
		case strings.HasSuffix(mt, "yaml"), strings.HasSuffix(mt, "yml"):
			return FormatYAML
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}

func nonNil(records []domain.IOC) []domain.IOC {
	if records == nil {
		return []domain.IOC{}
	}
	return records
}
