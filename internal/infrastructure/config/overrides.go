package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Format is the encoding of an overrides file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from the file extension, YAML by default
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ModelOverride adds an entry to the model catalog
type ModelOverride struct {
	ID          string `yaml:"id" toml:"id"`
	Provider    string `yaml:"provider" toml:"provider"`
	DisplayName string `yaml:"name" toml:"name"`
}

// Overrides is the overrides file, YAML or TOML.
//
//	model: claude-3-5-sonnet-20241022
//	system_message: |
//	  You are in CLI simulation mode...
//	user_message: "curl -s -L [url]"
//	models:
//	  - id: my-finetune
//	    provider: openai
//	    name: my finetune
type Overrides struct {
	Model         string          `yaml:"model" toml:"model"`
	SystemMessage string          `yaml:"system_message" toml:"system_message"`
	UserMessage   string          `yaml:"user_message" toml:"user_message"`
	Models        []ModelOverride `yaml:"models" toml:"models"`
}

// LoadOverrides reads and validates an overrides file. An empty path yields
// empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	return ParseOverridesAs(raw, FormatOf(path))
}

// ParseOverrides decodes a YAML overrides document
func ParseOverrides(raw []byte) (*Overrides, error) {
	return ParseOverridesAs(raw, FormatYAML)
}

// ParseOverridesAs decodes an overrides document in the given format.
// Unknown keys are rejected in both formats.
func ParseOverridesAs(raw []byte, format Format) (*Overrides, error) {
	var o Overrides
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&o); err != nil {
			return nil, fmt.Errorf("failed to parse overrides: %w", err)
		}
	default:
		if err := yaml.UnmarshalWithOptions(raw, &o, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("failed to parse overrides: %w", err)
		}
	}
	for i, m := range o.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("models[%d]: id is required", i)
		}
	}
	return &o, nil
}

// Empty reports whether the file set nothing
func (o *Overrides) Empty() bool {
	return o.Model == "" && o.SystemMessage == "" && o.UserMessage == "" && len(o.Models) == 0
}
