package targets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// targetList is the document shape shared by the structured formats:
// a top-level "urls" array of strings.
type targetList struct {
	URLs []string `json:"urls" yaml:"urls" toml:"urls"`
}

type yamlLoader struct{}

func (yamlLoader) Extensions() []string { return []string{".yaml", ".yml"} }

func (yamlLoader) Extract(content []byte) ([]string, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	var doc targetList
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return doc.URLs, nil
}

type tomlLoader struct{}

func (tomlLoader) Extensions() []string { return []string{".toml"} }

func (tomlLoader) Extract(content []byte) ([]string, error) {
	var doc targetList
	if _, err := toml.Decode(string(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return doc.URLs, nil
}

// jsonLoader accepts either {"urls": [...]} or a bare array of strings.
type jsonLoader struct{}

func (jsonLoader) Extensions() []string { return []string{".json"} }

func (jsonLoader) Extract(content []byte) ([]string, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, nil
	}

	if content[0] == '[' {
		var urls []string
		if err := json.Unmarshal(content, &urls); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return urls, nil
	}

	var doc targetList
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if doc.URLs == nil {
		return nil, errors.New(`invalid JSON: expected an array or an object with "urls"`)
	}
	return doc.URLs, nil
}
