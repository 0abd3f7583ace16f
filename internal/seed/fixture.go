// Package seed loads YAML fixture files into document repositories and
// links the created nodes through their declared relationships.
package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is one fixture file.
//
//	items:
//	  - kind: person
//	    ref: alice
//	    values: {name: Alice, age: 30}
//	    links: {employer: acme}
type File struct {
	Items []Item `yaml:"items"`

	Path string `yaml:"-"`
}

type Item struct {
	Kind   string         `yaml:"kind"`
	Ref    string         `yaml:"ref"`
	Values map[string]any `yaml:"values"`
	// Links maps a relationship key to one ref or a list of refs.
	Links map[string]any `yaml:"links"`
}

var (
	ErrInvalidYAML = errors.New("invalid fixture YAML")
	ErrMissingKind = errors.New("fixture item missing required 'kind' field")
)

func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

func Parse(content []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	for i, item := range f.Items {
		if strings.TrimSpace(item.Kind) == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrMissingKind)
		}
		for key, v := range item.Links {
			if _, err := refs(v); err != nil {
				return nil, fmt.Errorf("item %d link %s: %w", i, key, err)
			}
		}
	}
	return &f, nil
}

// refs reads a link value: one ref or a list of refs.
func refs(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("refs must be strings")
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("link must be a ref or list of refs")
	}
}
