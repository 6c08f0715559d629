package policy

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type fileRule struct {
	Path  string   `mapstructure:"path"`
	Kind  string   `mapstructure:"kind"`
	Roles []string `mapstructure:"roles"`
}

type fileDocument struct {
	Rules []fileRule `mapstructure:"rules"`
}

// LoadFile reads a YAML policy file.
func LoadFile(filename string) (*Policy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", filename, err)
	}
	return p, nil
}

// Parse decodes a YAML policy document of the form
//
//	rules:
//	  - path: /admin/*
//	    kind: role-any
//	    roles: [ADMIN]
func Parse(data []byte) (*Policy, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}

	var doc fileDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create policy decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for _, fr := range doc.Rules {
		pred := Predicate{Kind: Kind(fr.Kind)}
		if pred.Kind == KindRoleAny {
			pred = HasAnyRole(fr.Roles...)
		} else if len(fr.Roles) > 0 {
			pred.Roles = fr.Roles
		}
		rules = append(rules, Rule{Pattern: fr.Path, Predicate: pred})
	}
	return New(rules)
}
