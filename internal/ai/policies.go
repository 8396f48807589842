package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var defaultCatalog []byte

const defaultPolicyKey = "default"

type PolicyText struct {
	Terms    string `yaml:"terms"`
	Coverage string `yaml:"coverage"`
	History  string `yaml:"history"`
}

type PolicyCatalog map[string]PolicyText

// LoadPolicyCatalog reads a YAML catalog from path, or the built-in one when
// path is empty. A file entry overrides the built-in entry with the same id
// field by field; fields it leaves empty keep the built-in text.
func LoadPolicyCatalog(path string) (PolicyCatalog, error) {
	base, err := ParsePolicyCatalog(defaultCatalog)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy catalog: %w", err)
	}
	custom, err := ParsePolicyCatalog(data)
	if err != nil {
		return nil, err
	}
	for k, v := range custom {
		base[k] = v.orElse(base[k])
	}
	return base, nil
}

func ParsePolicyCatalog(data []byte) (PolicyCatalog, error) {
	var c PolicyCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse policy catalog: %w", err)
	}
	if c == nil {
		c = PolicyCatalog{}
	}
	return c, nil
}

// Lookup returns the texts for policyID, falling back to the default entry
// for any field the policy leaves empty.
func (c PolicyCatalog) Lookup(policyID string) PolicyText {
	def := c[defaultPolicyKey]
	p, ok := c[policyID]
	if !ok {
		return def
	}
	return p.orElse(def)
}

// orElse fills the empty fields of p from fallback.
func (p PolicyText) orElse(fallback PolicyText) PolicyText {
	if p.Terms == "" {
		p.Terms = fallback.Terms
	}
	if p.Coverage == "" {
		p.Coverage = fallback.Coverage
	}
	if p.History == "" {
		p.History = fallback.History
	}
	return p
}
