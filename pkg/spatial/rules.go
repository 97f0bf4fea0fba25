package spatial

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed wilderness_rules.yaml
var defaultRulesYAML []byte

// WildernessRule adds Sentence to a wilderness description when any keyword
// appears in a feature name.
type WildernessRule struct {
	Keywords []string `yaml:"keywords"`
	Sentence string   `yaml:"sentence"`
}

// WildernessRules turn a parent's feature names into a filler description.
type WildernessRules struct {
	Generic string           `yaml:"generic"`
	Rules   []WildernessRule `yaml:"rules"`
}

// DefaultWildernessRules returns the built-in rules.
func DefaultWildernessRules() *WildernessRules {
	r, err := ParseWildernessRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded wilderness rules: %v", err))
	}
	return r
}

// LoadWildernessRules reads rules from a YAML file.
func LoadWildernessRules(path string) (*WildernessRules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wilderness rules: %w", err)
	}
	r, err := ParseWildernessRules(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseWildernessRules decodes YAML rules. The generic sentence is required.
func ParseWildernessRules(raw []byte) (*WildernessRules, error) {
	var r WildernessRules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to parse wilderness rules: %w", err)
	}
	if strings.TrimSpace(r.Generic) == "" {
		return nil, errors.New("wilderness rules: generic sentence is required")
	}
	for i, rule := range r.Rules {
		if len(rule.Keywords) == 0 || strings.TrimSpace(rule.Sentence) == "" {
			return nil, fmt.Errorf("wilderness rules: rule %d needs keywords and a sentence", i)
		}
		for j := range rule.Keywords {
			r.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(rule.Keywords[j]))
		}
	}
	return &r, nil
}

// Describe builds a description from feature names. Each matching rule
// contributes its sentence once, in rule order.
func (r *WildernessRules) Describe(featureNames []string) string {
	lowered := make([]string, len(featureNames))
	for i, n := range featureNames {
		lowered[i] = strings.ToLower(n)
	}

	var sentences []string
	for _, rule := range r.Rules {
		if matchesAny(lowered, rule.Keywords) {
			sentences = append(sentences, rule.Sentence)
		}
	}
	if len(sentences) == 0 {
		return r.Generic
	}
	return strings.Join(sentences, " ")
}

func matchesAny(names, keywords []string) bool {
	for _, n := range names {
		for _, k := range keywords {
			if k != "" && strings.Contains(n, k) {
				return true
			}
		}
	}
	return false
}
