package review

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/thywilljoshua/slidecheck/internal/finding"
)

//go:embed rules/internal_rules.yaml
var defaultRulesYAML []byte

//go:embed rules/yakukihou_summary.md
var defaultLawSummary string

// Rule is one entry of the internal rules catalog.
type Rule struct {
	ID          string                 `yaml:"id"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Correction  finding.CorrectionType `yaml:"correction"`
}

// RuleSet is the internal rules catalog fed to the initial prompt.
type RuleSet struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// ParseRuleSet decodes and validates a YAML rules catalog.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("rules catalog %q has no rules", rs.Name)
	}
	seen := make(map[string]bool, len(rs.Rules))
	for i, r := range rs.Rules {
		if r.ID == "" || r.Title == "" {
			return nil, fmt.Errorf("rule[%d]: id and title are required", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if !finding.IsValidCorrectionType(r.Correction) {
			return nil, fmt.Errorf("rule %s: invalid correction %q", r.ID, r.Correction)
		}
	}
	return &rs, nil
}

// LoadRuleSet reads a rules catalog from disk.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRuleSet(data)
}

// DefaultRuleSet returns the embedded catalog.
func DefaultRuleSet() *RuleSet {
	rs, err := ParseRuleSet(defaultRulesYAML)
	if err != nil {
		panic("review: embedded rules: " + err.Error())
	}
	return rs
}

// DefaultLawSummary returns the embedded 薬機法 digest used by the
// enrichment pass.
func DefaultLawSummary() string { return defaultLawSummary }

// LoadLawSummary reads a law summary from path, or returns the embedded
// one when path is empty.
func LoadLawSummary(path string) (string, error) {
	if path == "" {
		return defaultLawSummary, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading law summary: %w", err)
	}
	return string(b), nil
}

// Format renders the catalog as prompt text, one numbered rule per
// paragraph.
func (rs *RuleSet) Format() string {
	var sb strings.Builder
	for i, r := range rs.Rules {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "ルール%s: %s\n", r.ID, r.Title)
		if r.Description != "" {
			sb.WriteString(r.Description)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// labels returns "ルールN（title）" for rules with the given correction type.
func (rs *RuleSet) labels(ct finding.CorrectionType) []string {
	var out []string
	for _, r := range rs.Rules {
		if r.Correction == ct {
			out = append(out, fmt.Sprintf("ルール%s（%s）", r.ID, r.Title))
		}
	}
	return out
}

// Catalog holds the active rule set and swaps it on reload.
type Catalog struct {
	mu    sync.RWMutex
	rules *RuleSet
}

func NewCatalog(rs *RuleSet) *Catalog {
	return &Catalog{rules: rs}
}

func (c *Catalog) Current() *RuleSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rules
}

func (c *Catalog) Set(rs *RuleSet) {
	c.mu.Lock()
	c.rules = rs
	c.mu.Unlock()
}

// Reload replaces the active rule set with the catalog at path. On error
// the previous rule set stays active.
func (c *Catalog) Reload(path string) (*RuleSet, error) {
	rs, err := LoadRuleSet(path)
	if err != nil {
		return nil, err
	}
	c.Set(rs)
	return rs, nil
}
