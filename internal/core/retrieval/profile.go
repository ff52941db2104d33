package retrieval

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Store kinds a profile can target.
const (
	storeKnowledge = "knowledge"
	storeSchedule  = "schedule"
)

// Ordering kinds the ranker understands.
const (
	orderScore         = "score"
	orderSequence      = "sequence"
	orderChronological = "chronological"
)

// Rule is one entry of the ordered classification table. A rule matches when
// the lowercased query contains any of its phrases.
type Rule struct {
	Category string   `yaml:"category"`
	Any      []string `yaml:"any"`
}

// Boosts are the additive score adjustments applied on top of the store's
// base relevance. Magnitudes are chosen so an exact identity match always
// outranks a keyword-only match, which outranks a pure recency tie-break.
type Boosts struct {
	Identity float64 `yaml:"identity"`
	Entity   float64 `yaml:"entity"`
	Keyword  float64 `yaml:"keyword"`
	Recency  float64 `yaml:"recency"`
}

// CoverageSpec names the sub-entities that must be represented in the result
// set for enumeration-style categories.
type CoverageSpec struct {
	Field  string   `yaml:"field"`
	Values []string `yaml:"values"`
	Score  float64  `yaml:"score"`
}

// OrderSpec is a category-specific structural ordering. Kind "sequence"
// orders by the position of a metadata field in an explicit list; kind
// "chronological" orders by a numeric/lexicographic metadata field.
type OrderSpec struct {
	Kind      string   `yaml:"kind"`
	Field     string   `yaml:"field"`
	Sequence  []string `yaml:"sequence"`
	Direction string   `yaml:"direction"`
}

// Profile parameterizes the shared three-stage strategy for one category.
type Profile struct {
	Category   domain.Category `yaml:"-"`
	Store      string          `yaml:"store"`
	Sections   []string        `yaml:"sections"`
	Types      []string        `yaml:"types"`
	Markers    []string        `yaml:"markers"`
	Enrich     string          `yaml:"enrich"`
	Boosts     Boosts          `yaml:"boosts"`
	VectorTopK int             `yaml:"vector_top_k"`
	StageLimit int             `yaml:"stage_limit"`
	MinResults int             `yaml:"min_results"`
	Required   *CoverageSpec   `yaml:"required"`
	Order      OrderSpec       `yaml:"order"`
}

// RuleSet is the parsed, validated rules file: the ordered classification
// table plus one strategy profile per category.
type RuleSet struct {
	Rules      []Rule
	Profiles   map[domain.Category]Profile
	vocabulary []string
}

type rulesFile struct {
	Rules      []Rule             `yaml:"rules"`
	Profiles   map[string]Profile `yaml:"profiles"`
	Vocabulary []string           `yaml:"vocabulary"`
}

// DefaultRuleSet parses the embedded rules file.
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRulesYAML)
}

// ParseRuleSet parses and validates a rules file. Every category must have a
// profile and every rule must name a known category.
func ParseRuleSet(raw []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file has no classification rules")
	}

	profiles := make(map[domain.Category]Profile, len(file.Profiles))
	for name, profile := range file.Profiles {
		category, ok := domain.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("profile for unknown category %q", name)
		}
		profile.Category = category
		profiles[category] = applyProfileDefaults(profile)
	}
	for _, category := range domain.Categories() {
		if _, ok := profiles[category]; !ok {
			return nil, fmt.Errorf("category %q has no strategy profile", category)
		}
	}

	for i, rule := range file.Rules {
		if _, ok := domain.ParseCategory(rule.Category); !ok {
			return nil, fmt.Errorf("rule %d targets unknown category %q", i, rule.Category)
		}
		if len(rule.Any) == 0 {
			return nil, fmt.Errorf("rule %d (%s) has no match phrases", i, rule.Category)
		}
	}

	rs := &RuleSet{Rules: file.Rules, Profiles: profiles}
	rs.vocabulary = buildVocabulary(file, profiles)
	return rs, nil
}

// Profile returns the strategy profile for a category, falling back to the
// general profile for anything unmapped.
func (rs *RuleSet) Profile(category domain.Category) Profile {
	if profile, ok := rs.Profiles[category]; ok {
		return profile
	}
	return rs.Profiles[domain.CategoryGeneral]
}

// Vocabulary returns the deduplicated word list used for typo correction.
func (rs *RuleSet) Vocabulary() []string {
	out := make([]string, len(rs.vocabulary))
	copy(out, rs.vocabulary)
	return out
}

func applyProfileDefaults(p Profile) Profile {
	if p.Store == "" {
		p.Store = storeKnowledge
	}
	if p.VectorTopK <= 0 {
		p.VectorTopK = 8
	}
	if p.StageLimit <= 0 {
		p.StageLimit = 12
	}
	if p.MinResults <= 0 {
		p.MinResults = 3
	}
	if p.Boosts == (Boosts{}) {
		p.Boosts = Boosts{Identity: 3.0, Entity: 2.0, Keyword: 0.75, Recency: 0.25}
	}
	if p.Required != nil && p.Required.Score <= 0 {
		p.Required.Score = coverageScore
	}
	if p.Order.Kind == "" {
		p.Order.Kind = orderScore
	}
	if p.Order.Kind == orderChronological && p.Order.Direction == "" {
		p.Order.Direction = "asc"
	}
	return p
}

func buildVocabulary(file rulesFile, profiles map[domain.Category]Profile) []string {
	seen := make(map[string]struct{}, 128)
	add := func(s string) {
		for _, word := range tokenize(s) {
			if len(word) < 3 {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	for _, word := range file.Vocabulary {
		add(word)
	}
	for _, rule := range file.Rules {
		for _, phrase := range rule.Any {
			add(phrase)
		}
	}
	for _, profile := range profiles {
		for _, marker := range profile.Markers {
			add(marker)
		}
		if profile.Required != nil {
			for _, value := range profile.Required.Values {
				add(strings.ToLower(value))
			}
		}
	}

	out := make([]string, 0, len(seen))
	for word := range seen {
		out = append(out, word)
	}
	sort.Strings(out)
	return out
}
