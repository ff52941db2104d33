package retrieval

import (
	"strings"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// Classifier maps a query string to exactly one category using the ordered
// rule table. Evaluation is top to bottom, first match wins; unmatched
// queries fall through to the general category. Classification has no side
// effects and is deterministic.
//
// Phrases match on whole-word boundaries: the tokenized phrase must appear
// as a contiguous token run in the tokenized query. "mission" therefore
// never matches inside "admission", "grant" never inside "migrants".
type Classifier struct {
	rules []compiledRule
}

type compiledRule struct {
	category domain.Category
	phrases  [][]string
}

func NewClassifier(rules []Rule) *Classifier {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		category, ok := domain.ParseCategory(rule.Category)
		if !ok {
			continue
		}
		phrases := make([][]string, 0, len(rule.Any))
		for _, phrase := range rule.Any {
			tokens := normalizeTokens(tokenize(phrase))
			if len(tokens) == 0 {
				continue
			}
			phrases = append(phrases, tokens)
		}
		compiled = append(compiled, compiledRule{category: category, phrases: phrases})
	}
	return &Classifier{rules: compiled}
}

func (c *Classifier) Classify(query string) domain.Category {
	tokens := normalizeTokens(tokenize(query))
	if len(tokens) == 0 {
		return domain.CategoryGeneral
	}

	for _, rule := range c.rules {
		for _, phrase := range rule.phrases {
			if containsTokenRun(tokens, phrase) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneral
}

func containsTokenRun(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, word := range phrase {
			if tokens[i+j] != word {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		out[i] = normalizeToken(token)
	}
	return out
}

// normalizeToken folds trailing plural "s" so "scholarships" matches the
// "scholarship" phrase. Both phrases and queries pass through it, keeping
// the comparison symmetric.
func normalizeToken(token string) string {
	if len(token) > 3 && strings.HasSuffix(token, "s") {
		return token[:len(token)-1]
	}
	return token
}
