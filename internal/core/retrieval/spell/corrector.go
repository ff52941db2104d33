// Package spell corrects likely misspellings in a query against the known
// domain vocabulary before classification and retrieval.
package spell

import (
	"strings"
	"sync"
	"unicode"
)

// Corrector replaces query tokens that sit within a small edit distance of a
// vocabulary word. The vocabulary can be swapped at runtime when the
// knowledge base is refreshed; Correct is safe for concurrent use.
type Corrector struct {
	mu    sync.RWMutex
	words map[string]struct{}
	list  []string
}

func NewCorrector(vocabulary []string) *Corrector {
	c := &Corrector{}
	c.ReloadVocabulary(vocabulary)
	return c
}

// ReloadVocabulary replaces the whole vocabulary atomically.
func (c *Corrector) ReloadVocabulary(vocabulary []string) {
	words := make(map[string]struct{}, len(vocabulary))
	list := make([]string, 0, len(vocabulary))
	for _, word := range vocabulary {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, seen := words[word]; seen {
			continue
		}
		words[word] = struct{}{}
		list = append(list, word)
	}

	c.mu.Lock()
	c.words = words
	c.list = list
	c.mu.Unlock()
}

// Correct rewrites misspelled tokens and reports whether anything changed.
// Tokens already in the vocabulary, numbers, and short words pass through
// untouched.
func (c *Corrector) Correct(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return text, false
	}

	c.mu.RLock()
	words := c.words
	list := c.list
	c.mu.RUnlock()

	fields := strings.Fields(text)
	changed := false
	for i, field := range fields {
		core, prefix, suffix := trimPunct(field)
		if core == "" {
			continue
		}
		lower := strings.ToLower(core)
		if len(lower) < 4 || isNumeric(lower) {
			continue
		}
		if _, known := words[lower]; known {
			continue
		}
		replacement, ok := nearestWord(lower, list)
		if !ok {
			continue
		}
		fields[i] = prefix + replacement + suffix
		changed = true
	}

	if !changed {
		return text, false
	}
	return strings.Join(fields, " "), true
}

// nearestWord returns the vocabulary word within the allowed edit distance.
// The budget is 1 for short tokens and 2 from six characters up. The first
// vocabulary word at the minimum distance wins; the list order is stable, so
// correction is deterministic.
func nearestWord(token string, vocabulary []string) (string, bool) {
	budget := 1
	if len(token) >= 6 {
		budget = 2
	}

	best := ""
	bestDistance := budget + 1
	for _, word := range vocabulary {
		diff := len(word) - len(token)
		if diff < -budget || diff > budget {
			continue
		}
		d := editDistance(token, word, budget)
		if d < bestDistance {
			best = word
			bestDistance = d
		}
	}
	if bestDistance > budget {
		return "", false
	}
	return best, true
}

// editDistance is Damerau-Levenshtein (with adjacent transposition) bounded
// by max; it returns max+1 as soon as the bound is exceeded.
func editDistance(a, b string, max int) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return min(lb, max+1)
	}
	if lb == 0 {
		return min(la, max+1)
	}

	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(min(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+1)
			}
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if rowMin > max {
			return max + 1
		}
		prev2, prev, curr = prev, curr, prev2
	}
	if prev[lb] > max {
		return max + 1
	}
	return prev[lb]
}

func trimPunct(field string) (core, prefix, suffix string) {
	start := 0
	for start < len(field) && !isWordByte(field[start]) {
		start++
	}
	end := len(field)
	for end > start && !isWordByte(field[end-1]) {
		end--
	}
	return field[start:end], field[:start], field[end:]
}

func isWordByte(b byte) bool {
	r := rune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
