// Package search implements the storefront's free-text filter: a query is
// expanded through a small translation dictionary and matched by substring
// against item names and descriptions.
package search

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/alextreichler/flowershop/internal/models"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// minWordLength is the shortest query word (in runes) that is expanded.
const minWordLength = 2

// Dictionary maps a source-language key to its target-language synonyms.
type Dictionary map[string][]string

// ParseDictionary reads a YAML mapping of key -> list of synonyms.
// Keys and synonyms are lowercased.
func ParseDictionary(data []byte) (Dictionary, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	dict := make(Dictionary, len(raw))
	for k, syns := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		for _, s := range syns {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				dict[key] = append(dict[key], s)
			}
		}
	}
	return dict, nil
}

type Matcher struct {
	dict Dictionary
}

func NewMatcher(dict Dictionary) *Matcher {
	return &Matcher{dict: dict}
}

var (
	defaultOnce    sync.Once
	defaultMatcher *Matcher
)

// Default returns a matcher over the embedded dictionary.
func Default() *Matcher {
	defaultOnce.Do(func() {
		dict, err := ParseDictionary(dictionaryYAML)
		if err != nil {
			// embedded file is part of the build
			panic(err)
		}
		defaultMatcher = NewMatcher(dict)
	})
	return defaultMatcher
}

// Expand returns the deduplicated set of terms a query is matched with:
// the lowercased query itself plus the synonyms of every dictionary key
// that is a prefix of a query word or has a query word as its prefix.
// The result is sorted only to make it stable for callers.
func (m *Matcher) Expand(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	set := map[string]struct{}{q: {}}
	for _, word := range strings.Fields(q) {
		if utf8.RuneCountInString(word) < minWordLength {
			continue
		}
		for key, syns := range m.dict {
			if strings.HasPrefix(word, key) || strings.HasPrefix(key, word) {
				for _, s := range syns {
					set[s] = struct{}{}
				}
			}
		}
	}

	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Matches reports whether any expanded term of query occurs in name or
// description. An empty query matches everything.
func (m *Matcher) Matches(name, description, query string) bool {
	terms := m.Expand(query)
	if len(terms) == 0 {
		return true
	}
	name = strings.ToLower(name)
	description = strings.ToLower(description)
	for _, t := range terms {
		if strings.Contains(name, t) || strings.Contains(description, t) {
			return true
		}
	}
	return false
}

// Matches uses the default dictionary.
func Matches(name, description, query string) bool {
	return Default().Matches(name, description, query)
}

// FilterProducts keeps the products matching query, preserving order.
func (m *Matcher) FilterProducts(products []models.Product, query string) []models.Product {
	if strings.TrimSpace(query) == "" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if m.Matches(p.Name, p.Description, query) {
			out = append(out, p)
		}
	}
	return out
}

// FilterFlowers keeps the flowers matching query, preserving order.
func (m *Matcher) FilterFlowers(flowers []models.Flower, query string) []models.Flower {
	if strings.TrimSpace(query) == "" {
		return flowers
	}
	out := make([]models.Flower, 0, len(flowers))
	for _, f := range flowers {
		if m.Matches(f.Name, f.Description, query) {
			out = append(out, f)
		}
	}
	return out
}
