package rules

import (
	"github.com/dlclark/regexp2"
)

// Rule is one compiled detection pattern.
type Rule struct {
	Name        string
	Category    Category
	Severity    Severity
	Description string
	Suggestion  string

	// Source and Flags are the pattern as written in the catalog.
	Source string
	Flags  string

	re *regexp2.Regexp
}

// FindAll reports the rune offset of every non-overlapping match of the rule
// in input, scanning left to right. It stops at the first engine error, which
// is a match timeout in practice; offsets reported before the error stand.
func (r *Rule) FindAll(input []rune, fn func(offset int)) error {
	m, err := r.re.FindRunesMatch(input)
	for m != nil && err == nil {
		fn(m.Index)
		m, err = r.re.FindNextMatch(m)
	}
	return err
}

// Match reports whether the rule matches anywhere in s.
func (r *Rule) Match(s string) (bool, error) {
	return r.re.MatchString(s)
}

// Catalog is the ordered rule list of one category.
type Catalog struct {
	Category Category
	Version  int
	Rules    []*Rule
}

// Rule returns the rule with the given name, or nil.
func (c *Catalog) Rule(name string) *Rule {
	for _, r := range c.Rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Set holds one catalog per category.
type Set struct {
	catalogs map[Category]*Catalog
}

// NewSet builds a Set from catalogs. A later catalog for the same category
// replaces an earlier one.
func NewSet(catalogs ...*Catalog) *Set {
	s := &Set{catalogs: make(map[Category]*Catalog, len(catalogs))}
	for _, c := range catalogs {
		s.catalogs[c.Category] = c
	}
	return s
}

// Catalog returns the catalog for c, or nil if none is loaded.
func (s *Set) Catalog(c Category) *Catalog {
	return s.catalogs[c]
}

// All returns the loaded catalogs in canonical category order.
func (s *Set) All() []*Catalog {
	out := make([]*Catalog, 0, len(s.catalogs))
	for _, c := range AllCategories() {
		if cat, ok := s.catalogs[c]; ok {
			out = append(out, cat)
		}
	}
	return out
}

// RuleCount returns the number of rules across all catalogs.
func (s *Set) RuleCount() int {
	n := 0
	for _, c := range s.catalogs {
		n += len(c.Rules)
	}
	return n
}
