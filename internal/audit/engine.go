package audit

import (
	"fmt"
	"sort"

	"aiaudit/internal/rules"
)

// Classifier decides whether an engine looks at a file.
type Classifier interface {
	InScope(filename string) bool
}

// ClassifierFunc adapts a predicate to Classifier.
type ClassifierFunc func(filename string) bool

func (f ClassifierFunc) InScope(filename string) bool {
	return f(filename)
}

// CategoryClassifier returns the standard scope predicate for category.
func CategoryClassifier(category rules.Category) Classifier {
	return ClassifierFunc(func(filename string) bool {
		return InScope(category, filename)
	})
}

// Source is file content prepared for scanning. The rune slice and newline
// index are built once and shared by every engine that scans the file.
type Source struct {
	Filename string
	runes    []rune
	newlines []int // rune offsets of '\n', ascending
}

// NewSource prepares content for scanning.
func NewSource(filename, content string) *Source {
	runes := []rune(content)
	var newlines []int
	for i, r := range runes {
		if r == '\n' {
			newlines = append(newlines, i)
		}
	}
	return &Source{Filename: filename, runes: runes, newlines: newlines}
}

// Line returns the 1-based line containing rune offset off.
func (s *Source) Line(off int) int {
	return 1 + sort.SearchInts(s.newlines, off)
}

// ScanError reports a rule evaluation that could not finish, usually a match
// timeout on pathological input.
type ScanError struct {
	File     string
	Category rules.Category
	Rule     string
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s rule %s on %s: %v", e.Category, e.Rule, e.File, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Engine applies one catalog to files accepted by its classifier.
// Engines hold no mutable state and are safe for concurrent use.
type Engine struct {
	catalog    *rules.Catalog
	classifier Classifier
	adjust     AdjustFunc
}

// NewEngine creates an engine. A nil adjust passes severities through.
func NewEngine(catalog *rules.Catalog, classifier Classifier, adjust AdjustFunc) *Engine {
	if adjust == nil {
		adjust = Unadjusted
	}
	return &Engine{catalog: catalog, classifier: classifier, adjust: adjust}
}

// Engines builds one engine per catalog in set, in canonical category order.
func Engines(set *rules.Set) []*Engine {
	var engines []*Engine
	for _, cat := range set.All() {
		var adjust AdjustFunc
		if cat.Category == rules.CategoryPII {
			adjust = AdjustPII
		}
		engines = append(engines, NewEngine(cat, CategoryClassifier(cat.Category), adjust))
	}
	return engines
}

// Category returns the category of the engine's catalog.
func (e *Engine) Category() rules.Category {
	return e.catalog.Category
}

// Scan returns the findings for one file.
func (e *Engine) Scan(filename, content string) ([]Finding, error) {
	if !e.classifier.InScope(filename) {
		return nil, nil
	}
	return e.ScanSource(NewSource(filename, content))
}

// ScanSource is Scan over prepared content. Findings follow rule order, then
// match order. If any rule fails the file yields no findings for this engine.
func (e *Engine) ScanSource(src *Source) ([]Finding, error) {
	if !e.classifier.InScope(src.Filename) {
		return nil, nil
	}

	var findings []Finding
	for _, rule := range e.catalog.Rules {
		severity, suffix := e.adjust(src.Filename, rule.Severity)
		err := rule.FindAll(src.runes, func(off int) {
			findings = append(findings, Finding{
				Type:        e.catalog.Category,
				Severity:    severity,
				File:        src.Filename,
				Line:        src.Line(off),
				Title:       rule.Name,
				Description: rule.Description + suffix,
				Suggestion:  rule.Suggestion,
			})
		})
		if err != nil {
			return nil, &ScanError{File: src.Filename, Category: e.catalog.Category, Rule: rule.Name, Err: err}
		}
	}
	return findings, nil
}
