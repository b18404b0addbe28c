// Package rules holds the static detection catalogs used by the audit engines.
// Catalogs are TOML tables embedded in the binary and compiled once; after
// loading they are read-only and safe to share between goroutines.
package rules

import (
	"fmt"
	"strings"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of s in the severity order (low=0 .. critical=3).
// Unknown severities rank -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// AtLeast reports whether s ranks at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

func (s Severity) String() string {
	return string(s)
}

// Severities returns all severities from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// ParseSeverity parses a severity name, ignoring case and surrounding space.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q (use: low, medium, high, critical)", s)
	}
	return sev, nil
}

// Category partitions findings by the engine that produced them.
type Category string

const (
	CategoryAIPattern Category = "ai-pattern"
	CategorySecurity  Category = "security"
	CategoryLicense   Category = "license"
	CategoryPII       Category = "pii"
)

// AllCategories returns every category in canonical engine order.
// The audit output order depends on this order.
func AllCategories() []Category {
	return []Category{CategoryAIPattern, CategorySecurity, CategoryLicense, CategoryPII}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAIPattern, CategorySecurity, CategoryLicense, CategoryPII:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory parses a category name. "ai", "ai-patterns" and "licenses"
// are accepted as aliases.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai-pattern", "ai-patterns", "ai":
		return CategoryAIPattern, nil
	case "security":
		return CategorySecurity, nil
	case "license", "licenses":
		return CategoryLicense, nil
	case "pii":
		return CategoryPII, nil
	}
	return "", fmt.Errorf("invalid category %q (use: ai-pattern, security, license, pii)", s)
}
