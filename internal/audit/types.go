// Package audit scans changed files against the rule catalogs and aggregates
// the matches into a severity-filtered result.
// It identifies security issues, copyleft license markers, PII and secret
// leaks, and patterns typical of machine-generated code.
package audit

import (
	"strconv"
	"time"

	"aiaudit/internal/rules"
)

// Finding is one rule match in one file.
type Finding struct {
	Type        rules.Category `json:"type" yaml:"type"`
	Severity    rules.Severity `json:"severity" yaml:"severity"`
	File        string         `json:"file" yaml:"file"`
	Line        int            `json:"line,omitempty" yaml:"line,omitempty"` // 1-based; 0 when unknown
	Title       string         `json:"title" yaml:"title"`                   // rule name
	Description string         `json:"description" yaml:"description"`
	Suggestion  string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Location returns "file:line", or just the file when the line is unknown.
func (f Finding) Location() string {
	if f.Line > 0 {
		return f.File + ":" + strconv.Itoa(f.Line)
	}
	return f.File
}

// Diagnostic records a scan of one file and category that was abandoned.
type Diagnostic struct {
	File     string         `json:"file" yaml:"file"`
	Category rules.Category `json:"category" yaml:"category"`
	Message  string         `json:"message" yaml:"message"`
}

// ScanResult is the aggregated outcome of a run.
type ScanResult struct {
	Total        int                    `json:"total" yaml:"total"`
	Counts       map[rules.Category]int `json:"counts" yaml:"counts"`
	Findings     []Finding              `json:"findings" yaml:"findings"`
	Diagnostics  []Diagnostic           `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	FilesScanned int                    `json:"filesScanned" yaml:"filesScanned"`
}

// Count returns the number of findings of category c.
func (r *ScanResult) Count(c rules.Category) int {
	return r.Counts[c]
}

// BySeverity returns the findings whose severity is one of sevs, keeping order.
func (r *ScanResult) BySeverity(sevs ...rules.Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		for _, s := range sevs {
			if f.Severity == s {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// ScanConfig selects categories and the minimum reported severity.
type ScanConfig struct {
	AIPatterns        bool           `json:"aiPatterns" yaml:"aiPatterns"`
	Security          bool           `json:"security" yaml:"security"`
	Licenses          bool           `json:"licenses" yaml:"licenses"`
	PII               bool           `json:"pii" yaml:"pii"`
	SeverityThreshold rules.Severity `json:"severityThreshold" yaml:"severityThreshold"`
	FailOnFindings    bool           `json:"failOnFindings" yaml:"failOnFindings"`

	// Workers is the number of files scanned concurrently (<=1 is sequential).
	Workers int `json:"-" yaml:"-"`
	// MatchTimeout is informational here; it is fixed on the compiled catalogs.
	MatchTimeout time.Duration `json:"-" yaml:"-"`
}

// DefaultScanConfig enables every category and reports every severity.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		AIPatterns:        true,
		Security:          true,
		Licenses:          true,
		PII:               true,
		SeverityThreshold: rules.SeverityLow,
		Workers:           1,
		MatchTimeout:      rules.DefaultMatchTimeout,
	}
}

// Enabled reports whether category c is switched on.
func (c ScanConfig) Enabled(cat rules.Category) bool {
	switch cat {
	case rules.CategoryAIPattern:
		return c.AIPatterns
	case rules.CategorySecurity:
		return c.Security
	case rules.CategoryLicense:
		return c.Licenses
	case rules.CategoryPII:
		return c.PII
	}
	return false
}

// Threshold returns the effective severity threshold; unset means low.
func (c ScanConfig) Threshold() rules.Severity {
	if c.SeverityThreshold == "" {
		return rules.SeverityLow
	}
	return c.SeverityThreshold
}

// ShouldFail reports whether the host should signal failure for result.
func (c ScanConfig) ShouldFail(result *ScanResult) bool {
	return c.FailOnFindings && result != nil && result.Total > 0
}

// FileStatus is the change kind reported by the diff source.
type FileStatus string

const (
	StatusAdded     FileStatus = "added"
	StatusModified  FileStatus = "modified"
	StatusRemoved   FileStatus = "removed"
	StatusRenamed   FileStatus = "renamed"
	StatusCopied    FileStatus = "copied"
	StatusChanged   FileStatus = "changed"
	StatusUnchanged FileStatus = "unchanged"
)

// ChangedFile is one file handed to the auditor.
type ChangedFile struct {
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status,omitempty"`
	Content  string     `json:"content"`
}

// Scannable reports whether the file should be scanned at all.
func (f ChangedFile) Scannable() bool {
	return f.Status != StatusRemoved && f.Content != ""
}
