package report

import (
	"fmt"
	"strings"

	"aiaudit/internal/audit"
	"aiaudit/internal/github"
	"aiaudit/internal/rules"
)

const footer = "*Powered by [AI Code Audit](https://github.com/YOUR_USERNAME/ai-code-audit)*"

// summaryRows is the category order of the comment's summary table.
var summaryRows = []struct {
	category rules.Category
	label    string
}{
	{rules.CategorySecurity, "Security Issues"},
	{rules.CategoryLicense, "License Violations"},
	{rules.CategoryPII, "PII/Secrets Leaks"},
	{rules.CategoryAIPattern, "AI Pattern Issues"},
}

var severityGroups = []struct {
	severity rules.Severity
	label    string
	open     bool
}{
	{rules.SeverityCritical, "Critical", true},
	{rules.SeverityHigh, "High", true},
	{rules.SeverityMedium, "Medium", false},
	{rules.SeverityLow, "Low", false},
}

// Markdown renders the pull request comment. The first line is the marker
// that lets later runs find and replace the comment.
func Markdown(res *audit.ScanResult) string {
	lines := []string{
		github.CommentMarker,
		"## AI Code Audit Report",
		"",
	}

	if res.Total == 0 {
		lines = append(lines,
			"### No issues found",
			"",
			"All checks passed. No security issues, license violations, PII leaks, or AI-pattern issues detected.",
		)
	} else {
		lines = append(lines,
			"### Summary",
			"",
			"| Category | Count |",
			"|----------|-------|",
		)
		for _, row := range summaryRows {
			if n := res.Count(row.category); n > 0 {
				lines = append(lines, fmt.Sprintf("| %s | %d |", row.label, n))
			}
		}
		lines = append(lines,
			fmt.Sprintf("| **Total** | **%d** |", res.Total),
			"",
			"### Findings",
			"",
		)

		for _, g := range severityGroups {
			group := res.BySeverity(g.severity)
			if len(group) == 0 {
				continue
			}
			if g.open {
				lines = append(lines, "<details open>")
			} else {
				lines = append(lines, "<details>")
			}
			lines = append(lines,
				fmt.Sprintf("<summary><strong>%s (%d)</strong></summary>", g.label, len(group)),
				"",
			)
			lines = append(lines, formatFindings(group)...)
			lines = append(lines, "</details>", "")
		}
	}

	lines = append(lines, "---", "", footer)
	return strings.Join(lines, "\n")
}

func formatFindings(findings []audit.Finding) []string {
	var lines []string
	for _, f := range findings {
		lines = append(lines,
			fmt.Sprintf("#### %s %s", icon(f.Type), f.Title),
			"",
			fmt.Sprintf("**Location:** `%s`", f.Location()),
			"",
			fmt.Sprintf("**Issue:** %s", f.Description),
		)
		if f.Suggestion != "" {
			lines = append(lines, "", fmt.Sprintf("**Suggestion:** %s", f.Suggestion))
		}
		lines = append(lines, "", "---", "")
	}
	return lines
}

func icon(c rules.Category) string {
	switch c {
	case rules.CategorySecurity:
		return "🔒"
	case rules.CategoryLicense:
		return "📜"
	case rules.CategoryPII:
		return "🔐"
	case rules.CategoryAIPattern:
		return "🤖"
	}
	return "⚠️"
}
