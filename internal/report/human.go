package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aiaudit/internal/audit"
	"aiaudit/internal/rules"
)

var (
	severityStyles = map[rules.Severity]lipgloss.Style{
		rules.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		rules.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		rules.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		rules.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	headerStyle   = lipgloss.NewStyle().Bold(true)
	locationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

type painter bool

func (p painter) paint(s lipgloss.Style, text string) string {
	if !p {
		return text
	}
	return s.Render(text)
}

// Human renders a terminal report.
func Human(res *audit.ScanResult, color bool) string {
	p := painter(color)
	var b strings.Builder

	b.WriteString(p.paint(headerStyle, "AI Code Audit") + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	fmt.Fprintf(&b, "Files scanned: %d\n", res.FilesScanned)
	fmt.Fprintf(&b, "Findings:      %d\n", res.Total)
	for _, c := range rules.AllCategories() {
		fmt.Fprintf(&b, "  %-12s %d\n", c, res.Count(c))
	}

	if len(res.Findings) > 0 {
		b.WriteString("\n")
	}
	for _, f := range res.Findings {
		tag := fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity)))
		fmt.Fprintf(&b, "%-10s %s  %s/%s\n",
			p.paint(severityStyles[f.Severity], tag),
			p.paint(locationStyle, f.Location()),
			f.Type, f.Title)
		fmt.Fprintf(&b, "           %s\n", f.Description)
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "           Fix: %s\n", f.Suggestion)
		}
	}

	if len(res.Diagnostics) > 0 {
		b.WriteString("\nIncomplete scans:\n")
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "  %s (%s): %s\n", d.File, d.Category, d.Message)
		}
	}

	if res.Total == 0 {
		b.WriteString("\nNo issues found.\n")
	}
	return b.String()
}
