package report

import (
	"bytes"
	"testing"

	"aiaudit/internal/audit"
	"aiaudit/internal/rules"
	"aiaudit/internal/testutil"
)

func TestGolden_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, sampleResult(), Options{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	testutil.CompareGolden(t, "markdown", buf.Bytes())
}

func TestGolden_Human(t *testing.T) {
	res := sampleResult()
	res.FilesScanned = 3

	var buf bytes.Buffer
	if err := Write(&buf, FormatHuman, res, Options{Color: false}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	testutil.CompareGolden(t, "human", buf.Bytes())
}

func TestGolden_SARIF(t *testing.T) {
	res := audit.Aggregate([][]audit.Finding{{
		{Type: rules.CategorySecurity, Severity: rules.SeverityCritical, File: "app.ts", Line: 3, Title: "hardcoded-password",
			Description: "Potential hardcoded password or secret", Suggestion: "Use environment variables or a secrets manager"},
		{Type: rules.CategoryLicense, Severity: rules.SeverityMedium, File: "LICENSE", Title: "lgpl-header",
			Description: "LGPL license header detected"},
	}}, rules.SeverityLow)

	var buf bytes.Buffer
	if err := Write(&buf, FormatSARIF, res, Options{Version: "1.2.3"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	testutil.CompareGolden(t, "sarif", testutil.NormalizeJSON(t, buf.Bytes(), "guid", "machine"))
}
