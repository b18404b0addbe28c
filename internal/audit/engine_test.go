package audit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"aiaudit/internal/rules"
)

func engineFor(t *testing.T, category rules.Category) *Engine {
	t.Helper()
	for _, e := range Engines(rules.Default()) {
		if e.Category() == category {
			return e
		}
	}
	t.Fatalf("no engine for %s", category)
	return nil
}

func TestSourceLine(t *testing.T) {
	src := NewSource("a.ts", "first\nsecond\n\nfourth")

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},  // 'f'
		{5, 1},  // the '\n' ending line 1
		{6, 2},  // 's'
		{13, 3}, // empty line 3
		{14, 4}, // 'f' of fourth
		{19, 4},
	}

	for _, tt := range tests {
		if got := src.Line(tt.offset); got != tt.want {
			t.Errorf("Line(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestSourceLine_NonASCII(t *testing.T) {
	content := "// héllo wörld\nconst x = eval(y)"
	findings, err := engineFor(t, rules.CategorySecurity).Scan("a.js", content)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 || findings[0].Line != 2 {
		t.Fatalf("findings = %+v, want one eval-usage on line 2", findings)
	}
}

func TestEngineScan_OutOfScope(t *testing.T) {
	content := strings.Join([]string{
		`const password = "abcd1234";`,
		`eval(input)`,
		`// initialize the counter`,
		`// SPDX-License-Identifier: GPL-3.0`,
		`ssn = "123-45-6789"`,
	}, "\n")

	tests := []struct {
		category rules.Category
		filename string
	}{
		{rules.CategoryAIPattern, "README.md"},
		{rules.CategorySecurity, "notes.txt"},
		{rules.CategoryLicense, "logo.png"},
		{rules.CategoryPII, "node_modules/pkg/index.js"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			findings, err := engineFor(t, tt.category).Scan(tt.filename, content)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if len(findings) != 0 {
				t.Errorf("Scan(%q) = %d findings, want 0", tt.filename, len(findings))
			}
		})
	}
}

func TestEngineScan_HardcodedPassword(t *testing.T) {
	findings, err := engineFor(t, rules.CategorySecurity).Scan("app.ts", `const password = "abcd1234";`)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("len(findings) = %d, want 1: %+v", len(findings), findings)
	}

	want := Finding{
		Type:        rules.CategorySecurity,
		Severity:    rules.SeverityCritical,
		File:        "app.ts",
		Line:        1,
		Title:       "hardcoded-password",
		Description: "Potential hardcoded password or secret",
		Suggestion:  "Use environment variables or a secrets manager",
	}
	if findings[0] != want {
		t.Errorf("finding = %+v, want %+v", findings[0], want)
	}
}

func TestEngineScan_NoDeduplication(t *testing.T) {
	content := "a = \"123-45-6789\"; b = \"987-65-4321\"\n\nc = \"111-22-3333\""
	findings, err := engineFor(t, rules.CategoryPII).Scan("people.txt", content)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var lines []int
	for _, f := range findings {
		if f.Title == "ssn" {
			lines = append(lines, f.Line)
		}
	}
	want := []int{1, 1, 3}
	if len(lines) != len(want) {
		t.Fatalf("ssn lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("ssn lines = %v, want %v", lines, want)
			break
		}
	}
}

func TestEngineScan_RuleOrder(t *testing.T) {
	// eval-usage precedes hardcoded-password in the catalog even though it
	// matches later in the file.
	content := "const secret = 'hunter22';\neval(x)"
	findings, err := engineFor(t, rules.CategorySecurity).Scan("a.js", content)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("len(findings) = %d, want 2: %+v", len(findings), findings)
	}
	if findings[0].Title != "eval-usage" || findings[0].Line != 2 {
		t.Errorf("findings[0] = %s:%d, want eval-usage:2", findings[0].Title, findings[0].Line)
	}
	if findings[1].Title != "hardcoded-password" || findings[1].Line != 1 {
		t.Errorf("findings[1] = %s:%d, want hardcoded-password:1", findings[1].Title, findings[1].Line)
	}
}

func TestEngineScan_PIIInTestFile(t *testing.T) {
	findings, err := engineFor(t, rules.CategoryPII).Scan("user.test.ts", `"123-45-6789"`)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("len(findings) = %d, want 1: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Title != "ssn" || f.Severity != rules.SeverityHigh {
		t.Errorf("finding = %s/%s, want ssn/high", f.Title, f.Severity)
	}
	if !strings.HasSuffix(f.Description, TestFileSuffix) {
		t.Errorf("Description = %q, want suffix %q", f.Description, TestFileSuffix)
	}
}

func TestEngineScan_SecurityInTestFileNotDowngraded(t *testing.T) {
	findings, err := engineFor(t, rules.CategorySecurity).Scan("foo.test.ts", "eval(payload)")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("len(findings) = %d, want 1", len(findings))
	}
	if findings[0].Severity != rules.SeverityCritical {
		t.Errorf("Severity = %s, want critical", findings[0].Severity)
	}
	if strings.Contains(findings[0].Description, TestFileSuffix) {
		t.Errorf("Description = %q, should not be annotated", findings[0].Description)
	}
}

func TestEngineScan_CustomClassifier(t *testing.T) {
	cat := rules.Default().Catalog(rules.CategorySecurity)
	onlyScripts := ClassifierFunc(func(filename string) bool {
		return strings.HasPrefix(filename, "scripts/")
	})
	e := NewEngine(cat, onlyScripts, nil)

	got, _ := e.Scan("scripts/deploy.txt", "eval(x)")
	if len(got) != 1 {
		t.Errorf("scripts/deploy.txt: %d findings, want 1", len(got))
	}
	got, _ = e.Scan("src/app.ts", "eval(x)")
	if len(got) != 0 {
		t.Errorf("src/app.ts: %d findings, want 0", len(got))
	}
}

func TestEngineScan_Timeout(t *testing.T) {
	cat, err := rules.Parse([]byte(slowCatalog), rules.Options{MatchTimeout: time.Millisecond})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	e := NewEngine(cat, ClassifierFunc(func(string) bool { return true }), nil)

	findings, err := e.Scan("slow.ts", "eval(a)\n"+strings.Repeat("x", 64))
	if err == nil {
		t.Fatal("Scan() error = nil, want timeout")
	}
	if findings != nil {
		t.Errorf("findings = %+v, want none on abort", findings)
	}

	var se *ScanError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not *ScanError", err)
	}
	if se.Rule != "slow" || se.File != "slow.ts" || se.Category != rules.CategorySecurity {
		t.Errorf("ScanError = %+v", se)
	}
}

const slowCatalog = `
version = 1
category = "security"

[[rule]]
name = "eval"
pattern = '''eval\('''
severity = "critical"
description = "eval"
suggestion = "avoid"

[[rule]]
name = "slow"
pattern = '''(x+x+)+y'''
severity = "low"
description = "backtracks"
suggestion = "none"
`

func TestAdjustPII(t *testing.T) {
	tests := []struct {
		filename   string
		base       rules.Severity
		want       rules.Severity
		wantSuffix string
	}{
		{"user.test.ts", rules.SeverityCritical, rules.SeverityHigh, TestFileSuffix},
		{"user.SPEC.js", rules.SeverityCritical, rules.SeverityHigh, TestFileSuffix},
		{"api.mock.py", rules.SeverityHigh, rules.SeverityHigh, TestFileSuffix},
		{"src/__tests__/user.ts", rules.SeverityMedium, rules.SeverityMedium, TestFileSuffix},
		{"src/__fixtures__/db.json", rules.SeverityCritical, rules.SeverityHigh, TestFileSuffix},
		{"config.example.env", rules.SeverityCritical, rules.SeverityHigh, TestFileSuffix},
		{"src/user.ts", rules.SeverityCritical, rules.SeverityCritical, ""},
		{"tests/user.ts", rules.SeverityCritical, rules.SeverityCritical, ""},
		{"user_test.go", rules.SeverityCritical, rules.SeverityCritical, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, suffix := AdjustPII(tt.filename, tt.base)
			if got != tt.want || suffix != tt.wantSuffix {
				t.Errorf("AdjustPII(%q, %s) = (%s, %q), want (%s, %q)",
					tt.filename, tt.base, got, suffix, tt.want, tt.wantSuffix)
			}
		})
	}
}

func TestUnadjusted(t *testing.T) {
	got, suffix := Unadjusted("user.test.ts", rules.SeverityCritical)
	if got != rules.SeverityCritical || suffix != "" {
		t.Errorf("Unadjusted() = (%s, %q), want (critical, \"\")", got, suffix)
	}
}
