package audit

import (
	"encoding/json"
	"testing"

	"aiaudit/internal/rules"
)

func finding(cat rules.Category, sev rules.Severity, file, title string) Finding {
	return Finding{Type: cat, Severity: sev, File: file, Line: 1, Title: title}
}

func checkTotals(t *testing.T, res *ScanResult) {
	t.Helper()
	sum := 0
	for _, c := range rules.AllCategories() {
		n, ok := res.Counts[c]
		if !ok {
			t.Errorf("Counts missing key %q", c)
		}
		sum += n
	}
	if res.Total != len(res.Findings) || res.Total != sum {
		t.Errorf("Total = %d, len(Findings) = %d, sum(Counts) = %d; want all equal", res.Total, len(res.Findings), sum)
	}
}

func TestAggregate(t *testing.T) {
	perFile := [][]Finding{
		{
			finding(rules.CategoryAIPattern, rules.SeverityLow, "a.ts", "generic-naming"),
			finding(rules.CategorySecurity, rules.SeverityCritical, "a.ts", "eval-usage"),
		},
		nil,
		{
			finding(rules.CategoryLicense, rules.SeverityMedium, "LICENSE", "lgpl-header"),
			finding(rules.CategoryPII, rules.SeverityHigh, "b.json", "jwt-token"),
			finding(rules.CategoryPII, rules.SeverityLow, "b.json", "public-ip"),
		},
	}

	tests := []struct {
		threshold rules.Severity
		want      []string
		counts    map[rules.Category]int
	}{
		{
			threshold: rules.SeverityLow,
			want:      []string{"generic-naming", "eval-usage", "lgpl-header", "jwt-token", "public-ip"},
			counts:    map[rules.Category]int{rules.CategoryAIPattern: 1, rules.CategorySecurity: 1, rules.CategoryLicense: 1, rules.CategoryPII: 2},
		},
		{
			threshold: rules.SeverityMedium,
			want:      []string{"eval-usage", "lgpl-header", "jwt-token"},
			counts:    map[rules.Category]int{rules.CategoryAIPattern: 0, rules.CategorySecurity: 1, rules.CategoryLicense: 1, rules.CategoryPII: 1},
		},
		{
			threshold: rules.SeverityHigh,
			want:      []string{"eval-usage", "jwt-token"},
			counts:    map[rules.Category]int{rules.CategoryAIPattern: 0, rules.CategorySecurity: 1, rules.CategoryLicense: 0, rules.CategoryPII: 1},
		},
		{
			threshold: rules.SeverityCritical,
			want:      []string{"eval-usage"},
			counts:    map[rules.Category]int{rules.CategoryAIPattern: 0, rules.CategorySecurity: 1, rules.CategoryLicense: 0, rules.CategoryPII: 0},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.threshold), func(t *testing.T) {
			res := Aggregate(perFile, tt.threshold)
			checkTotals(t, res)

			if len(res.Findings) != len(tt.want) {
				t.Fatalf("len(Findings) = %d, want %d", len(res.Findings), len(tt.want))
			}
			for i, title := range tt.want {
				if res.Findings[i].Title != title {
					t.Errorf("Findings[%d] = %s, want %s", i, res.Findings[i].Title, title)
				}
			}
			for c, n := range tt.counts {
				if res.Counts[c] != n {
					t.Errorf("Counts[%s] = %d, want %d", c, res.Counts[c], n)
				}
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, rules.SeverityLow)
	checkTotals(t, res)

	if res.Total != 0 {
		t.Errorf("Total = %d, want 0", res.Total)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"total":0,"counts":{"ai-pattern":0,"license":0,"pii":0,"security":0},"findings":[],"filesScanned":0}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestShouldFail(t *testing.T) {
	empty := NewScanResult()
	one := Aggregate([][]Finding{{finding(rules.CategoryPII, rules.SeverityLow, "a", "ssn")}}, rules.SeverityLow)

	tests := []struct {
		name   string
		fail   bool
		result *ScanResult
		want   bool
	}{
		{"disabled with findings", false, one, false},
		{"enabled with findings", true, one, true},
		{"enabled without findings", true, empty, false},
		{"enabled nil result", true, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ScanConfig{FailOnFindings: tt.fail}
			if got := cfg.ShouldFail(tt.result); got != tt.want {
				t.Errorf("ShouldFail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanResult_BySeverity(t *testing.T) {
	res := Aggregate([][]Finding{{
		finding(rules.CategorySecurity, rules.SeverityCritical, "a", "one"),
		finding(rules.CategoryPII, rules.SeverityLow, "a", "two"),
		finding(rules.CategorySecurity, rules.SeverityHigh, "a", "three"),
	}}, rules.SeverityLow)

	got := res.BySeverity(rules.SeverityCritical, rules.SeverityHigh)
	if len(got) != 2 || got[0].Title != "one" || got[1].Title != "three" {
		t.Errorf("BySeverity(critical, high) = %+v", got)
	}
}

func TestFindingLocation(t *testing.T) {
	if got := (Finding{File: "a.ts", Line: 12}).Location(); got != "a.ts:12" {
		t.Errorf("Location() = %q, want a.ts:12", got)
	}
	if got := (Finding{File: "a.ts"}).Location(); got != "a.ts" {
		t.Errorf("Location() = %q, want a.ts", got)
	}
}
