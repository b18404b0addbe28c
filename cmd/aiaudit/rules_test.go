package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"aiaudit/internal/api"
	"aiaudit/internal/errors"
	"aiaudit/internal/rules"
)

func TestSelectCatalogs(t *testing.T) {
	set := rules.Default()

	all, err := selectCatalogs(set, "")
	if err != nil || len(all) != len(rules.AllCategories()) {
		t.Fatalf("selectCatalogs(\"\") = %d catalogs, %v", len(all), err)
	}

	pii, err := selectCatalogs(set, "PII")
	if err != nil {
		t.Fatalf("selectCatalogs(PII) error = %v", err)
	}
	if len(pii) != 1 || pii[0].Category != rules.CategoryPII {
		t.Errorf("selectCatalogs(PII) = %+v", pii)
	}

	if _, err := selectCatalogs(set, "style"); !errors.Is(err, errors.InputInvalid) {
		t.Errorf("unknown category: error = %v, want INPUT_INVALID", err)
	}
}

func TestWriteRulesTable(t *testing.T) {
	set := rules.Default()
	var buf bytes.Buffer
	if err := writeRulesTable(&buf, set.All()); err != nil {
		t.Fatalf("writeRulesTable() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[0], "CATEGORY") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ai-pattern") {
		t.Errorf("first rule row = %q, want the ai-pattern catalog first", lines[1])
	}
	if want := fmt.Sprintf("%d rules", set.RuleCount()); lines[len(lines)-1] != want {
		t.Errorf("footer = %q, want %q", lines[len(lines)-1], want)
	}
}

func TestRulesCommand_JSON(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "rules", "--category", "security", "--format", "json", "-q")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var resp api.RulesResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := len(rules.Default().Catalog(rules.CategorySecurity).Rules)
	if resp.Total != want || len(resp.Rules) != want {
		t.Errorf("Total = %d, len(Rules) = %d, want %d", resp.Total, len(resp.Rules), want)
	}
	for _, r := range resp.Rules {
		if r.Category != rules.CategorySecurity || r.Pattern == "" {
			t.Errorf("rule = %+v", r)
		}
	}
}

func TestRulesCommand_BadFormat(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "rules", "--format", "xml", "-q")
	if !errors.Is(err, errors.InputInvalid) {
		t.Errorf("error = %v, want INPUT_INVALID", err)
	}
}
