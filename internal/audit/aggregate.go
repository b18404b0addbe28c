package audit

import "aiaudit/internal/rules"

// NewScanResult returns an empty result with every category count present.
func NewScanResult() *ScanResult {
	counts := make(map[rules.Category]int, 4)
	for _, c := range rules.AllCategories() {
		counts[c] = 0
	}
	return &ScanResult{Counts: counts, Findings: []Finding{}}
}

// Aggregate concatenates per-file findings in order, keeps those at or above
// threshold and counts them per category.
func Aggregate(perFile [][]Finding, threshold rules.Severity) *ScanResult {
	res := NewScanResult()
	for _, findings := range perFile {
		for _, f := range findings {
			if !f.Severity.AtLeast(threshold) {
				continue
			}
			res.Findings = append(res.Findings, f)
			res.Counts[f.Type]++
		}
	}
	res.Total = len(res.Findings)
	return res
}
