package audit

import (
	"regexp"

	"aiaudit/internal/rules"
)

// TestFileSuffix is appended to the description of PII findings in test paths.
const TestFileSuffix = " (in test file)"

var testPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(test|spec|mock|fixture|example)\.`),
	regexp.MustCompile(`(?i)__(tests?|mocks?|fixtures?)__`),
}

// AdjustFunc maps a rule's base severity to the emitted severity and a
// suffix for the finding description.
type AdjustFunc func(filename string, base rules.Severity) (rules.Severity, string)

// IsTestPath reports whether filename looks like a test, mock, fixture or
// example file.
func IsTestPath(filename string) bool {
	for _, re := range testPathPatterns {
		if re.MatchString(filename) {
			return true
		}
	}
	return false
}

// AdjustPII annotates every PII finding in a test path and downgrades
// critical ones to high.
func AdjustPII(filename string, base rules.Severity) (rules.Severity, string) {
	if !IsTestPath(filename) {
		return base, ""
	}
	if base == rules.SeverityCritical {
		return rules.SeverityHigh, TestFileSuffix
	}
	return base, TestFileSuffix
}

// Unadjusted passes the base severity through.
func Unadjusted(_ string, base rules.Severity) (rules.Severity, string) {
	return base, ""
}
