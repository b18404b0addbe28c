package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"aiaudit/internal/audit"
	"aiaudit/internal/rules"
)

// SARIF 2.1.0 schema types
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

const (
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
	toolName     = "aiaudit"
	toolURI      = "https://github.com/YOUR_USERNAME/ai-code-audit"
)

// SARIFReport is the top-level SARIF document.
type SARIFReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single analysis run.
type SARIFRun struct {
	Tool              SARIFTool               `json:"tool"`
	AutomationDetails *SARIFAutomationDetails `json:"automationDetails,omitempty"`
	Results           []SARIFResult           `json:"results"`
	Invocations       []SARIFInvocation       `json:"invocations,omitempty"`
}

// SARIFAutomationDetails identifies the run.
type SARIFAutomationDetails struct {
	ID   string `json:"id,omitempty"`
	GUID string `json:"guid,omitempty"`
}

// SARIFTool describes the analysis tool.
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver describes the primary analysis component.
type SARIFDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	InformationURI  string      `json:"informationUri,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
}

// SARIFRule describes a rule that detected an issue.
type SARIFRule struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	ShortDescription     *SARIFMessage           `json:"shortDescription,omitempty"`
	FullDescription      *SARIFMessage           `json:"fullDescription,omitempty"`
	Help                 *SARIFMessage           `json:"help,omitempty"`
	DefaultConfiguration *SARIFRuleConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]interface{}  `json:"properties,omitempty"`
}

// SARIFRuleConfiguration describes the default configuration for a rule.
type SARIFRuleConfiguration struct {
	Level string `json:"level,omitempty"` // error, warning, note, none
}

// SARIFResult represents a single finding.
type SARIFResult struct {
	RuleID       string                 `json:"ruleId"`
	RuleIndex    int                    `json:"ruleIndex"`
	Level        string                 `json:"level,omitempty"` // error, warning, note, none
	Message      SARIFMessage           `json:"message"`
	Locations    []SARIFLocation        `json:"locations,omitempty"`
	Fingerprints map[string]string      `json:"fingerprints,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// SARIFMessage contains text in various formats.
type SARIFMessage struct {
	Text     string `json:"text,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// SARIFLocation describes where a result was found.
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
}

// SARIFPhysicalLocation identifies a file and region.
type SARIFPhysicalLocation struct {
	ArtifactLocation *SARIFArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *SARIFRegion           `json:"region,omitempty"`
}

// SARIFArtifactLocation identifies a file.
type SARIFArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// SARIFRegion identifies a region within a file.
type SARIFRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SARIFInvocation describes a single invocation of the tool.
type SARIFInvocation struct {
	ExecutionSuccessful bool                `json:"executionSuccessful"`
	Machine             string              `json:"machine,omitempty"`
	Notifications       []SARIFNotification `json:"toolExecutionNotifications,omitempty"`
}

// SARIFNotification reports a problem the tool hit while running.
type SARIFNotification struct {
	Level     string          `json:"level"`
	Message   SARIFMessage    `json:"message"`
	Locations []SARIFLocation `json:"locations,omitempty"`
}

func ruleID(c rules.Category, name string) string {
	return fmt.Sprintf("aiaudit/%s/%s", c, name)
}

// SARIF converts a scan result. Rules are listed once each, in first-seen
// order, with metadata taken from set.
func SARIF(res *audit.ScanResult, set *rules.Set, version string) *SARIFReport {
	var sarifRules []SARIFRule
	ruleIndex := make(map[string]int)

	for _, f := range res.Findings {
		id := ruleID(f.Type, f.Title)
		if _, exists := ruleIndex[id]; exists {
			continue
		}
		ruleIndex[id] = len(sarifRules)
		sarifRules = append(sarifRules, buildRule(id, f, set))
	}

	results := make([]SARIFResult, 0, len(res.Findings))
	for _, f := range res.Findings {
		id := ruleID(f.Type, f.Title)
		result := SARIFResult{
			RuleID:    id,
			RuleIndex: ruleIndex[id],
			Level:     severityToSARIFLevel(f.Severity),
			Message:   SARIFMessage{Text: f.Description},
			Locations: []SARIFLocation{location(f.File, f.Line)},
			Fingerprints: map[string]string{
				"aiaudit/v1": generateFingerprint(f),
			},
			Properties: map[string]interface{}{
				"category": string(f.Type),
				"severity": string(f.Severity),
			},
		}
		if lang := audit.Language(f.File); lang != "" {
			result.Properties["language"] = lang
		}
		results = append(results, result)
	}

	invocation := SARIFInvocation{
		ExecutionSuccessful: len(res.Diagnostics) == 0,
		Machine:             runtime.GOOS + "/" + runtime.GOARCH,
	}
	for _, d := range res.Diagnostics {
		invocation.Notifications = append(invocation.Notifications, SARIFNotification{
			Level:     "warning",
			Message:   SARIFMessage{Text: fmt.Sprintf("%s scan abandoned: %s", d.Category, d.Message)},
			Locations: []SARIFLocation{location(d.File, 0)},
		})
	}

	return &SARIFReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:            toolName,
						Version:         version,
						SemanticVersion: version,
						InformationURI:  toolURI,
						Rules:           sarifRules,
					},
				},
				AutomationDetails: &SARIFAutomationDetails{
					ID:   toolName + "/",
					GUID: uuid.NewString(),
				},
				Results:     results,
				Invocations: []SARIFInvocation{invocation},
			},
		},
	}
}

func buildRule(id string, f audit.Finding, set *rules.Set) SARIFRule {
	sev := f.Severity
	desc := f.Description
	help := f.Suggestion
	if set != nil {
		if cat := set.Catalog(f.Type); cat != nil {
			if r := cat.Rule(f.Title); r != nil {
				sev, desc, help = r.Severity, r.Description, r.Suggestion
			}
		}
	}

	rule := SARIFRule{
		ID:               id,
		Name:             f.Title,
		ShortDescription: &SARIFMessage{Text: desc},
		DefaultConfiguration: &SARIFRuleConfiguration{
			Level: severityToSARIFLevel(sev),
		},
		Properties: map[string]interface{}{
			"tags": []string{string(f.Type)},
		},
	}
	if help != "" {
		rule.Help = &SARIFMessage{Text: help}
	}
	if f.Type == rules.CategorySecurity || f.Type == rules.CategoryPII {
		rule.Properties["security-severity"] = fmt.Sprintf("%.1f", severityToScore(sev))
		if f.Type == rules.CategoryPII {
			rule.Properties["tags"] = []string{"security", string(f.Type)}
		}
	}
	return rule
}

func location(file string, line int) SARIFLocation {
	loc := SARIFLocation{
		PhysicalLocation: &SARIFPhysicalLocation{
			ArtifactLocation: &SARIFArtifactLocation{
				URI:       file,
				URIBaseID: "%SRCROOT%",
			},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &SARIFRegion{StartLine: line}
	}
	return loc
}

// severityToSARIFLevel converts a severity to a SARIF level.
func severityToSARIFLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityCritical, rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	case rules.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}

// severityToScore converts a severity to a security-severity score (0-10).
func severityToScore(s rules.Severity) float64 {
	switch s {
	case rules.SeverityCritical:
		return 9.0
	case rules.SeverityHigh:
		return 7.0
	case rules.SeverityMedium:
		return 5.0
	case rules.SeverityLow:
		return 3.0
	default:
		return 5.0
	}
}

// generateFingerprint creates a stable fingerprint for deduplication.
func generateFingerprint(f audit.Finding) string {
	data := fmt.Sprintf("%s:%d:%s/%s", f.File, f.Line, f.Type, f.Title)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
