// Package report renders scan results for terminals, machines and pull
// request comments.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"aiaudit/internal/audit"
	"aiaudit/internal/rules"
)

// Format is an output format name.
type Format string

const (
	FormatHuman    Format = "human"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatSARIF    Format = "sarif"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatHuman, FormatJSON, FormatYAML, FormatMarkdown, FormatSARIF}
}

// ParseFormat resolves a format name, accepting "md" and "yml" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "human", "text":
		return FormatHuman, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "sarif":
		return FormatSARIF, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Options tune rendering.
type Options struct {
	// Color enables ANSI styles in human output.
	Color bool
	// Rules supplies rule metadata for SARIF; nil uses the built-in catalogs.
	Rules *rules.Set
	// Version is reported as the SARIF tool version.
	Version string
}

// Write renders res in the given format.
func Write(w io.Writer, format Format, res *audit.ScanResult, opts Options) error {
	if res == nil {
		res = audit.NewScanResult()
	}

	switch format {
	case FormatHuman:
		_, err := io.WriteString(w, Human(res, opts.Color))
		return err
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(res)+"\n")
		return err
	case FormatSARIF:
		set := opts.Rules
		if set == nil {
			set = rules.Default()
		}
		report := SARIF(res, set, opts.Version)
		return writeJSON(w, report)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
