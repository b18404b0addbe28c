package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aiaudit/internal/api"
	"aiaudit/internal/errors"
	"aiaudit/internal/rules"
)

var (
	rulesCategory string
	rulesFormat   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the detection rules",
	Long: `List the built-in rule catalogs in evaluation order.

Examples:
  aiaudit rules
  aiaudit rules --category=pii
  aiaudit rules --format=json`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesCategory, "category", "", "Only list one category: ai-pattern, security, license, pii")
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "table", "Output format: table, json")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	catalogs, err := selectCatalogs(e.rules, rulesCategory)
	if err != nil {
		return err
	}

	switch rulesFormat {
	case "table", "":
		return writeRulesTable(cmd.OutOrStdout(), catalogs)
	case "json":
		return writeRulesJSON(cmd.OutOrStdout(), catalogs)
	default:
		return errors.Newf(errors.InputInvalid, "unsupported format: %s (use: table, json)", rulesFormat)
	}
}

func selectCatalogs(set *rules.Set, category string) ([]*rules.Catalog, error) {
	if category == "" {
		return set.All(), nil
	}
	c, err := rules.ParseCategory(category)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, err.Error(), nil)
	}
	if cat := set.Catalog(c); cat != nil {
		return []*rules.Catalog{cat}, nil
	}
	return nil, nil
}

func writeRulesTable(out io.Writer, catalogs []*rules.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tRULE\tSEVERITY\tDESCRIPTION")
	total := 0
	for _, cat := range catalogs {
		for _, r := range cat.Rules {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Category, r.Name, r.Severity, r.Description)
			total++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d rules\n", total)
	return err
}

func writeRulesJSON(out io.Writer, catalogs []*rules.Catalog) error {
	resp := api.RulesResponse{Rules: []api.RuleInfo{}}
	for _, cat := range catalogs {
		for _, r := range cat.Rules {
			resp.Rules = append(resp.Rules, api.RuleInfo{
				Name:        r.Name,
				Category:    r.Category,
				Severity:    r.Severity,
				Description: r.Description,
				Suggestion:  r.Suggestion,
				Pattern:     r.Source,
			})
		}
	}
	resp.Total = len(resp.Rules)

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
