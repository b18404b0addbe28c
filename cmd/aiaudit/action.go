package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aiaudit/internal/audit"
	"aiaudit/internal/errors"
	"aiaudit/internal/github"
	"aiaudit/internal/report"
	"aiaudit/internal/rules"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Audit a pull request from GitHub Actions",
	Long: `Run as a GitHub Action step on a pull_request event.

Reads the action inputs from INPUT_* variables, lists the pull request's
changed files, scans their patches and posts (or updates) a single audit
comment on the pull request. Results are written as step outputs:
findings-count, security-issues, license-violations, pii-leaks, ai-patterns.

Inputs:
  github-token        token used for the GitHub API (required)
  scan-security       true/false
  scan-licenses       true/false
  scan-pii            true/false
  scan-ai-patterns    true/false
  fail-on-findings    true/false
  severity-threshold  low, medium, high, critical

Events other than pull requests are skipped.`,
	RunE: runAction,
}

func init() {
	rootCmd.AddCommand(actionCmd)
}

// actionInputs are the action's inputs after applying them over the config.
type actionInputs struct {
	Token string
	Scan  audit.ScanConfig
}

// getInput reads an action input the way the runner exports it:
// INPUT_ plus the upper-cased name, hyphens kept. The underscore form is
// accepted as well for local runs.
func getInput(name string) string {
	key := "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(os.Getenv(strings.ReplaceAll(key, "-", "_")))
}

// readActionInputs overlays INPUT_* values on base. Unset inputs keep the
// configured value; a boolean input is on only when it is "true".
func readActionInputs(base audit.ScanConfig) (actionInputs, error) {
	in := actionInputs{Token: getInput("github-token"), Scan: base}
	if in.Token == "" {
		return in, errors.New(errors.Unauthorized, "Input required and not supplied: github-token", nil)
	}

	toggles := []struct {
		name string
		dst  *bool
	}{
		{"scan-security", &in.Scan.Security},
		{"scan-licenses", &in.Scan.Licenses},
		{"scan-pii", &in.Scan.PII},
		{"scan-ai-patterns", &in.Scan.AIPatterns},
		{"fail-on-findings", &in.Scan.FailOnFindings},
	}
	for _, t := range toggles {
		if v := getInput(t.name); v != "" {
			*t.dst = v == "true"
		}
	}

	if v := getInput("severity-threshold"); v != "" {
		sev, err := rules.ParseSeverity(v)
		if err != nil {
			return in, errors.New(errors.InputInvalid, "invalid severity-threshold input", err)
		}
		in.Scan.SeverityThreshold = sev
	}
	return in, nil
}

func runAction(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	fail := func(msg string) error {
		fmt.Fprintf(out, "::error::%s\n", msg)
		return &exitError{code: 1}
	}

	in, err := readActionInputs(e.cfg.ScanOptions())
	if err != nil {
		return fail(err.Error())
	}

	event, err := github.LoadEvent(os.Getenv("GITHUB_EVENT_PATH"))
	if err != nil {
		return fail(err.Error())
	}
	if !event.IsPullRequest() {
		fmt.Fprintln(out, "Not a pull request, skipping audit")
		return nil
	}

	owner, repo, err := github.SplitRepository(os.Getenv("GITHUB_REPOSITORY"))
	if err != nil {
		return fail(err.Error())
	}
	number := event.PullRequest.Number

	apiURL := e.cfg.GitHub.APIURL
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		apiURL = v
	}

	ctx, cancel := newContext()
	defer cancel()

	client, err := github.NewClient(ctx, github.Options{
		BaseURL:           apiURL,
		Token:             in.Token,
		RequestsPerSecond: e.cfg.GitHub.RequestsPerSecond,
		Burst:             e.cfg.GitHub.Burst,
		Timeout:           e.cfg.GitHub.Timeout,
		Logger:            e.logger,
	})
	if err != nil {
		return fail(err.Error())
	}

	fmt.Fprintf(out, "Auditing PR #%d in %s/%s\n", number, owner, repo)

	prFiles, err := client.ListPullRequestFiles(ctx, owner, repo, number)
	if err != nil {
		return fail(err.Error())
	}
	fmt.Fprintf(out, "Found %d changed files\n", len(prFiles))

	res, err := e.newAuditor().Run(ctx, in.Scan, github.ChangedFiles(prFiles))
	if err != nil {
		return fail(err.Error())
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "::warning file=%s::%s scan incomplete: %s\n", d.File, d.Category, d.Message)
	}
	fmt.Fprintf(out, "Found %d issues\n", res.Total)

	comment, created, err := client.UpsertComment(ctx, owner, repo, number, report.Markdown(res))
	if err != nil {
		return fail(err.Error())
	}
	e.logger.Info("Audit comment posted", "comment", comment.ID, "created", created, "url", comment.HTMLURL)

	if err := setOutputs(out, os.Getenv("GITHUB_OUTPUT"), actionOutputs(res)); err != nil {
		return fail(err.Error())
	}

	if in.Scan.ShouldFail(res) {
		return fail(fmt.Sprintf("Found %d issues in AI-generated code", res.Total))
	}
	return nil
}

type output struct {
	name  string
	value string
}

// actionOutputs lists the step outputs in the order they are written.
func actionOutputs(res *audit.ScanResult) []output {
	count := func(c rules.Category) string {
		return fmt.Sprint(res.Count(c))
	}
	return []output{
		{"findings-count", fmt.Sprint(res.Total)},
		{"security-issues", count(rules.CategorySecurity)},
		{"license-violations", count(rules.CategoryLicense)},
		{"pii-leaks", count(rules.CategoryPII)},
		{"ai-patterns", count(rules.CategoryAIPattern)},
	}
}

// setOutputs appends outputs to the $GITHUB_OUTPUT file using the
// delimiter form, or prints set-output commands when no file is given.
func setOutputs(stdout io.Writer, path string, outputs []output) error {
	if path == "" {
		for _, o := range outputs {
			fmt.Fprintf(stdout, "::set-output name=%s::%s\n", o.name, o.value)
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	for _, o := range outputs {
		delim := "ghadelimiter_" + uuid.NewString()
		if _, err := fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", o.name, delim, o.value, delim); err != nil {
			return fmt.Errorf("failed to write GITHUB_OUTPUT: %w", err)
		}
	}
	return nil
}
