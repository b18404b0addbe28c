package main

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aiaudit/internal/audit"
	"aiaudit/internal/diff"
	"aiaudit/internal/errors"
	"aiaudit/internal/report"
	"aiaudit/internal/rules"
)

const (
	// Files above this size are not read in path mode.
	maxFileBytes = 1 << 20
	// Decompressed diffs above this size are rejected.
	maxDiffBytes = 256 << 20
	// Bytes inspected for NUL when deciding a file is binary.
	binarySniffLen = 8000
)

var (
	scanDiffFile       string
	scanDiffEncoding   string
	scanGitBase        string
	scanSecurity       bool
	scanLicenses       bool
	scanPII            bool
	scanAIPatterns     bool
	scanThreshold      string
	scanFailOnFindings bool
	scanFormat         string
	scanWorkers        int
	scanSkipGenerated  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan files or a diff for risky changes",
	Long: `Scan local files, a unified diff or the changes since a git revision.

With paths, every file under them is scanned in full. With --diff or --git,
only the changed hunks are scanned and line numbers refer to the hunk text,
the same way pull request patches are scanned.

Exit codes:
  0  no findings, or --fail-on-findings not set
  1  the scan could not run
  2  findings at or above the threshold with --fail-on-findings

Examples:
  # Scan the working tree
  aiaudit scan .

  # Scan a patch, compressed or not
  git diff main | aiaudit scan --diff -
  aiaudit scan --diff changes.patch.zst

  # Scan changes since main, high severity only, as SARIF
  aiaudit scan --git main --severity-threshold=high -o sarif

  # Only security and PII, failing CI on any finding
  aiaudit scan --licenses=false --ai-patterns=false --fail-on-findings src/`,
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}

// addScanFlags binds the scan flags to cmd, resetting them to defaults.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&scanDiffFile, "diff", "", "Scan a unified diff file (- for stdin); gzip and zstd are detected")
	f.StringVar(&scanDiffEncoding, "diff-encoding", "", "Force the diff encoding: gzip, zstd, identity")
	f.StringVar(&scanGitBase, "git", "", "Scan the output of 'git diff BASE' in the repository")
	f.BoolVar(&scanSecurity, "security", true, "Scan for security vulnerabilities")
	f.BoolVar(&scanLicenses, "licenses", true, "Scan for license violations")
	f.BoolVar(&scanPII, "pii", true, "Scan for PII and secrets")
	f.BoolVar(&scanAIPatterns, "ai-patterns", true, "Scan for AI-generated code patterns")
	f.StringVar(&scanThreshold, "severity-threshold", "", "Minimum severity to report: low, medium, high, critical")
	f.BoolVar(&scanFailOnFindings, "fail-on-findings", false, "Exit with status 2 when findings are reported")
	f.StringVarP(&scanFormat, "output", "o", "", "Output format: human, json, yaml, markdown, sarif")
	f.IntVar(&scanWorkers, "workers", 0, "Files scanned concurrently (default from config, 0 = one per CPU)")
	f.BoolVar(&scanSkipGenerated, "skip-generated", false, "Skip vendored, generated and lock files")

	cmd.MarkFlagsMutuallyExclusive("diff", "git")
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if (scanDiffFile != "" || scanGitBase != "") && len(args) > 0 {
		return errors.New(errors.InputInvalid, "paths cannot be combined with --diff or --git", nil)
	}

	cfg, err := scanFlagOverrides(cmd, e.cfg.ScanOptions())
	if err != nil {
		return err
	}

	formatName := e.cfg.Output.Format
	if scanFormat != "" {
		formatName = scanFormat
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return errors.New(errors.InputInvalid, err.Error(), nil)
	}

	ctx, cancel := newContext()
	defer cancel()

	var files []audit.ChangedFile
	switch {
	case scanDiffFile != "":
		files, err = readDiffFiles(cmd.InOrStdin(), scanDiffFile, scanDiffEncoding)
	case scanGitBase != "":
		files, err = diff.NewGitRunner(e.repoRoot, diff.DefaultGitTimeout, e.logger).ChangedFiles(ctx, scanGitBase)
	default:
		if len(args) == 0 {
			args = []string{"."}
		}
		files, err = collectFiles(e.repoRoot, args, e.logger)
	}
	if err != nil {
		return err
	}
	if scanSkipGenerated {
		files = diff.FilterSourceFiles(files)
	}

	e.logger.Info("Scanning files", "files", len(files), "workers", cfg.Workers, "threshold", cfg.Threshold())

	res, err := e.newAuditor().Run(ctx, cfg, files)
	if err != nil {
		return err
	}

	if err := e.writeReport(cmd.OutOrStdout(), format, res); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	e.logger.Debug("Scan completed",
		"findings", res.Total,
		"files", res.FilesScanned,
		"diagnostics", len(res.Diagnostics),
		"duration", time.Since(start).Milliseconds(),
	)

	if cfg.ShouldFail(res) {
		return &exitError{code: 2}
	}
	return nil
}

// scanFlagOverrides applies the flags the user set explicitly on top of the
// configured scan options.
func scanFlagOverrides(cmd *cobra.Command, cfg audit.ScanConfig) (audit.ScanConfig, error) {
	flags := cmd.Flags()
	if flags.Changed("security") {
		cfg.Security = scanSecurity
	}
	if flags.Changed("licenses") {
		cfg.Licenses = scanLicenses
	}
	if flags.Changed("pii") {
		cfg.PII = scanPII
	}
	if flags.Changed("ai-patterns") {
		cfg.AIPatterns = scanAIPatterns
	}
	if flags.Changed("fail-on-findings") {
		cfg.FailOnFindings = scanFailOnFindings
	}
	if flags.Changed("workers") && scanWorkers > 0 {
		cfg.Workers = scanWorkers
	}
	if flags.Changed("severity-threshold") {
		sev, err := rules.ParseSeverity(scanThreshold)
		if err != nil {
			return cfg, errors.New(errors.InputInvalid, err.Error(), nil)
		}
		cfg.SeverityThreshold = sev
	}
	return cfg, nil
}

// readDiffFiles reads a diff from path, or from stdin when path is "-".
func readDiffFiles(stdin io.Reader, path, encoding string) ([]audit.ChangedFile, error) {
	enc, err := diff.ParseEncoding(encoding)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, err.Error(), nil)
	}

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.New(errors.InputInvalid, "cannot open diff", err)
		}
		defer f.Close()
		r = f
	}

	data, err := diff.ReadAll(r, enc, maxDiffBytes)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "cannot read diff", err)
	}
	files, err := diff.Parse(data)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "cannot parse diff", err)
	}
	return files, nil
}

// collectFiles reads every regular file under paths. Names are reported
// relative to root with forward slashes.
func collectFiles(root string, paths []string, logger *slog.Logger) ([]audit.ChangedFile, error) {
	var files []audit.ChangedFile
	seen := make(map[string]bool)

	add := func(path string) error {
		name := displayName(root, path)
		if seen[name] {
			return nil
		}
		seen[name] = true

		content, ok, err := readSourceFile(path)
		if err != nil {
			return errors.New(errors.InputInvalid, "cannot read "+name, err)
		}
		if !ok {
			logger.Debug("Skipping file", "file", name)
			return nil
		}
		files = append(files, audit.ChangedFile{
			Filename: name,
			Status:   audit.StatusUnchanged,
			Content:  content,
		})
		return nil
	}

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.New(errors.InputInvalid, "cannot scan path", err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// skipDir reports directories that are never walked.
func skipDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", "node_modules":
		return true
	}
	return false
}

// readSourceFile returns the file's text; ok is false for binary or
// oversized files.
func readSourceFile(path string) (content string, ok bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false, err
	}
	if info.Size() > maxFileBytes {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func displayName(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	return filepath.ToSlash(path)
}
