package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"aiaudit/internal/audit"
	"aiaudit/internal/report"
	"aiaudit/internal/version"
)

// getRepoRoot returns the directory config and relative paths resolve against.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newAuditor builds an auditor bound to the environment's catalogs and logger.
func (e *env) newAuditor() *audit.Auditor {
	return audit.NewAuditor(e.rules, audit.WithLogger(e.logger))
}

// useColor resolves the auto/always/never color mode for w.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeReport renders res to w in the given format.
func (e *env) writeReport(w io.Writer, format report.Format, res *audit.ScanResult) error {
	return report.Write(w, format, res, report.Options{
		Color:   useColor(e.cfg.Output.Color, w),
		Rules:   e.rules,
		Version: version.Version,
	})
}
