package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditerrors "aiaudit/internal/errors"
	"aiaudit/internal/rules"
	"aiaudit/internal/slogutil"
)

// ScanHook observes each (file, category) scan. err is non-nil when the scan
// was abandoned.
type ScanHook func(category rules.Category, elapsed time.Duration, findings int, err error)

// Auditor runs the enabled engines over a set of changed files.
type Auditor struct {
	engines []*Engine
	logger  *slog.Logger
	hook    ScanHook
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithScanHook registers a per-scan observer, used for metrics.
func WithScanHook(hook ScanHook) Option {
	return func(a *Auditor) {
		a.hook = hook
	}
}

// WithEngines replaces the standard engines.
func WithEngines(engines ...*Engine) Option {
	return func(a *Auditor) {
		a.engines = engines
	}
}

// NewAuditor creates an auditor over the catalogs in set.
func NewAuditor(set *rules.Set, opts ...Option) *Auditor {
	a := &Auditor{
		engines: Engines(set),
		logger:  slogutil.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run scans files and aggregates the findings under cfg. Removed and empty
// files are skipped. Output order is file order, then category order, then
// rule and match order, regardless of cfg.Workers. The only error is
// cancellation of ctx.
func (a *Auditor) Run(ctx context.Context, cfg ScanConfig, files []ChangedFile) (*ScanResult, error) {
	start := time.Now()

	scannable := make([]ChangedFile, 0, len(files))
	for _, f := range files {
		if f.Scannable() {
			scannable = append(scannable, f)
		}
	}

	perFile := make([][]Finding, len(scannable))
	perFileDiags := make([][]Diagnostic, len(scannable))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range scannable {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i], perFileDiags[i] = a.scanFile(cfg, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, auditerrors.New(auditerrors.ScanAborted, "scan cancelled", err)
	}

	res := Aggregate(perFile, cfg.Threshold())
	res.FilesScanned = len(scannable)
	for _, d := range perFileDiags {
		res.Diagnostics = append(res.Diagnostics, d...)
	}

	a.logger.Debug("Scan complete",
		"files", len(scannable),
		"skipped", len(files)-len(scannable),
		"findings", res.Total,
		"diagnostics", len(res.Diagnostics),
		"duration", time.Since(start),
	)
	return res, nil
}

// scanFile runs every enabled engine over one file in category order.
func (a *Auditor) scanFile(cfg ScanConfig, f ChangedFile) ([]Finding, []Diagnostic) {
	src := NewSource(f.Filename, f.Content)

	var findings []Finding
	var diags []Diagnostic
	for _, e := range a.engines {
		if !cfg.Enabled(e.Category()) {
			continue
		}

		t0 := time.Now()
		got, err := e.ScanSource(src)
		if a.hook != nil {
			a.hook(e.Category(), time.Since(t0), len(got), err)
		}
		if err != nil {
			var se *ScanError
			rule := ""
			if errors.As(err, &se) {
				rule = se.Rule
			}
			a.logger.Warn("Scan abandoned",
				"file", f.Filename,
				"category", e.Category(),
				"rule", rule,
				"error", err.Error(),
			)
			diags = append(diags, Diagnostic{File: f.Filename, Category: e.Category(), Message: err.Error()})
			continue
		}
		findings = append(findings, got...)
	}
	return findings, diags
}
