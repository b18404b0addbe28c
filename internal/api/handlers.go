package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"aiaudit/internal/audit"
	"aiaudit/internal/diff"
	"aiaudit/internal/errors"
	"aiaudit/internal/report"
	"aiaudit/internal/rules"
	"aiaudit/internal/version"
)

// ScanRequest is the request body for POST /scan
type ScanRequest struct {
	Files  []audit.ChangedFile `json:"files"`
	Config *ScanOverrides      `json:"config,omitempty"`
}

// ScanOverrides adjusts the server's scan defaults for one request.
// Nil fields keep the default.
type ScanOverrides struct {
	AIPatterns        *bool  `json:"aiPatterns,omitempty"`
	Security          *bool  `json:"security,omitempty"`
	Licenses          *bool  `json:"licenses,omitempty"`
	PII               *bool  `json:"pii,omitempty"`
	SeverityThreshold string `json:"severityThreshold,omitempty"`
	FailOnFindings    *bool  `json:"failOnFindings,omitempty"`
}

// apply returns base with the overrides applied.
func (o *ScanOverrides) apply(base audit.ScanConfig) (audit.ScanConfig, error) {
	if o == nil {
		return base, nil
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.AIPatterns, o.AIPatterns)
	set(&base.Security, o.Security)
	set(&base.Licenses, o.Licenses)
	set(&base.PII, o.PII)
	set(&base.FailOnFindings, o.FailOnFindings)

	if o.SeverityThreshold != "" {
		sev, err := rules.ParseSeverity(o.SeverityThreshold)
		if err != nil {
			return base, errors.New(errors.InputInvalid, "invalid severityThreshold", err)
		}
		base.SeverityThreshold = sev
	}
	return base, nil
}

// overridesFromQuery reads the same overrides from URL parameters.
func overridesFromQuery(r *http.Request) (*ScanOverrides, error) {
	q := r.URL.Query()
	o := &ScanOverrides{SeverityThreshold: q.Get("severityThreshold")}

	for name, dst := range map[string]**bool{
		"aiPatterns":     &o.AIPatterns,
		"security":       &o.Security,
		"licenses":       &o.Licenses,
		"pii":            &o.PII,
		"failOnFindings": &o.FailOnFindings,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Newf(errors.InputInvalid, "query parameter %s must be a boolean", name)
		}
		*dst = &b
	}
	return o, nil
}

// handleScan handles POST /scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyError(w, err, "Invalid JSON body")
		return
	}

	for i, f := range req.Files {
		if f.Filename == "" {
			BadRequest(w, "files["+strconv.Itoa(i)+"].filename is required")
			return
		}
	}

	cfg, err := req.Config.apply(s.scan)
	if err != nil {
		WriteAuditError(w, err)
		return
	}

	s.runScan(w, r, cfg, req.Files)
}

// handleScanDiff handles POST /scan/diff. The body is a unified diff,
// optionally gzip or zstd compressed.
func (s *Server) handleScanDiff(w http.ResponseWriter, r *http.Request) {
	overrides, err := overridesFromQuery(r)
	if err != nil {
		WriteAuditError(w, err)
		return
	}
	cfg, err := overrides.apply(s.scan)
	if err != nil {
		WriteAuditError(w, err)
		return
	}

	enc, err := diff.ParseEncoding(r.Header.Get("Content-Encoding"))
	if err != nil {
		WriteError(w, errors.New(errors.InputInvalid, err.Error(), nil), http.StatusUnsupportedMediaType)
		return
	}

	data, err := diff.ReadAll(r.Body, enc, s.cfg.MaxBodyBytes)
	if err != nil {
		writeBodyError(w, err, "Cannot read diff body")
		return
	}

	files, err := diff.Parse(data)
	if err != nil {
		WriteAuditError(w, errors.New(errors.InputInvalid, "Invalid unified diff", err))
		return
	}
	if v, _ := strconv.ParseBool(r.URL.Query().Get("skipGenerated")); v {
		files = diff.FilterSourceFiles(files)
	}

	s.runScan(w, r, cfg, files)
}

func (s *Server) runScan(w http.ResponseWriter, r *http.Request, cfg audit.ScanConfig, files []audit.ChangedFile) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		WriteError(w, errors.New(errors.InputInvalid, err.Error(), nil), http.StatusBadRequest)
		return
	}
	if format == report.FormatHuman {
		// JSON unless a machine format was asked for.
		format = report.FormatJSON
	}

	res, err := s.auditor.Run(r.Context(), cfg, files)
	if err != nil {
		WriteAuditError(w, err)
		return
	}
	s.metrics.ObserveFiles(res.FilesScanned)

	if cfg.ShouldFail(res) {
		w.Header().Set("X-Audit-Should-Fail", "true")
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, res, report.Options{Rules: s.rules, Version: version.Version}); err != nil {
		InternalError(w, "Cannot render result", err)
		return
	}

	switch format {
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case report.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	case report.FormatSARIF:
		w.Header().Set("Content-Type", "application/sarif+json")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// writeBodyError distinguishes oversized bodies from malformed ones.
func writeBodyError(w http.ResponseWriter, err error, message string) {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		WriteError(w, errors.New(errors.InputInvalid, "Request body too large", err), http.StatusRequestEntityTooLarge)
		return
	}
	WriteError(w, errors.New(errors.InputInvalid, message, err), http.StatusBadRequest)
}

// RuleInfo describes one rule for GET /rules
type RuleInfo struct {
	Name        string         `json:"name"`
	Category    rules.Category `json:"category"`
	Severity    rules.Severity `json:"severity"`
	Description string         `json:"description"`
	Suggestion  string         `json:"suggestion"`
	Pattern     string         `json:"pattern"`
}

// RulesResponse is the response for GET /rules
type RulesResponse struct {
	Total int        `json:"total"`
	Rules []RuleInfo `json:"rules"`
}

// handleListRules handles GET /rules
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	catalogs := s.rules.All()
	if name := r.URL.Query().Get("category"); name != "" {
		c, err := rules.ParseCategory(name)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		catalogs = []*rules.Catalog{s.rules.Catalog(c)}
	}

	resp := RulesResponse{Rules: []RuleInfo{}}
	for _, cat := range catalogs {
		if cat == nil {
			continue
		}
		for _, rule := range cat.Rules {
			resp.Rules = append(resp.Rules, RuleInfo{
				Name:        rule.Name,
				Category:    rule.Category,
				Severity:    rule.Severity,
				Description: rule.Description,
				Suggestion:  rule.Suggestion,
				Pattern:     rule.Source,
			})
		}
	}
	resp.Total = len(resp.Rules)

	WriteJSON(w, resp, http.StatusOK)
}
