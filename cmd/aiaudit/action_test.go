package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"aiaudit/internal/audit"
	"aiaudit/internal/errors"
	"aiaudit/internal/github"
	"aiaudit/internal/rules"
)

func TestReadActionInputs(t *testing.T) {
	t.Setenv("INPUT_GITHUB-TOKEN", "ghs_test")
	t.Setenv("INPUT_SCAN-PII", "false")
	t.Setenv("INPUT_SCAN-SECURITY", "yes") // only "true" enables
	t.Setenv("INPUT_SEVERITY-THRESHOLD", "high")
	t.Setenv("INPUT_FAIL_ON_FINDINGS", "true")

	in, err := readActionInputs(audit.DefaultScanConfig())
	if err != nil {
		t.Fatalf("readActionInputs() error = %v", err)
	}

	if in.Token != "ghs_test" {
		t.Errorf("Token = %q", in.Token)
	}
	if in.Scan.PII || in.Scan.Security {
		t.Errorf("PII = %v, Security = %v, want both false", in.Scan.PII, in.Scan.Security)
	}
	if !in.Scan.Licenses || !in.Scan.AIPatterns {
		t.Error("unset inputs should keep the configured values")
	}
	if in.Scan.SeverityThreshold != rules.SeverityHigh {
		t.Errorf("SeverityThreshold = %s, want high", in.Scan.SeverityThreshold)
	}
	if !in.Scan.FailOnFindings {
		t.Error("FailOnFindings should be read from the underscore form")
	}
}

func TestReadActionInputs_Errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("INPUT_GITHUB-TOKEN", "")
		_, err := readActionInputs(audit.DefaultScanConfig())
		if !errors.Is(err, errors.Unauthorized) {
			t.Errorf("error = %v, want UNAUTHORIZED", err)
		}
	})

	t.Run("bad threshold", func(t *testing.T) {
		t.Setenv("INPUT_GITHUB-TOKEN", "ghs_test")
		t.Setenv("INPUT_SEVERITY-THRESHOLD", "urgent")
		_, err := readActionInputs(audit.DefaultScanConfig())
		if !errors.Is(err, errors.InputInvalid) {
			t.Errorf("error = %v, want INPUT_INVALID", err)
		}
	})
}

func sampleOutputs() []output {
	res := audit.Aggregate([][]audit.Finding{{
		{Type: rules.CategorySecurity, Severity: rules.SeverityCritical, File: "a.js", Line: 1, Title: "eval-usage"},
		{Type: rules.CategoryPII, Severity: rules.SeverityHigh, File: "a.js", Line: 2, Title: "email"},
		{Type: rules.CategoryPII, Severity: rules.SeverityLow, File: "a.js", Line: 3, Title: "public-ip"},
	}}, rules.SeverityLow)
	return actionOutputs(res)
}

func TestActionOutputs(t *testing.T) {
	want := []output{
		{"findings-count", "3"},
		{"security-issues", "1"},
		{"license-violations", "0"},
		{"pii-leaks", "2"},
		{"ai-patterns", "0"},
	}
	got := sampleOutputs()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("outputs[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSetOutputs(t *testing.T) {
	t.Run("output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "output")
		if err := os.WriteFile(path, []byte("earlier=step\n"), 0644); err != nil {
			t.Fatal(err)
		}

		var stdout bytes.Buffer
		if err := setOutputs(&stdout, path, sampleOutputs()[:2]); err != nil {
			t.Fatalf("setOutputs() error = %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout = %q, want nothing", stdout.String())
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		re := regexp.MustCompile(`^earlier=step\nfindings-count<<(ghadelimiter_[0-9a-f-]{36})\n3\n(ghadelimiter_[0-9a-f-]{36})\nsecurity-issues<<(ghadelimiter_[0-9a-f-]{36})\n1\n(ghadelimiter_[0-9a-f-]{36})\n$`)
		m := re.FindStringSubmatch(string(data))
		if m == nil {
			t.Fatalf("GITHUB_OUTPUT content:\n%s", data)
		}
		if m[1] != m[2] || m[3] != m[4] || m[1] == m[3] {
			t.Errorf("delimiters = %v, want matching pairs unique per output", m[1:])
		}
	})

	t.Run("no output file", func(t *testing.T) {
		var stdout bytes.Buffer
		if err := setOutputs(&stdout, "", sampleOutputs()[:1]); err != nil {
			t.Fatalf("setOutputs() error = %v", err)
		}
		if got := stdout.String(); got != "::set-output name=findings-count::3\n" {
			t.Errorf("stdout = %q", got)
		}
	})
}

// fakeGitHub serves one pull request's files and its comments.
type fakeGitHub struct {
	mu       sync.Mutex
	files    []github.PullRequestFile
	comments []github.Comment
	auth     string
}

func (g *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auth = r.Header.Get("Authorization")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/repos/octo/app/pulls/7/files":
		_ = json.NewEncoder(w).Encode(g.files)
	case r.Method == http.MethodGet && r.URL.Path == "/repos/octo/app/issues/7/comments":
		_ = json.NewEncoder(w).Encode(g.comments)
	case r.Method == http.MethodPost && r.URL.Path == "/repos/octo/app/issues/7/comments":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		c := github.Comment{ID: int64(len(g.comments) + 1), Body: body["body"]}
		g.comments = append(g.comments, c)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(c)
	default:
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}
}

// actionEnv prepares the variables a runner would export for a pull
// request event and returns the GITHUB_OUTPUT path.
func actionEnv(t *testing.T, apiURL, event string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	eventPath := filepath.Join(dir, "event.json")
	if err := os.WriteFile(eventPath, []byte(event), 0644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "output")

	t.Setenv("GITHUB_API_URL", apiURL)
	t.Setenv("GITHUB_EVENT_PATH", eventPath)
	t.Setenv("GITHUB_REPOSITORY", "octo/app")
	t.Setenv("GITHUB_OUTPUT", outputPath)
	t.Setenv("INPUT_GITHUB-TOKEN", "ghs_test")
	return outputPath
}

const pullRequestEvent = `{"action":"synchronize","number":7,"pull_request":{"number":7,"head":{"sha":"abc"}}}`

func TestActionCommand(t *testing.T) {
	gh := &fakeGitHub{files: []github.PullRequestFile{
		{Filename: "app.js", Status: "modified", Patch: appPatch},
		{Filename: "old.js", Status: "removed"},
	}}
	srv := httptest.NewServer(gh)
	defer srv.Close()

	outputPath := actionEnv(t, srv.URL, pullRequestEvent)
	t.Setenv("INPUT_FAIL-ON-FINDINGS", "true")

	out, err := execute(t, "action", "-q")

	var ee *exitError
	if !stderrors.As(err, &ee) || ee.code != 1 {
		t.Fatalf("Execute() error = %v, want exit status 1", err)
	}
	for _, want := range []string{
		"Auditing PR #7 in octo/app\n",
		"Found 2 changed files\n",
		"Found 1 issues\n",
		"::error::Found 1 issues in AI-generated code\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if gh.auth != "Bearer ghs_test" {
		t.Errorf("Authorization = %q", gh.auth)
	}
	if len(gh.comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(gh.comments))
	}
	body := gh.comments[0].Body
	if !strings.HasPrefix(body, github.CommentMarker) || !strings.Contains(body, "`app.js:3`") {
		t.Errorf("comment body:\n%s", body)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"findings-count<<", "\n1\n", "pii-leaks<<", "ai-patterns<<"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("GITHUB_OUTPUT missing %q:\n%s", want, data)
		}
	}
}

func TestActionCommand_NotPullRequest(t *testing.T) {
	gh := &fakeGitHub{}
	srv := httptest.NewServer(gh)
	defer srv.Close()

	actionEnv(t, srv.URL, `{"ref":"refs/heads/main"}`)

	out, err := execute(t, "action", "-q")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Not a pull request, skipping audit") {
		t.Errorf("output = %q", out)
	}
	if gh.auth != "" {
		t.Error("no API request should be made for non pull request events")
	}
}

func TestActionCommand_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	actionEnv(t, srv.URL, pullRequestEvent)

	out, err := execute(t, "action", "-q")
	var ee *exitError
	if !stderrors.As(err, &ee) || ee.code != 1 {
		t.Fatalf("Execute() error = %v, want exit status 1", err)
	}
	if !strings.Contains(out, "::error::") || !strings.Contains(out, "Bad credentials") {
		t.Errorf("output = %q", out)
	}
}
