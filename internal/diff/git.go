package diff

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"aiaudit/internal/audit"
	auditerrors "aiaudit/internal/errors"
	"aiaudit/internal/slogutil"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 30 * time.Second

// GitRunner produces diffs from a local repository.
type GitRunner struct {
	repoRoot string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGitRunner creates a runner for the repository at repoRoot.
func NewGitRunner(repoRoot string, timeout time.Duration, logger *slog.Logger) *GitRunner {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &GitRunner{repoRoot: repoRoot, timeout: timeout, logger: logger}
}

// Diff returns the unified diff between base and the working tree.
func (g *GitRunner) Diff(ctx context.Context, base string) ([]byte, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "-M", base}
	if base == "" {
		args = args[:len(args)-1]
	}
	return g.run(ctx, args...)
}

// ChangedFiles runs Diff and parses the result.
func (g *GitRunner) ChangedFiles(ctx context.Context, base string) ([]audit.ChangedFile, error) {
	out, err := g.Diff(ctx, base)
	if err != nil {
		return nil, err
	}
	return Parse(out)
}

func (g *GitRunner) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	g.logger.Debug("Executing git command",
		"args", args,
		"timeout", g.timeout.String(),
	)

	output, err := cmd.Output()
	if err == nil {
		return output, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, auditerrors.New(auditerrors.UpstreamUnavailable, "Git command timed out", err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, auditerrors.New(auditerrors.InputInvalid, "Git command failed", err).
			WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": string(exitErr.Stderr),
			})
	}

	return nil, auditerrors.New(auditerrors.UpstreamUnavailable, "Git is not available", err)
}
