// Package diff turns unified diffs into the changed files the auditor scans.
package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"aiaudit/internal/audit"
)

const devNull = "/dev/null"

// Parser parses unified git diffs into changed files
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a unified diff into one ChangedFile per file header.
// Content holds the file's hunks in unified format, the same shape the
// GitHub API reports as a file's patch.
func (p *Parser) Parse(diffContent []byte) ([]audit.ChangedFile, error) {
	if len(diffContent) == 0 {
		return []audit.ChangedFile{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff(diffContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	files := make([]audit.ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		cf, err := p.parseFileDiff(fd)
		if err != nil {
			return nil, err
		}
		files = append(files, cf)
	}
	return files, nil
}

func (p *Parser) parseFileDiff(fd *godiff.FileDiff) (audit.ChangedFile, error) {
	oldPath := cleanPath(fd.OrigName)
	newPath := cleanPath(fd.NewName)

	cf := audit.ChangedFile{
		Filename: newPath,
		Status:   fileStatus(fd, oldPath, newPath),
	}
	if cf.Status == audit.StatusRemoved {
		cf.Filename = oldPath
	}

	if len(fd.Hunks) > 0 {
		patch, err := godiff.PrintHunks(fd.Hunks)
		if err != nil {
			return cf, fmt.Errorf("failed to print hunks for %s: %w", cf.Filename, err)
		}
		cf.Content = string(patch)
	}
	return cf, nil
}

func fileStatus(fd *godiff.FileDiff, oldPath, newPath string) audit.FileStatus {
	for _, line := range fd.Extended {
		switch {
		case strings.HasPrefix(line, "new file mode"):
			return audit.StatusAdded
		case strings.HasPrefix(line, "deleted file mode"):
			return audit.StatusRemoved
		case strings.HasPrefix(line, "rename from"):
			return audit.StatusRenamed
		case strings.HasPrefix(line, "copy from"):
			return audit.StatusCopied
		}
	}

	switch {
	case oldPath == devNull || oldPath == "":
		return audit.StatusAdded
	case newPath == devNull || newPath == "":
		return audit.StatusRemoved
	case oldPath != newPath:
		return audit.StatusRenamed
	}
	return audit.StatusModified
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == devNull {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// Parse is a convenience function to parse a unified diff
func Parse(diffContent []byte) ([]audit.ChangedFile, error) {
	return NewParser().Parse(diffContent)
}

// IsSourceFile reports whether path looks hand-written rather than vendored,
// generated or a lock file.
func IsSourceFile(path string) bool {
	skipPrefixes := []string{
		"vendor/",
		"node_modules/",
		".git/",
		"dist/",
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) || strings.Contains(path, "/"+prefix) {
			return false
		}
	}

	skipSuffixes := []string{
		".sum",
		".lock",
		".min.js",
		".min.css",
		".map",
		".pb.go",
		"_generated.go",
		"-lock.json", // package-lock.json, etc.
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}

	return true
}

// FilterSourceFiles returns only the files IsSourceFile accepts
func FilterSourceFiles(files []audit.ChangedFile) []audit.ChangedFile {
	filtered := make([]audit.ChangedFile, 0, len(files))
	for _, f := range files {
		if IsSourceFile(f.Filename) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
