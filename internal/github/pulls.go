package github

import (
	"context"
	"fmt"
	"net/http"

	"aiaudit/internal/audit"
)

// PullRequestFile is one entry of the pull request files listing.
type PullRequestFile struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	Patch            string `json:"patch,omitempty"`
	PreviousFilename string `json:"previous_filename,omitempty"`
}

// ListPullRequestFiles returns every changed file of a pull request,
// following pagination.
func (c *Client) ListPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]PullRequestFile, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/files", owner, repo, number)

	files := []PullRequestFile{}
	for page := 1; page <= maxPages; page++ {
		req, err := c.newRequest(ctx, http.MethodGet, path, pageQuery(page), nil)
		if err != nil {
			return nil, err
		}
		var batch []PullRequestFile
		if err := c.do(req, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < perPage {
			break
		}
	}

	c.logger.Debug("Listed pull request files",
		"repo", owner+"/"+repo,
		"pr", number,
		"files", len(files),
	)
	return files, nil
}

// ChangedFiles converts the listing into scan input. The patch text is the
// content scanned, so line numbers refer to lines of the patch.
func ChangedFiles(files []PullRequestFile) []audit.ChangedFile {
	out := make([]audit.ChangedFile, 0, len(files))
	for _, f := range files {
		out = append(out, audit.ChangedFile{
			Filename: f.Filename,
			Status:   audit.FileStatus(f.Status),
			Content:  f.Patch,
		})
	}
	return out
}
