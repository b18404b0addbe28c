package github

import (
	"encoding/json"
	"os"
	"strings"

	"aiaudit/internal/errors"
)

// Event is the subset of a GitHub Actions event payload the audit reads.
type Event struct {
	Action      string       `json:"action,omitempty"`
	Number      int          `json:"number,omitempty"`
	PullRequest *PullRequest `json:"pull_request,omitempty"`
	Repository  *Repository  `json:"repository,omitempty"`
}

// PullRequest identifies the pull request an event refers to.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

// Repository is the repository an event was raised in.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// IsPullRequest reports whether the event carries a pull request.
func (e *Event) IsPullRequest() bool {
	return e != nil && e.PullRequest != nil && e.PullRequest.Number > 0
}

// LoadEvent reads the payload at path, usually $GITHUB_EVENT_PATH.
func LoadEvent(path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "cannot read event payload", err)
	}
	return ParseEvent(data)
}

// ParseEvent decodes an event payload.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.New(errors.InputInvalid, "invalid event payload", err)
	}
	return &ev, nil
}

// SplitRepository splits "owner/repo", the $GITHUB_REPOSITORY form.
func SplitRepository(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.Newf(errors.InputInvalid, "repository %q is not in owner/repo form", full)
	}
	return owner, repo, nil
}
