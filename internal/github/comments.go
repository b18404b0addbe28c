package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CommentMarker identifies the audit report among a pull request's comments.
const CommentMarker = "<!-- ai-code-audit -->"

// Comment is an issue or pull request conversation comment.
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url,omitempty"`
}

// ListComments returns all conversation comments of an issue or pull request.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	path := fmt.Sprintf("repos/%s/%s/issues/%d/comments", owner, repo, number)

	comments := []Comment{}
	for page := 1; page <= maxPages; page++ {
		req, err := c.newRequest(ctx, http.MethodGet, path, pageQuery(page), nil)
		if err != nil {
			return nil, err
		}
		var batch []Comment
		if err := c.do(req, &batch); err != nil {
			return nil, err
		}
		comments = append(comments, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return comments, nil
}

// CreateComment adds a new comment.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	path := fmt.Sprintf("repos/%s/%s/issues/%d/comments", owner, repo, number)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	var out Comment
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, id int64, body string) (*Comment, error) {
	path := fmt.Sprintf("repos/%s/%s/issues/comments/%d", owner, repo, id)
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	var out Comment
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertComment updates the first comment containing CommentMarker, or
// creates one. created reports which happened.
func (c *Client) UpsertComment(ctx context.Context, owner, repo string, number int, body string) (comment *Comment, created bool, err error) {
	comments, err := c.ListComments(ctx, owner, repo, number)
	if err != nil {
		return nil, false, err
	}

	for _, existing := range comments {
		if strings.Contains(existing.Body, CommentMarker) {
			c.logger.Debug("Updating audit comment", "id", existing.ID, "pr", number)
			comment, err = c.UpdateComment(ctx, owner, repo, existing.ID, body)
			return comment, false, err
		}
	}

	c.logger.Debug("Creating audit comment", "pr", number)
	comment, err = c.CreateComment(ctx, owner, repo, number, body)
	return comment, err == nil, err
}
