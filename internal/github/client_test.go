package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiaudit/internal/audit"
	"aiaudit/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Options{
		BaseURL: srv.URL,
		Token:   "test-token",
	})
	require.NoError(t, err)
	return c
}

func TestListPullRequestFiles_Paginates(t *testing.T) {
	var pages []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/app/pulls/7/files", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		n := perPage
		if page == "2" {
			n = 3
		}
		files := make([]PullRequestFile, n)
		for i := range files {
			files[i] = PullRequestFile{Filename: fmt.Sprintf("p%s/f%d.ts", page, i), Status: "modified", Patch: "@@ -1 +1 @@\n+x"}
		}
		_ = json.NewEncoder(w).Encode(files)
	})

	c := newTestClient(t, handler)
	files, err := c.ListPullRequestFiles(context.Background(), "octo", "app", 7)
	require.NoError(t, err)

	assert.Len(t, files, perPage+3)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, "p1/f0.ts", files[0].Filename)
	assert.Equal(t, "p2/f2.ts", files[len(files)-1].Filename)
}

func TestListPullRequestFiles_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, nil, errors.Unauthorized},
		{"forbidden", http.StatusForbidden, nil, errors.Unauthorized},
		{"rate limited 403", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, errors.RateLimited},
		{"rate limited 429", http.StatusTooManyRequests, nil, errors.RateLimited},
		{"not found", http.StatusNotFound, nil, errors.NotFound},
		{"unprocessable", http.StatusUnprocessableEntity, nil, errors.InputInvalid},
		{"server error", http.StatusBadGateway, nil, errors.UpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"nope","documentation_url":"https://docs.github.com"}`)
			}))

			_, err := c.ListPullRequestFiles(context.Background(), "octo", "app", 1)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.CodeOf(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(context.Background(), Options{BaseURL: url})
	require.NoError(t, err)

	_, err = c.ListPullRequestFiles(context.Background(), "octo", "app", 1)
	require.Error(t, err)
	assert.Equal(t, errors.UpstreamUnavailable, errors.CodeOf(err))
}

func TestClient_NoTokenSendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "aiaudit/")
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{BaseURL: srv.URL})
	require.NoError(t, err)

	files, err := c.ListPullRequestFiles(context.Background(), "octo", "app", 1)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// commentServer is an in-memory issue comments endpoint.
type commentServer struct {
	mu       sync.Mutex
	comments []Comment
	nextID   int64
	created  int
	updated  int
}

func (s *commentServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/repos/octo/app/issues/7/comments":
		_ = json.NewEncoder(w).Encode(s.comments)
	case r.Method == http.MethodPost && r.URL.Path == "/repos/octo/app/issues/7/comments":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.nextID++
		c := Comment{ID: s.nextID, Body: body["body"]}
		s.comments = append(s.comments, c)
		s.created++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(c)
	case r.Method == http.MethodPatch:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i := range s.comments {
			if "/repos/octo/app/issues/comments/"+strconv.FormatInt(s.comments[i].ID, 10) == r.URL.Path {
				s.comments[i].Body = body["body"]
				s.updated++
				_ = json.NewEncoder(w).Encode(s.comments[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestUpsertComment(t *testing.T) {
	srv := &commentServer{comments: []Comment{{ID: 1, Body: "LGTM"}}, nextID: 1}
	c := newTestClient(t, srv)
	ctx := context.Background()

	first, created, err := c.UpsertComment(ctx, "octo", "app", 7, CommentMarker+"\nfirst")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), first.ID)

	second, created, err := c.UpsertComment(ctx, "octo", "app", 7, CommentMarker+"\nsecond")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 1, srv.created)
	assert.Equal(t, 1, srv.updated)
	require.Len(t, srv.comments, 2)
	assert.Equal(t, "LGTM", srv.comments[0].Body)
	assert.Contains(t, srv.comments[1].Body, "second")
}

func TestChangedFiles(t *testing.T) {
	files := ChangedFiles([]PullRequestFile{
		{Filename: "a.ts", Status: "added", Patch: "@@ -0,0 +1 @@\n+eval(x)"},
		{Filename: "b.ts", Status: "removed"},
	})

	require.Len(t, files, 2)
	assert.Equal(t, audit.StatusAdded, files[0].Status)
	assert.True(t, files[0].Scannable())
	assert.False(t, files[1].Scannable())
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"action":"opened","number":42,"pull_request":{"number":42,"head":{"sha":"abc"}},"repository":{"name":"app","full_name":"octo/app","owner":{"login":"octo"}}}`))
	require.NoError(t, err)
	assert.True(t, ev.IsPullRequest())
	assert.Equal(t, 42, ev.PullRequest.Number)
	assert.Equal(t, "octo/app", ev.Repository.FullName)

	push, err := ParseEvent([]byte(`{"ref":"refs/heads/main"}`))
	require.NoError(t, err)
	assert.False(t, push.IsPullRequest())

	_, err = ParseEvent([]byte(`{`))
	assert.Equal(t, errors.InputInvalid, errors.CodeOf(err))
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("octo/app")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "app", repo)

	for _, bad := range []string{"", "octo", "/app", "octo/", "a/b/c"} {
		_, _, err := SplitRepository(bad)
		assert.Error(t, err, bad)
	}
}
