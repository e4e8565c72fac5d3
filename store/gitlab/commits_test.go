package gitlab_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitstore/store"
	gl "github.com/byte4ever/gitstore/store/gitlab"
)

const commitsPath = "/api/v4/projects/org/site/repository/commits"

// commitCapture decodes the commit payloads a handler
// receives.
type commitCapture struct {
	Branch        string `json:"branch"`
	CommitMessage string `json:"commit_message"`
	StartBranch   string `json:"start_branch"`
	AuthorName    string `json:"author_name"`
	AuthorEmail   string `json:"author_email"`
	Actions       []struct {
		Action       string `json:"action"`
		FilePath     string `json:"file_path"`
		PreviousPath string `json:"previous_path"`
		Content      string `json:"content"`
		Encoding     string `json:"encoding"`
	} `json:"actions"`
}

// decodeCommit reads a commit payload from a request.
func decodeCommit(
	t *testing.T,
	r *http.Request,
) commitCapture {
	t.Helper()

	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var c commitCapture
	require.NoError(t, json.Unmarshal(raw, &c))

	return c
}

func TestPersistFiles_plain(t *testing.T) {
	t.Parallel()

	var captured commitCapture

	client := newTestClient(
		t,
		gl.Config{
			Token:       "tok",
			AuthorName:  "CMS Bot",
			AuthorEmail: "bot@example.com",
		},
		func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodHead:
				// Existence probes: only exists.md is
				// present.
				if strings.Contains(
					r.URL.Path, "exists.md",
				) {
					w.WriteHeader(http.StatusOK)
				} else {
					w.WriteHeader(http.StatusNotFound)
				}
			case r.URL.Path == commitsPath:
				captured = decodeCommit(t, r)

				writeJSON(t, w, http.StatusCreated,
					map[string]any{
						"id":       "abc123",
						"short_id": "abc",
					},
				)
			default:
				t.Errorf(
					"unexpected path %s", r.URL.Path,
				)
			}
		},
	)

	err := client.PersistFiles(
		context.Background(),
		[]store.File{
			{
				Path: "content/exists.md",
				Data: []byte("old"),
			},
			{
				Path: "/content/new.md",
				Data: []byte("new"),
			},
		},
		store.PersistOptions{
			CommitMessage: "Update stuff",
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "main", captured.Branch)
	assert.Empty(t, captured.StartBranch)
	assert.Equal(
		t, "Update stuff", captured.CommitMessage,
	)
	assert.Equal(
		t, "CMS Bot", captured.AuthorName,
	)

	require.Len(t, captured.Actions, 2)

	// Existing path classifies as update, new path
	// as create; the leading slash is stripped.
	assert.Equal(
		t, "update", captured.Actions[0].Action,
	)
	assert.Equal(
		t, "content/exists.md",
		captured.Actions[0].FilePath,
	)

	assert.Equal(
		t, "create", captured.Actions[1].Action,
	)
	assert.Equal(
		t, "content/new.md",
		captured.Actions[1].FilePath,
	)

	assert.Equal(
		t, "base64", captured.Actions[1].Encoding,
	)
	assert.Equal(
		t,
		base64.StdEncoding.EncodeToString(
			[]byte("new"),
		),
		captured.Actions[1].Content,
	)
}

func TestPersistFiles_probe_failure(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t,
		gl.Config{Token: "tok"},
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(
				http.StatusInternalServerError,
			)
		},
	)

	err := client.PersistFiles(
		context.Background(),
		[]store.File{{Path: "a.md"}},
		store.PersistOptions{CommitMessage: "m"},
	)

	assert.ErrorContains(
		t, err, "classifying commit actions",
	)
}

func TestPersistFiles_commit_rejected(t *testing.T) {
	t.Parallel()

	client := newTestClient(
		t,
		gl.Config{Token: "tok"},
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			writeJSON(t, w, http.StatusBadRequest,
				map[string]any{
					"message": "A file with this name " +
						"doesn't exist",
				},
			)
		},
	)

	err := client.PersistFiles(
		context.Background(),
		[]store.File{{Path: "a.md"}},
		store.PersistOptions{CommitMessage: "m"},
	)

	var apiErr *gl.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(
		t, http.StatusBadRequest, apiErr.Status,
	)
	assert.Contains(
		t, apiErr.Message, "doesn't exist",
	)
}
