package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

const threadURL = "https://www.reddit.com/r/golang/comments/abc123/thread/"

func newTestServer(t *testing.T) (*Server, http.Handler, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	artifacts, err := storage.NewLocalStorage(filepath.Join(dir, "videos"))
	require.NoError(t, err)

	srv := NewServer(st, artifacts, config.Default())
	return srv, srv.Handler(), st
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRegisterAndLogin(t *testing.T) {
	_, h, _ := newTestServer(t)
	registerUser(t, h, "a@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
		"email": "a@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateVideoRequiresAuth(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/create-video", "", map[string]any{
		"reddit_url": threadURL, "max_comments": 5,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/create-video", "not-a-token", map[string]any{
		"reddit_url": threadURL, "max_comments": 5,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateVideoValidation(t *testing.T) {
	_, h, st := newTestServer(t)
	token := registerUser(t, h, "a@example.com")

	// malformed thread reference
	rec := doJSON(t, h, http.MethodPost, "/api/create-video", token, map[string]any{
		"reddit_url": "https://example.com/not/reddit", "max_comments": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// max_comments outside the accepted set
	rec = doJSON(t, h, http.MethodPost, "/api/create-video", token, map[string]any{
		"reddit_url": threadURL, "max_comments": 7,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// rejected submissions never create a job
	user, err := st.GetUserByEmail("a@example.com")
	require.NoError(t, err)
	jobs, err := st.ListJobs(user.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCreateVideoEnqueuesPendingJob(t *testing.T) {
	_, h, st := newTestServer(t)
	token := registerUser(t, h, "a@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/create-video", token, map[string]any{
		"reddit_url": threadURL, "max_comments": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	jobID := resp["job_id"]
	require.NotEmpty(t, jobID)

	job, err := st.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, job.Status)
	assert.Equal(t, threadURL, job.SourceRef)
	assert.Equal(t, 5, job.MaxComments)
}

func TestListVideosOwnerIsolation(t *testing.T) {
	_, h, _ := newTestServer(t)
	alice := registerUser(t, h, "alice@example.com")
	bob := registerUser(t, h, "bob@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/create-video", alice, map[string]any{
		"reddit_url": threadURL, "max_comments": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/videos", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var aliceJobs []jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aliceJobs))
	assert.Len(t, aliceJobs, 1)
	assert.Equal(t, "pending", aliceJobs[0].Status)
	assert.Empty(t, aliceJobs[0].ArtifactURL)

	rec = doJSON(t, h, http.MethodGet, "/api/videos", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bobJobs []jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bobJobs))
	assert.Empty(t, bobJobs)

	// bob cannot read alice's job by id either
	rec = doJSON(t, h, http.MethodGet, "/api/video/"+aliceJobs[0].ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifactURLOnlyWhenCompleted(t *testing.T) {
	srv, h, st := newTestServer(t)
	token := registerUser(t, h, "a@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/create-video", token, map[string]any{
		"reddit_url": threadURL, "max_comments": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	jobID := created["job_id"]

	// download of a not-yet-rendered artifact resolves nothing
	rec = doJSON(t, h, http.MethodGet, "/videos/anything.mp4", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// walk the job to completion the way the orchestrator would
	_, err := st.TryClaim(jobID)
	require.NoError(t, err)
	_, err = st.Advance(jobID, types.StatusComposing, store.Update{Title: "A thread"})
	require.NoError(t, err)
	_, err = st.Advance(jobID, types.StatusRendering, store.Update{})
	require.NoError(t, err)

	ref := srv.artifacts.NewRef(jobID)
	require.NoError(t, os.WriteFile(srv.artifacts.Path(ref), []byte("mp4 bytes"), 0644))
	_, err = st.Advance(jobID, types.StatusCompleted, store.Update{ArtifactRef: ref})
	require.NoError(t, err)

	rec = doJSON(t, h, http.MethodGet, "/api/video/"+jobID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, "/videos/"+ref, job.ArtifactURL)
	assert.Equal(t, "A thread", job.Title)

	rec = doJSON(t, h, http.MethodGet, job.ArtifactURL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp4 bytes", rec.Body.String())
}

func TestErrorDetailSurfacedInStatusRead(t *testing.T) {
	_, h, st := newTestServer(t)
	token := registerUser(t, h, "a@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/create-video", token, map[string]any{
		"reddit_url": threadURL, "max_comments": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err := st.TryClaim(created["job_id"])
	require.NoError(t, err)
	_, err = st.Advance(created["job_id"], types.StatusError, store.Update{ErrorDetail: "fetch: thread not found"})
	require.NoError(t, err)

	rec = doJSON(t, h, http.MethodGet, "/api/video/"+created["job_id"], token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "error", job.Status)
	assert.Contains(t, job.ErrorDetail, "not found")
	assert.Empty(t, job.ArtifactURL)
}
