package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adityabisht-lab/reddit-video-generator/internal/fetch"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

type createVideoRequest struct {
	RedditURL   string `json:"reddit_url"`
	MaxComments int    `json:"max_comments"`
}

type jobResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxComments == 0 {
		req.MaxComments = 5
	}

	// validation failures reject synchronously; no job record is created
	if _, err := fetch.ParseSourceRef(req.RedditURL); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid Reddit URL")
		return
	}
	if !s.cfg.MaxCommentsAccepted(req.MaxComments) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("max_comments must be one of %v", s.cfg.Jobs.AcceptedMaxComments))
		return
	}

	job := &types.Job{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		SourceRef:   req.RedditURL,
		MaxComments: req.MaxComments,
	}
	if err := s.store.CreateJob(job); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	log.Printf("[api] user %d: job %s queued for %s", userID, job.ID, job.SourceRef)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request, userID int64) {
	jobs, err := s.store.ListJobs(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list jobs")
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, s.toResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request, userID int64) {
	job, err := s.store.GetJobForOwner(r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	writeJSON(w, http.StatusOK, s.toResponse(job))
}

// handleDownload serves a rendered artifact. The reference resolves only
// while its job is completed.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	job, err := s.store.GetJobByArtifact(ref)
	if err != nil || job.Status != types.StatusCompleted || !s.artifacts.Exists(ref) {
		writeError(w, http.StatusNotFound, "Video not found")
		return
	}
	http.ServeFile(w, r, s.artifacts.Path(ref))
}

func (s *Server) toResponse(job *types.Job) jobResponse {
	resp := jobResponse{
		ID:        job.ID,
		Title:     job.Title,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
	}
	switch job.Status {
	case types.StatusCompleted:
		resp.ArtifactURL = "/videos/" + job.ArtifactRef
	case types.StatusError:
		resp.ErrorDetail = job.ErrorDetail
	}
	return resp
}
