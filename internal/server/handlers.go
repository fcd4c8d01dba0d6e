package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"quickscribe/internal/api"
	"quickscribe/internal/gateway"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
	"quickscribe/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, api.StatsResponse{Counts: map[string]int{
		string(jobs.StatusPending):    health.Pending,
		string(jobs.StatusProcessing): health.Processing,
		string(jobs.StatusCompleted):  health.Completed,
		string(jobs.StatusFailed):     health.Failed,
	}})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	input := s.submitOptions(r)
	input.Filename = header.Filename
	input.ContentType = header.Header.Get("Content-Type")
	input.Size = header.Size
	input.Reader = file

	job, err := s.gateway.Submit(r.Context(), input)
	if err != nil {
		if errors.Is(err, jobs.ErrJobExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("upload failed", logging.Error(err))
		status := http.StatusBadGateway
		if job == nil {
			status = http.StatusBadRequest
		}
		message := "upload accepted but dispatch failed; poll job status"
		if job == nil {
			message = err.Error()
		}
		if job != nil {
			writeJSON(w, status, api.SubmitResponse{JobID: job.JobID, Message: message})
			return
		}
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, api.SubmitResponse{JobID: job.JobID, Message: "processing"})
}

func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	index, err := strconv.Atoi(strings.TrimSpace(r.Header.Get("X-Chunk-Index")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "X-Chunk-Index must be an integer")
		return
	}

	input := gateway.ChunkInput{
		UploadID:    strings.TrimSpace(r.Header.Get("X-Upload-ID")),
		Index:       index,
		Last:        parseBool(r.Header.Get("X-Last-Chunk")),
		Reader:      r.Body,
		SubmitInput: s.submitOptions(r),
	}
	input.Filename = strings.TrimSpace(r.Header.Get("X-Filename"))
	input.ContentType = r.Header.Get("Content-Type")
	input.Size = -1

	uploadID, job, err := s.gateway.Chunk(r.Context(), input)
	if err != nil {
		if errors.Is(err, jobs.ErrJobExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("chunk upload failed", logging.Error(err))
		if job == nil && uploadID == "" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if job != nil {
		writeJSON(w, http.StatusOK, api.SubmitResponse{JobID: job.JobID, Message: "processing"})
		return
	}
	w.Header().Set("X-Upload-ID", uploadID)
	writeJSON(w, http.StatusAccepted, api.SubmitResponse{Message: "chunk accepted"})
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req api.PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	resp, err := s.gateway.Presign(r.Context(), req, s.submitOptions(r))
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			writeError(w, http.StatusNotImplemented, "direct uploads are not available; use /api/upload")
			return
		}
		s.logger.Error("presign failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create upload URL")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]
	err := s.gateway.NotifyUploaded(r.Context(), jobID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, api.SubmitResponse{JobID: jobID, Message: "processing"})
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown job")
	case errors.Is(err, gateway.ErrNotDispatchable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("dispatch failed", logging.Error(err),
			logging.String(logging.FieldJobID, jobID))
		writeError(w, http.StatusBadGateway, "dispatch to worker failed; poll job status")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]
	job, err := s.gateway.Status(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job store unavailable")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	update := api.UpdateForJob(job)
	writeJSON(w, http.StatusOK, api.StatusResponse{
		JobID:  update.JobID,
		Status: update.Status,
		Result: update.Result,
		Error:  update.Error,
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req api.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := s.dispatcher.Complete(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, api.SubmitResponse{JobID: job.JobID, Message: "acknowledged"})
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown job")
	case errors.Is(err, jobs.ErrResultMismatch):
		writeError(w, http.StatusConflict, "job already finished with a different result")
	default:
		if strings.Contains(err.Error(), "callback") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("callback failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record result")
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := jobs.ParseStatus(part)
			if !ok {
				writeError(w, http.StatusBadRequest, "unknown status "+part)
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(items)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job store unavailable")
		return
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}
	writeJSON(w, http.StatusOK, api.StatsResponse{Counts: counts})
}

// submitOptions reads the task parameters shared by the upload,
// chunk, and presign endpoints from headers and query parameters.
func (s *Server) submitOptions(r *http.Request) gateway.SubmitInput {
	get := func(key, header string) string {
		if v := r.FormValue(key); v != "" {
			return v
		}
		return r.Header.Get(header)
	}
	speakers, _ := strconv.Atoi(get("speakers", "X-Speakers"))
	return gateway.SubmitInput{
		JobID:        get("jobId", "X-Job-ID"),
		Task:         get("task", "X-Task"),
		Language:     get("language", "X-Language"),
		SpeakerCount: speakers,
		Diarize:      parseBool(get("diarize", "X-Diarize")),
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
