package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"shiptrack/internal/access"
	"shiptrack/internal/api"
	"shiptrack/internal/jobs"
	"shiptrack/internal/services"
	"shiptrack/internal/stage"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/pipeline/summary", s.withUser(s.handleSummary))
	mux.HandleFunc("GET /api/pipeline/jobs", s.withUser(s.handleListJobs))
	mux.HandleFunc("POST /api/pipeline/jobs", s.withUser(s.handleCreateJob))
	mux.HandleFunc("GET /api/pipeline/jobs/{id}", s.withUser(s.handleGetJob))
	mux.HandleFunc("GET /api/pipeline/jobs/{id}/history", s.withUser(s.handleHistory))
	mux.HandleFunc("POST /api/pipeline/jobs/{id}/advance-stage", s.withUser(s.handleAdvance))
	mux.HandleFunc("PUT /api/pipeline/jobs/{id}/status", s.withUser(s.handleStatusChange))
	for _, st := range stage.DataStages() {
		handler := s.withUser(s.stageHandler(st))
		mux.HandleFunc("POST /api/pipeline/jobs/{id}/"+string(st), handler)
		mux.HandleFunc("PUT /api/pipeline/jobs/{id}/"+string(st), handler)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, _ access.User) {
	summary, err := s.jobs.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request, _ access.User) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.jobs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: list})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, user access.User) {
	var req api.CreateJobRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.engine.CreateJob(r.Context(), user, req.JobNo, req.Stage1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDetail(w, r, http.StatusCreated, job.ID)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, _ access.User) {
	id, err := jobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDetail(w, r, http.StatusOK, id)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ access.User) {
	id, err := jobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.engine.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.HistoryResponse{History: api.FromHistory(entries)})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, user access.User) {
	id, err := jobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.AdvanceStageRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	target, ok := stage.Parse(req.TargetStage)
	if !ok {
		s.writeError(w, r, services.Wrap(services.ErrInvalidTransition, "server", "advance stage",
			"unknown target stage "+strconv.Quote(req.TargetStage), nil))
		return
	}
	if _, err := s.engine.AdvanceStage(r.Context(), id, target, user); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDetail(w, r, http.StatusOK, id)
}

func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request, user access.User) {
	id, err := jobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.UpdateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, ok := jobs.ParseStatus(req.Status)
	if !ok {
		s.writeError(w, r, services.Wrap(services.ErrValidation, "server", "update status",
			"unknown status "+strconv.Quote(req.Status), nil))
		return
	}
	if _, err := s.engine.UpdateStatus(r.Context(), id, status, user); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDetail(w, r, http.StatusOK, id)
}

// stageHandler saves stage data. A stage4 payload carrying acknowledge_date
// completes the job in the same call.
func (s *Server) stageHandler(st stage.Stage) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user access.User) {
		id, err := jobID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := services.WithStage(r.Context(), string(st))
		if st == stage.Stage4 && carriesAcknowledgement(body) {
			_, err = s.engine.CompleteStage4(ctx, id, body, user)
		} else {
			_, err = s.engine.SubmitStageData(ctx, id, st, body, user)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeDetail(w, r, http.StatusOK, id)
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, r *http.Request, status int, id int64) {
	detail, err := s.jobs.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, detail)
}

func carriesAcknowledgement(body []byte) bool {
	var probe struct {
		AcknowledgeDate *string `json:"acknowledge_date"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &probe); err != nil {
		return false
	}
	return probe.AcknowledgeDate != nil && strings.TrimSpace(*probe.AcknowledgeDate) != ""
}

func jobID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrNotFound, "server", "parse job id", "invalid job id", nil)
	}
	return id, nil
}

func parseListFilter(r *http.Request) (jobs.ListFilter, error) {
	var filter jobs.ListFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("stage")); raw != "" {
		st, ok := stage.Parse(raw)
		if !ok {
			return filter, services.Wrap(services.ErrValidation, "server", "list jobs", "unknown stage "+strconv.Quote(raw), nil)
		}
		filter.Stage = st
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := jobs.ParseStatus(raw)
		if !ok {
			return filter, services.Wrap(services.ErrValidation, "server", "list jobs", "unknown status "+strconv.Quote(raw), nil)
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, services.Wrap(services.ErrValidation, "server", "list jobs", "limit must be a non-negative integer", nil)
		}
		filter.Limit = limit
	}
	return filter, nil
}
