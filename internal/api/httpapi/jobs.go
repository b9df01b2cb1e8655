package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

type jobView struct {
	ID           string          `json:"id"`
	Type         domain.JobType  `json:"type"`
	Status       domain.JobStatus `json:"status"`
	Progress     int             `json:"progress"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"maxAttempts"`
	CreatedAt    time.Time       `json:"createdAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

func toJobView(j domain.Job) jobView {
	v := jobView{
		ID: j.ID, Type: j.Type, Status: j.Status, Progress: j.Progress,
		ErrorMessage: j.ErrorMessage, Attempts: j.Attempts, MaxAttempts: j.MaxAttempts,
		CreatedAt: j.CreatedAt, CompletedAt: j.CompletedAt,
	}
	if j.Output != nil {
		v.Output = json.RawMessage(*j.Output)
	}
	return v
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	job, err := s.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.TenantID != p.TenantID {
		writeError(w, r, apperrors.NotFound("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	jobs, err := s.store.ListJobs(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toJobView(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}
