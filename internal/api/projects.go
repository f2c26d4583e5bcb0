package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

type createProjectRequest struct {
	Topic string `json:"topic" validate:"required,max=2000"`
	Mode  string `json:"mode" validate:"omitempty,oneof=standard quick"`
}

type createProjectResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type projectSummary struct {
	ProjectID    string      `json:"project_id"`
	Topic        string      `json:"topic"`
	Mode         core.Mode   `json:"mode"`
	Status       core.Status `json:"status"`
	Phase        string      `json:"phase"`
	WordCount    int         `json:"word_count"`
	QualityScore float64     `json:"quality_score"`
	Running      bool        `json:"running"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type statusResponse struct {
	ProjectID    string     `json:"project_id"`
	Status       string     `json:"status"`
	Message      string     `json:"message"`
	Topic        string     `json:"topic"`
	Mode         core.Mode  `json:"mode"`
	WordCount    int        `json:"word_count"`
	QualityScore float64    `json:"quality_score"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type contentResponse struct {
	ProjectID        string     `json:"project_id"`
	Status           string     `json:"status"`
	Topic            string     `json:"topic"`
	Mode             core.Mode  `json:"mode"`
	Content          string     `json:"content"`
	WordCount        int        `json:"word_count"`
	QualityScore     float64    `json:"quality_score"`
	QualityThreshold float64    `json:"quality_threshold"`
	MeetsThreshold   bool       `json:"meets_threshold"`
	ResearchNotes    []string   `json:"research_notes"`
	Sources          []string   `json:"sources"`
	ReviewComments   []string   `json:"review_comments"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type pendingContentResponse struct {
	ProjectID    string      `json:"project_id"`
	Status       string      `json:"status"`
	Message      string      `json:"message"`
	Topic        string      `json:"topic"`
	CurrentStage core.Status `json:"current_stage"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := s.decodeRequest(r, &req, false); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	mode := core.Mode(req.Mode)
	if mode == "" {
		mode = core.ModeStandard
	}

	st, err := s.runner.Submit(r.Context(), req.Topic, mode)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, createProjectResponse{
		ProjectID: st.ProjectID,
		Status:    "started",
		Message:   "Workflow started successfully in " + string(mode) + " mode",
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ProjectFilter{
		Status: core.Status(q.Get("status")),
		Mode:   core.Mode(q.Get("mode")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondDomainError(w, r, core.ErrValidation(core.CodeInvalidRequest, "limit must be a non-negative integer").
				WithDetail("limit", raw))
			return
		}
		filter.Limit = limit
	}

	states, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.summaries(states))
}

func (s *Server) handleActiveProjects(w http.ResponseWriter, r *http.Request) {
	states, err := s.store.ActiveProjects(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.summaries(states))
}

func (s *Server) summaries(states []*core.ContentState) []projectSummary {
	out := make([]projectSummary, 0, len(states))
	for _, st := range states {
		phase, _ := core.DerivePhase(st)
		out = append(out, projectSummary{
			ProjectID:    st.ProjectID,
			Topic:        st.Topic,
			Mode:         st.Mode,
			Status:       st.Status,
			Phase:        string(phase),
			WordCount:    st.WordCount,
			QualityScore: st.QualityScore,
			Running:      s.runner.IsRunning(st.ProjectID),
			CreatedAt:    st.CreatedAt,
			UpdatedAt:    st.UpdatedAt,
		})
	}
	return out
}

// loadProject fetches the record named in the URL, writing a 404 when it
// does not exist.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*core.ContentState, bool) {
	id := chi.URLParam(r, "projectID")
	st, err := s.store.GetState(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, err)
		return nil, false
	}
	if st == nil {
		s.respondDomainError(w, r, core.ErrNotFound("project", id))
		return nil, false
	}
	return st, true
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	phase, msg := core.DerivePhase(st)
	respondJSON(w, http.StatusOK, statusResponse{
		ProjectID:    st.ProjectID,
		Status:       string(phase),
		Message:      msg,
		Topic:        st.Topic,
		Mode:         st.Mode,
		WordCount:    st.WordCount,
		QualityScore: st.QualityScore,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
		CompletedAt:  st.CompletedAt,
		Error:        st.Error,
	})
}

func (s *Server) handleProjectContent(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	if st.FinalContent == "" {
		respondJSON(w, http.StatusOK, pendingContentResponse{
			ProjectID:    st.ProjectID,
			Status:       string(core.PhaseInProgress),
			Message:      core.ContentProgressMessage(st),
			Topic:        st.Topic,
			CurrentStage: st.Status,
		})
		return
	}
	respondJSON(w, http.StatusOK, contentResponse{
		ProjectID:        st.ProjectID,
		Status:           string(core.PhaseComplete),
		Topic:            st.Topic,
		Mode:             st.Mode,
		Content:          st.FinalContent,
		WordCount:        st.WordCount,
		QualityScore:     st.QualityScore,
		QualityThreshold: s.qualityThreshold,
		MeetsThreshold:   st.QualityScore >= s.qualityThreshold,
		ResearchNotes:    nonNil(st.ResearchNotes),
		Sources:          nonNil(st.Sources),
		ReviewComments:   nonNil(st.ReviewComments),
		CreatedAt:        st.CreatedAt,
		CompletedAt:      st.CompletedAt,
	})
}

func (s *Server) handleProjectState(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if s.runner.IsRunning(id) {
		s.respondDomainError(w, r, errProjectRunning(id))
		return
	}
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.logger.WithProject(id).Info("project deleted")
	w.WriteHeader(http.StatusNoContent)
}

type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,max=10000"`
	Action   string `json:"action" validate:"omitempty,oneof=approve reject revise comment"`
	Approved bool   `json:"approved"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decodeRequest(r, &req, false); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	id := chi.URLParam(r, "projectID")
	fid, err := s.store.SaveHumanFeedback(r.Context(), id, req.Feedback, core.FeedbackAction(req.Action), req.Approved)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"feedback_id": fid})
}

func errProjectRunning(id string) error {
	return core.ErrConflict(core.CodeProjectRunning, "project is running").WithDetail("project_id", id)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
