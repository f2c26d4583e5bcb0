package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

type saveCheckpointRequest struct {
	Name string `json:"name" validate:"max=200"`
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	infos, err := s.checkpoints.List(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if infos == nil {
		infos = []core.CheckpointInfo{}
	}
	respondJSON(w, http.StatusOK, infos)
}

func (s *Server) handleSaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req saveCheckpointRequest
	if err := s.decodeRequest(r, &req, true); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	cid, err := s.checkpoints.Save(r.Context(), chi.URLParam(r, "projectID"), req.Name)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"checkpoint_id": cid})
}

func (s *Server) handleRestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if s.runner.IsRunning(id) {
		s.respondDomainError(w, r, errProjectRunning(id))
		return
	}
	st, err := s.checkpoints.Restore(r.Context(), id, chi.URLParam(r, "checkpointID"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
