package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"contas/internal/core"
	"contas/internal/log"
)

type entriesResponse struct {
	Month    string        `json:"month"`
	Category core.Category `json:"category,omitempty"`
	Version  uint64        `json:"version"`
	Entries  []core.Entry  `json:"entries"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	m, err := parseMonth(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	cat, err := parseCategory(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	v, err := s.views.View(r.Context(), m, cat)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	entries := v.Entries
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entriesResponse{
		Month:    v.Month,
		Category: v.Category,
		Version:  v.Version,
		Entries:  entries,
	})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	d, err := req.toDraft()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	res, err := s.entries.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	logger := log.FromContext(r.Context())
	if res.Partial() {
		logger.WarnContext(r.Context(), "Entry created with warnings",
			log.FieldOperation, log.OpCreate,
			"created", len(res.IDs),
			"warnings", len(res.Warnings))
	} else {
		logger.InfoContext(r.Context(), "Entry created",
			log.FieldOperation, log.OpCreate,
			log.FieldKind, d.Kind,
			log.FieldCategory, d.Category,
			"created", len(res.IDs))
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.entries.Update(r.Context(), id, p); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	e, err := s.entries.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogEntryChanged(r.Context(), log.OpUpdate, e)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.entries.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntryID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.TogglePaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log.OpToggle, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogEntryChanged(r.Context(), log.OpToggle, e)
	writeJSON(w, http.StatusOK, e)
}
