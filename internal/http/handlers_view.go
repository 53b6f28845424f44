package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"contas/internal/core"
	"contas/internal/log"
)

// streamKeepAlive is the interval between SSE comment lines on an idle stream.
const streamKeepAlive = 15 * time.Second

type summaryResponse struct {
	Month    string        `json:"month"`
	Category core.Category `json:"category,omitempty"`
	Version  uint64        `json:"version"`
	Count    int           `json:"count"`
	Summary  core.Summary  `json:"summary"`
}

type growthResponse struct {
	Month    string                `json:"month"`
	Category core.Category         `json:"category,omitempty"`
	Version  uint64                `json:"version"`
	Growth   []core.CategoryGrowth `json:"growth"`
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Category{"categories": core.Categories()})
}

// loadView parses the month and category query and derives the view.
func (s *Server) loadView(r *http.Request) (core.View, error) {
	m, err := parseMonth(r)
	if err != nil {
		return core.View{}, err
	}
	cat, err := parseCategory(r)
	if err != nil {
		return core.View{}, err
	}
	return s.views.View(r.Context(), m, cat)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, log.OpView, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, log.OpView, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Month:    v.Month,
		Category: v.Category,
		Version:  v.Version,
		Count:    v.Count,
		Summary:  v.Summary,
	})
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, log.OpView, err)
		return
	}
	writeJSON(w, http.StatusOK, growthResponse{
		Month:    v.Month,
		Category: v.Category,
		Version:  v.Version,
		Growth:   v.Growth,
	})
}

// handleStream pushes a "view" event for the current snapshot and for every
// snapshot published after it, until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := parseMonth(r)
	if err != nil {
		writeError(w, r, log.OpStream, err)
		return
	}
	cat, err := parseCategory(r)
	if err != nil {
		writeError(w, r, log.OpStream, err)
		return
	}

	rc := http.NewResponseController(w)
	views, err := s.views.Stream(ctx, m, cat)
	if err != nil {
		writeError(w, r, log.OpStream, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Streaming not supported by response writer", log.FieldError, err.Error())
		return
	}

	logger := log.FromContext(ctx)
	logger.DebugContext(ctx, "Stream opened", log.FieldMonth, m.String(), log.FieldCategory, cat)

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case v, ok := <-views:
			if !ok {
				logger.DebugContext(ctx, "Stream closed", log.FieldMonth, m.String())
				return
			}
			if err := writeEvent(w, "view", v.Version, v); err != nil {
				logger.DebugContext(ctx, "Stream write failed", log.FieldError, err.Error())
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, id uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
