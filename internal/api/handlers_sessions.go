package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type navigateResponse struct {
	Route   string   `json:"route"`
	Visible []string `json:"visible"`
	Active  string   `json:"active"`
}

func (s *Server) handleRenderSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeHTML(w, sess.Load().Page)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	fragment := r.URL.Query().Get("fragment")

	snap, err := s.manager.Navigate(id, fragment)
	switch {
	case errors.Is(err, pipeline.ErrSessionNotFound):
		jsonError(w, "session not found", http.StatusNotFound)
		return
	case errors.Is(err, autoblock.ErrUnknownSection):
		jsonError(w, "no section for fragment "+fragment, http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := navigateResponse{Route: snap.Route, Active: snap.Active, Visible: []string{}}
	if sess, err := s.manager.Session(id); err == nil {
		if tabs := sess.Load().Tabs(); tabs != nil {
			_ = sess.Load().Page.Exclusive(func() error {
				for _, sec := range tabs.Visible() {
					resp.Visible = append(resp.Visible, sec.ID)
				}
				return nil
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.manager.Close(id); err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	sess, err := s.manager.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}
