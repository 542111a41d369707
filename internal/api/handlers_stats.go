package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handlePhaseStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"sessions": s.manager.SessionCount(),
		"phases":   s.manager.PhaseStats(),
	})
}
