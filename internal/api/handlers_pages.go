package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pagedeco/internal/content"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/parser"
	"github.com/go-chi/chi/v5"
)

// handlePage opens a session on the page at the request path and serves
// the decorated document.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	q := r.URL.Query()

	sess, err := s.manager.Open(r.Context(), path, q.Get("fragment"))
	if err != nil {
		s.pageError(w, path, err)
		return
	}

	if q.Get("wait") == "delayed" {
		if err := sess.Load().Delayed().Wait(r.Context()); err != nil {
			s.log.Warn("delayed phase did not complete", "session_id", sess.ID, "error", err)
		}
	}

	w.Header().Set("X-Session-ID", sess.ID)
	writeHTML(w, sess.Load().Page)
}

// handleDecorate decorates an uploaded document without keeping a session.
func (s *Server) handleDecorate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filename := sanitizeFilename(q.Get("filename"))
	if filepath.Ext(filename) == "" {
		filename += ".html"
	}
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	pg, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "parse failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	pl, err := s.manager.Decorate(r.Context(), pg, q.Get("fragment"))
	if err != nil {
		s.pageError(w, filename, err)
		return
	}
	defer pl.Close()
	writeHTML(w, pl.Page)
}

func (s *Server) pageError(w http.ResponseWriter, path string, err error) {
	if errors.Is(err, content.ErrNotFound) {
		jsonError(w, "page not found: "+path, http.StatusNotFound)
		return
	}
	s.log.Error("page load failed", "path", path, "error", err)
	jsonError(w, "page load failed: "+err.Error(), http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, p *page.Page) {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
