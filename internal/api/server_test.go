package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pagedeco/internal/config"
	"github.com/dgallion1/pagedeco/internal/content"
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tabbedPage = `<html><head><title>Cafe</title></head><body><header></header><main>` +
	`<div><h3>Our Story</h3><p>a</p></div>` +
	`<div><h3>Menu</h3><p>b</p></div>` +
	`<div><h3>Contact Us</h3><p>c</p></div>` +
	`</main><footer></footer></body></html>`

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cafe.html"), []byte(tabbedPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nav.md"), []byte("- [Home](/)\n"), 0o644))
	src, err := content.NewDirSource(dir, log)
	require.NoError(t, err)

	rec := metrics.NewRecorder(nil)
	stats := pipeline.NewStats(time.Hour, nil)
	lib := decor.New("/code", log, decor.WithFragmentLoader(content.Fragments{Source: src}))
	loader := pipeline.NewLoader(pipeline.Settings{
		CodeBasePath: "/code",
		DelayedAfter: 10 * time.Millisecond,
	}, lib, log, pipeline.WithMetrics(rec), pipeline.WithStats(stats))
	m, err := pipeline.NewManager(loader, src, stats, pipeline.ManagerConfig{}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	cfg := config.Config{PagedecoAPIKey: apiKey, MaxUploadBytes: 1 << 20}
	srv := httptest.NewServer(NewServer(m, rec, log, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body io.Reader, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")
	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
}

func TestPage_DecoratesAndOpensSession(t *testing.T) {
	srv := newTestServer(t, "")
	resp := do(t, http.MethodGet, srv.URL+"/pages/cafe?fragment=menu&wait=delayed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Session-ID"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readBody(t, resp)
	assert.Contains(t, body, `<nav class="tab-nav" role="tablist">`)
	assert.Contains(t, body, `<a href="#menu" class="active">Menu</a>`)
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, `/code/styles/lazy-styles.css`)
	assert.Contains(t, body, `<script type="module" src="/code/scripts/delayed.js"></script>`)
	assert.Contains(t, body, `<nav id="nav">`, "header navigation loaded from /nav")
}

func TestPage_NotFound(t *testing.T) {
	srv := newTestServer(t, "")
	resp := do(t, http.MethodGet, srv.URL+"/pages/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "page not found")
}

func TestSession_NavigateRenderClose(t *testing.T) {
	srv := newTestServer(t, "")
	resp := do(t, http.MethodGet, srv.URL+"/pages/cafe", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get("X-Session-ID")
	base := srv.URL + "/api/sessions/" + id

	resp = do(t, http.MethodPost, base+"/navigate?fragment=%23contact-us", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var nav navigateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nav))
	assert.Equal(t, "#contact-us", nav.Route)
	assert.Equal(t, "contact-us", nav.Active)
	assert.Equal(t, []string{"contact-us"}, nav.Visible)

	resp = do(t, http.MethodPost, base+"/navigate?fragment=nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `<a href="#contact-us" class="active">Contact Us</a>`)

	resp = do(t, http.MethodGet, base+"/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap pipeline.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "/cafe", snap.Path)
	assert.Equal(t, []string{"our-story", "menu", "contact-us"}, snap.Tabs)

	resp = do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodPost, base+"/navigate?fragment=menu", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecorate_Upload(t *testing.T) {
	srv := newTestServer(t, "")
	md := "![hero](/hero.jpg)\n\n# Welcome\n\nIntro text\n"
	resp := do(t, http.MethodPost, srv.URL+"/api/decorate?filename=welcome.md", strings.NewReader(md))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `class="hero block"`)
	assert.Contains(t, body, `data-block-name="hero"`)
	assert.Empty(t, resp.Header.Get("X-Session-ID"))

	resp = do(t, http.MethodPost, srv.URL+"/api/decorate?filename=report.pdf", strings.NewReader("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret")

	resp := do(t, http.MethodGet, srv.URL+"/api/stats/phases", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/api/stats/phases", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/pages/cafe", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "pages are public")

	resp = do(t, http.MethodGet, srv.URL+"/api/stats/phases", nil, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Sessions int                               `json:"sessions"`
		Phases   map[string]pipeline.StatsSnapshot `json:"phases"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.Phases["eager"].Count)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	do(t, http.MethodGet, srv.URL+"/pages/cafe", nil)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `pagedeco_page_loads_total{outcome="ok"} 1`)
	assert.Contains(t, body, `pagedeco_phase_duration_seconds`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
	assert.Equal(t, "a_b.md", sanitizeFilename("a..b.md"))
}
