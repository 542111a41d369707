package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/router"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("pipeline: session not found")

// Source loads authored pages by path.
type Source interface {
	Load(ctx context.Context, path string) (*page.Page, error)
}

// ManagerConfig controls session lifetime.
type ManagerConfig struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

// Manager opens page loads from a Source and keeps them as sessions.
type Manager struct {
	loader    *Loader
	source    Source
	sessions  *SessionStore
	stats     *Stats
	scheduler gocron.Scheduler
	log       *slog.Logger
	cfg       ManagerConfig

	stopOnce sync.Once
	stopErr  error
}

// NewManager creates a Manager. Sessions expire on the loader's clock.
func NewManager(loader *Loader, source Source, stats *Stats, cfg ManagerConfig, log *slog.Logger) (*Manager, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	s, err := gocron.NewScheduler(gocron.WithClock(loader.clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	m := &Manager{
		loader:    loader,
		source:    source,
		sessions:  NewSessionStore(cfg.SessionTTL, loader.clock),
		stats:     stats,
		scheduler: s,
		log:       log,
		cfg:       cfg,
	}
	_, err = s.NewJob(
		gocron.DurationJob(cfg.CleanupInterval),
		gocron.NewTask(m.cleanup),
		gocron.WithName("session-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule session cleanup: %w", err)
	}
	return m, nil
}

// Start launches the session cleanup job.
func (m *Manager) Start() {
	m.scheduler.Start()
}

// Stop shuts the cleanup job down and closes every session. Later calls
// return the first result.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.stopErr = m.scheduler.Shutdown()
		m.sessions.CloseAll()
	})
	return m.stopErr
}

func (m *Manager) cleanup() {
	if n := m.sessions.Cleanup(); n > 0 {
		m.log.Info("expired sessions closed", "count", n)
	}
}

// Open loads the page at path, runs the page load with the given fragment
// and keeps it as a new session.
func (m *Manager) Open(ctx context.Context, path, fragment string) (*Session, error) {
	p, err := m.source.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	pl, err := m.Decorate(ctx, p, fragment)
	if err != nil {
		return nil, err
	}

	sess := NewSession(uuid.NewString(), path, pl, m.loader.clock.Now())
	m.sessions.Put(sess)
	m.log.Info("session opened", "session_id", sess.ID, "path", path, "route", pl.Router.CurrentRoute())
	return sess, nil
}

// Decorate runs a page load on p without keeping a session. The caller owns
// the returned load and must Close it.
func (m *Manager) Decorate(ctx context.Context, p *page.Page, fragment string) (*PageLoad, error) {
	pl := m.loader.NewPageLoad(p, fragment)
	if err := m.loader.LoadPage(ctx, pl); err != nil {
		pl.Close()
		return nil, err
	}
	return pl, nil
}

// Session returns a session by id.
func (m *Manager) Session(id string) (*Session, error) {
	sess := m.sessions.Get(id)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Navigate changes the route of a session. A fragment that names no tab of
// a tabbed page returns autoblock.ErrUnknownSection and leaves the route as
// it was.
func (m *Manager) Navigate(id, fragment string) (SessionSnapshot, error) {
	sess, err := m.Session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	pl := sess.Load()
	route := router.Normalize(fragment)
	if tabs := pl.Tabs(); tabs != nil && route != "" && !slices.Contains(tabs.IDs(), strings.TrimPrefix(route, "#")) {
		return SessionSnapshot{}, fmt.Errorf("%w: %q", autoblock.ErrUnknownSection, route)
	}
	pl.Navigate(route)
	return sess.Snapshot(), nil
}

// Render writes the current document of a session.
func (m *Manager) Render(id string, w io.Writer) error {
	sess, err := m.Session(id)
	if err != nil {
		return err
	}
	return sess.Load().Page.Render(w)
}

// Close ends a session.
func (m *Manager) Close(id string) error {
	if !m.sessions.Delete(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	return m.sessions.Len()
}

// PhaseStats returns latency snapshots per phase.
func (m *Manager) PhaseStats() map[string]StatsSnapshot {
	if m.stats == nil {
		return map[string]StatsSnapshot{}
	}
	return m.stats.SnapshotAll()
}
