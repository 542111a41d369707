package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/router"
	"github.com/dgallion1/pagedeco/internal/rum"
)

// PageLoad is the lifetime of one loaded page: its document, the fragment
// router the tabs follow, the RUM sampler and the phase the load is in.
type PageLoad struct {
	Page    *page.Page
	Router  *router.HashRouter
	Sampler *rum.Sampler

	mu        sync.Mutex
	phase     Phase
	running   bool
	failed    error
	autoBlock autoblock.Result
	delayed   *Deferred
	durations map[Phase]time.Duration
}

// NewPageLoad prepares p for loading. fragment is the URL fragment the page
// was opened with, with or without its '#'.
func NewPageLoad(p *page.Page, fragment string, sampler *rum.Sampler) *PageLoad {
	return &PageLoad{
		Page:      p,
		Router:    router.New(fragment),
		Sampler:   sampler,
		durations: make(map[Phase]time.Duration),
	}
}

// enter moves the load into next. The previous phase must have completed
// without error.
func (pl *PageLoad) enter(next Phase) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	switch {
	case pl.failed != nil:
		return fmt.Errorf("%w: %s after failed %s: %v", ErrPhaseOrder, next, pl.phase, pl.failed)
	case pl.running:
		return fmt.Errorf("%w: %s while %s is running", ErrPhaseOrder, next, pl.phase)
	case pl.phase != next-1:
		return fmt.Errorf("%w: %s after %s", ErrPhaseOrder, next, pl.phase)
	}
	pl.phase = next
	pl.running = true
	return nil
}

// settle marks the work of phase as completed.
func (pl *PageLoad) settle(phase Phase, d time.Duration, err error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.running = false
	pl.durations[phase] = d
	if err != nil {
		pl.failed = err
	}
}

// finish ends a load whose delayed task ran or was canceled.
func (pl *PageLoad) finish() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.phase == PhaseDelayed {
		pl.phase = PhaseDone
		pl.running = false
	}
}

// Phase returns the phase the load is in and whether that phase's work is
// still running.
func (pl *PageLoad) Phase() (Phase, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.phase, pl.running
}

// Err returns the error that stopped the load, if any.
func (pl *PageLoad) Err() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.failed
}

// Durations returns how long each completed phase took.
func (pl *PageLoad) Durations() map[Phase]time.Duration {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	out := make(map[Phase]time.Duration, len(pl.durations))
	for k, v := range pl.durations {
		out[k] = v
	}
	return out
}

// AutoBlocks returns what auto blocking produced in the eager phase.
func (pl *PageLoad) AutoBlocks() autoblock.Result {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.autoBlock
}

// Tabs returns the tab navigation, or nil if none was built.
func (pl *PageLoad) Tabs() *autoblock.Tabs {
	return pl.AutoBlocks().Tabs
}

// Delayed returns the scheduled delayed task, or nil before the delayed
// phase.
func (pl *PageLoad) Delayed() *Deferred {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.delayed
}

// Navigate changes the route of the page. Tabs following the router are
// switched under the page lock.
func (pl *PageLoad) Navigate(fragment string) bool {
	var changed bool
	_ = pl.Page.Exclusive(func() error {
		changed = pl.Router.Navigate(fragment)
		return nil
	})
	return changed
}

// Close cancels the delayed task if it has not run and stops the tabs from
// following route changes.
func (pl *PageLoad) Close() {
	if d := pl.Delayed(); d != nil {
		d.Cancel()
	}
	if tabs := pl.Tabs(); tabs != nil {
		tabs.Close()
	}
	pl.finish()
}
