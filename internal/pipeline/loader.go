// Package pipeline runs the page-load phases: eager decoration up to the
// largest contentful paint, lazy loading of the rest of the page, and the
// delayed module.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/pagedeco/internal/autoblock"
	"github.com/dgallion1/pagedeco/internal/decor"
	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/page"
	"github.com/dgallion1/pagedeco/internal/router"
	"github.com/dgallion1/pagedeco/internal/rum"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html"
)

// ErrNoMain is returned by the lazy phase when the page has no <main>.
var ErrNoMain = errors.New("pipeline: page has no main element")

// DelayedModule is the work of the delayed phase. It runs with the page
// lock held.
type DelayedModule func(p *page.Page) error

// Loader runs page loads with one set of Settings.
type Loader struct {
	settings Settings
	lib      *decor.Library
	clock    clockwork.Clock
	metrics  *metrics.Recorder
	stats    *Stats
	delayed  DelayedModule
	log      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithClock sets the clock the delayed phase is scheduled on.
func WithClock(c clockwork.Clock) LoaderOption {
	return func(l *Loader) { l.clock = c }
}

// WithMetrics records phase durations and auto-block failures.
func WithMetrics(rec *metrics.Recorder) LoaderOption {
	return func(l *Loader) { l.metrics = rec }
}

// WithStats collects phase latencies into s.
func WithStats(s *Stats) LoaderOption {
	return func(l *Loader) { l.stats = s }
}

// WithDelayedModule replaces the default delayed module.
func WithDelayedModule(m DelayedModule) LoaderOption {
	return func(l *Loader) { l.delayed = m }
}

// NewLoader creates a Loader. A nil lib gets a library with the default
// blocks only.
func NewLoader(s Settings, lib *decor.Library, log *slog.Logger, opts ...LoaderOption) *Loader {
	s = s.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	if lib == nil {
		lib = decor.New(s.CodeBasePath, log)
	}
	l := &Loader{
		settings: s,
		lib:      lib,
		clock:    clockwork.NewRealClock(),
		log:      log,
	}
	l.delayed = ScriptModule(s.delayedScript())
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Settings returns the settings with defaults applied.
func (l *Loader) Settings() Settings {
	return l.settings
}

// NewPageLoad prepares p for loading with a fresh RUM sampler.
func (l *Loader) NewPageLoad(p *page.Page, fragment string) *PageLoad {
	sampler := rum.NewSampler(l.settings.RUMGeneration, l.settings.RUMWeight, l.metrics, l.log)
	return NewPageLoad(p, fragment, sampler)
}

// LoadPage runs the eager and lazy phases in order and schedules the delayed
// phase. The first failing phase stops the load and its error is returned.
func (l *Loader) LoadPage(ctx context.Context, pl *PageLoad) error {
	_ = pl.Page.Exclusive(func() error {
		page.SetAttr(pl.Page.Body(), "class", "js-enabled")
		return nil
	})

	if err := l.LoadEager(ctx, pl); err != nil {
		l.metrics.PageLoad("eager_failed")
		return err
	}
	if err := l.LoadLazy(ctx, pl); err != nil {
		l.metrics.PageLoad("lazy_failed")
		return err
	}
	if err := l.LoadDelayed(pl); err != nil {
		return err
	}
	l.metrics.PageLoad("ok")
	return nil
}

// LoadEager sets the language, applies template and theme, decorates main,
// makes the body visible and waits for the largest contentful paint. A page
// without main only gets language, template and theme.
func (l *Loader) LoadEager(ctx context.Context, pl *PageLoad) error {
	return l.runPhase(pl, PhaseEager, func() error {
		p := pl.Page
		p.SetLang(l.settings.Lang)
		decor.DecorateTemplateAndTheme(p)

		main := p.Main()
		if main == nil {
			return nil
		}
		res := l.DecorateMain(main, pl.Router)
		pl.mu.Lock()
		pl.autoBlock = res
		pl.mu.Unlock()

		page.AddClass(p.Body(), "appear")
		return l.lib.WaitForLCP(ctx, p, l.settings.LCPBlocks)
	})
}

// LoadLazy loads the remaining blocks, scrolls to the element named by the
// route, loads the header, the lazy styles and the favicon, and reports the
// page to the RUM sampler.
func (l *Loader) LoadLazy(ctx context.Context, pl *PageLoad) error {
	return l.runPhase(pl, PhaseLazy, func() error {
		p := pl.Page
		main := p.Main()
		if main == nil {
			return ErrNoMain
		}
		if err := l.lib.LoadBlocks(ctx, p, main); err != nil {
			return fmt.Errorf("load blocks: %w", err)
		}

		if hash := pl.Router.CurrentRoute(); hash != "" {
			if el := p.ElementByID(strings.TrimPrefix(hash, "#")); el != nil {
				p.ScrollIntoView(el)
			}
		}

		if err := l.lib.LoadHeader(ctx, p, p.Header()); err != nil {
			return fmt.Errorf("load header: %w", err)
		}

		l.lib.LoadCSS(p, l.settings.lazyStyles())
		decor.AddFavIcon(p, l.settings.favicon())

		if s := pl.Sampler; s != nil {
			s.Sample("lazy", nil)
			s.Observe(page.FindAll(main, page.All(page.Tag("div"), page.HasAttr("data-block-name"))))
			s.Observe(page.FindAll(main, page.All(page.Tag("img"), func(n *html.Node) bool {
				return n.Parent != nil && n.Parent.Data == "picture"
			})))
		}
		return nil
	})
}

// LoadDelayed schedules the delayed module to run DelayedAfter from now on
// the loader's clock. It does not wait for the module; closing the page load
// first cancels it.
func (l *Loader) LoadDelayed(pl *PageLoad) error {
	if err := pl.enter(PhaseDelayed); err != nil {
		return err
	}
	module := l.delayed
	task := Schedule(l.clock, l.settings.DelayedAfter, func() error {
		defer pl.finish()
		start := l.clock.Now()
		err := pl.Page.Exclusive(func() error { return module(pl.Page) })
		l.record(PhaseDelayed, l.clock.Since(start))
		if err != nil {
			l.log.Warn("delayed module failed", "error", err)
		}
		return err
	})

	pl.mu.Lock()
	pl.delayed = task
	pl.mu.Unlock()
	pl.settle(PhaseDelayed, 0, nil)
	return nil
}

// DecorateMain decorates buttons and icons, builds the auto blocks, then
// decorates sections and blocks. Auto-block failures are logged and
// reported in the result; they never stop decoration.
func (l *Loader) DecorateMain(main *html.Node, r router.Router) autoblock.Result {
	decor.DecorateButtons(main)
	l.lib.DecorateIcons(main)
	res := autoblock.NewBuilder(r, l.metrics, l.log).BuildAutoBlocks(main)
	decor.DecorateSections(main)
	decor.DecorateBlocks(main)
	return res
}

func (l *Loader) runPhase(pl *PageLoad, phase Phase, fn func() error) error {
	if err := pl.enter(phase); err != nil {
		return err
	}
	start := l.clock.Now()
	err := pl.Page.Exclusive(fn)
	d := l.clock.Since(start)
	pl.settle(phase, d, err)
	l.record(phase, d)
	if err != nil {
		l.log.Error("page load phase failed", "phase", phase.String(), "error", err)
		return fmt.Errorf("%s phase: %w", phase, err)
	}
	return nil
}

func (l *Loader) record(phase Phase, d time.Duration) {
	l.metrics.ObservePhase(phase.String(), d)
	if l.stats != nil {
		l.stats.Record(phase.String(), d)
	}
}
