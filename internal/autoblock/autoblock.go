// Package autoblock synthesizes blocks the author did not write explicitly:
// the hero block and the tab navigation.
package autoblock

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/pagedeco/internal/metrics"
	"github.com/dgallion1/pagedeco/internal/router"
	"golang.org/x/net/html"
)

// Result describes what BuildAutoBlocks produced.
type Result struct {
	Hero bool
	Tabs *Tabs
	// Err is the suppressed failure, if any.
	Err error
}

// Builder runs the synthesizers against a page.
type Builder struct {
	router  router.Router
	metrics *metrics.Recorder
	log     *slog.Logger
}

// NewBuilder creates a Builder. Tabs follow r; a nil r gets a router with
// no route.
func NewBuilder(r router.Router, rec *metrics.Recorder, log *slog.Logger) *Builder {
	if r == nil {
		r = router.New("")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{router: r, metrics: rec, log: log}
}

// BuildAutoBlocks builds the hero block, then the tab navigation. Failures,
// panics included, are logged and suppressed so that decoration can go on;
// whatever succeeded before the failure stays in place.
func (b *Builder) BuildAutoBlocks(main *html.Node) (res Result) {
	stage := "hero"
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("autoblock: %s panicked: %v", stage, rec)
			b.fail(stage, res.Err)
		}
	}()

	res.Hero = BuildHeroBlock(main)

	stage = "tabs"
	tabs, err := BuildTabNavigation(main, b.router, b.log)
	res.Tabs = tabs
	if err != nil {
		res.Err = err
		b.fail(stage, err)
	}
	return res
}

func (b *Builder) fail(stage string, err error) {
	b.log.Error("auto blocking failed", "synthesizer", stage, "error", err)
	b.metrics.AutoBlockFailed(stage)
}
