package pipeline

import (
	"strings"
	"time"
)

// DefaultDelayedAfter is how long after the lazy phase the delayed module
// runs.
const DefaultDelayedAfter = 3 * time.Second

// Settings are the page-load options that used to come from the page
// environment.
type Settings struct {
	// CodeBasePath is the base URL assets are resolved against.
	CodeBasePath string
	// RUMGeneration labels sampled checkpoints.
	RUMGeneration string
	// RUMWeight samples one page view in RUMWeight.
	RUMWeight int
	// LCPBlocks lists the block names that may hold the largest contentful
	// paint. Empty by default.
	LCPBlocks []string
	// Lang is set on <html> in the eager phase.
	Lang string
	// DelayedAfter defaults to DefaultDelayedAfter.
	DelayedAfter time.Duration
}

func (s Settings) withDefaults() Settings {
	s.CodeBasePath = strings.TrimSuffix(s.CodeBasePath, "/")
	if s.Lang == "" {
		s.Lang = "en"
	}
	if s.DelayedAfter <= 0 {
		s.DelayedAfter = DefaultDelayedAfter
	}
	if s.RUMWeight <= 0 {
		s.RUMWeight = 100
	}
	return s
}

func (s Settings) lazyStyles() string { return s.CodeBasePath + "/styles/lazy-styles.css" }
func (s Settings) favicon() string    { return s.CodeBasePath + "/styles/favicon.svg" }
func (s Settings) delayedScript() string {
	return s.CodeBasePath + "/scripts/delayed.js"
}
