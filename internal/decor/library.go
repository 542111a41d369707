// Package decor implements the block decoration library pages are built on:
// block synthesis, button/icon/section/block decoration, and the loaders the
// page phases call (blocks, header, stylesheets, largest contentful paint).
package decor

import (
	"context"
	"log/slog"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
)

// BlockDecorator is the code behind a block. It runs once, when the block is
// loaded.
type BlockDecorator func(ctx context.Context, p *page.Page, block *html.Node) error

// FragmentLoader fetches the main content of another page, such as the site
// navigation.
type FragmentLoader interface {
	LoadFragment(ctx context.Context, path string) ([]*html.Node, error)
}

// Library holds the settings shared by decoration calls.
type Library struct {
	codeBasePath string
	blocks       map[string]BlockDecorator
	fragments    FragmentLoader
	log          *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithBlock registers the decorator for a block name, replacing any default.
func WithBlock(name string, d BlockDecorator) Option {
	return func(l *Library) { l.blocks[name] = d }
}

// WithFragmentLoader sets where header and footer content is loaded from.
func WithFragmentLoader(f FragmentLoader) Option {
	return func(l *Library) { l.fragments = f }
}

// New creates a Library resolving assets against codeBasePath.
func New(codeBasePath string, log *slog.Logger, opts ...Option) *Library {
	if log == nil {
		log = slog.Default()
	}
	l := &Library{
		codeBasePath: codeBasePath,
		blocks:       make(map[string]BlockDecorator),
		log:          log,
	}
	l.blocks["header"] = l.fragmentBlock("/nav", "nav")
	l.blocks["footer"] = l.fragmentBlock("/footer", "div")
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CodeBasePath returns the base URL assets are resolved against.
func (l *Library) CodeBasePath() string {
	return l.codeBasePath
}
