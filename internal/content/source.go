// Package content loads authored pages from a local directory or an
// upstream origin.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
)

// ErrNotFound is returned when no page exists at a path.
var ErrNotFound = errors.New("content: page not found")

// Source loads authored pages by URL path.
type Source interface {
	Load(ctx context.Context, path string) (*page.Page, error)
}

// Fragments serves the main content of pages from a Source as fragments,
// for the header navigation and the footer.
type Fragments struct {
	Source Source
}

// LoadFragment returns the detached children of the fragment page's main.
func (f Fragments) LoadFragment(ctx context.Context, path string) ([]*html.Node, error) {
	p, err := f.Source.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load fragment %s: %w", path, err)
	}
	main := p.Main()
	if main == nil {
		return nil, nil
	}
	var nodes []*html.Node
	for c := main.FirstChild; c != nil; {
		next := c.NextSibling
		main.RemoveChild(c)
		nodes = append(nodes, c)
		c = next
	}
	return nodes, nil
}
