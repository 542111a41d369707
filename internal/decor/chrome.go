package decor

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
)

// ErrMissingRegion is returned when the header or footer element is absent.
var ErrMissingRegion = errors.New("decor: missing page region")

// LoadHeader builds, decorates and loads the header block inside header.
func (l *Library) LoadHeader(ctx context.Context, p *page.Page, header *html.Node) error {
	return l.loadRegion(ctx, p, header, "header")
}

// LoadFooter builds, decorates and loads the footer block inside footer.
func (l *Library) LoadFooter(ctx context.Context, p *page.Page, footer *html.Node) error {
	return l.loadRegion(ctx, p, footer, "footer")
}

func (l *Library) loadRegion(ctx context.Context, p *page.Page, region *html.Node, name string) error {
	if region == nil {
		return fmt.Errorf("%w: %s", ErrMissingRegion, name)
	}
	block := BuildBlock(name, Row{Cell{}})
	region.AppendChild(block)
	DecorateBlock(block)
	return l.LoadBlock(ctx, p, block)
}

// fragmentBlock returns a decorator that replaces the block content with the
// fragment at path, wrapped in a wrapTag element.
func (l *Library) fragmentBlock(path, wrapTag string) BlockDecorator {
	return func(ctx context.Context, p *page.Page, block *html.Node) error {
		if l.fragments == nil {
			return nil
		}
		nodes, err := l.fragments.LoadFragment(ctx, path)
		if err != nil {
			return fmt.Errorf("load fragment %s: %w", path, err)
		}
		wrap := page.Element(wrapTag)
		if wrapTag == "nav" {
			page.SetAttr(wrap, "id", "nav")
		}
		for _, n := range nodes {
			page.AppendChild(wrap, n)
		}
		for block.FirstChild != nil {
			block.RemoveChild(block.FirstChild)
		}
		block.AppendChild(wrap)
		return nil
	}
}
