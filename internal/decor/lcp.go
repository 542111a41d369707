package decor

import (
	"context"
	"slices"

	"github.com/dgallion1/pagedeco/internal/page"
)

// WaitForLCP prepares the largest contentful paint: the first block is loaded
// when its name is in lcpBlocks, the body is made visible, and the first main
// image is fetched eagerly.
func (l *Library) WaitForLCP(ctx context.Context, p *page.Page, lcpBlocks []string) error {
	block := page.Find(p.Document(), page.Class("block"))
	if block != nil && slices.Contains(lcpBlocks, page.Attr(block, "data-block-name")) {
		if err := l.LoadBlock(ctx, p, block); err != nil {
			return err
		}
	}

	page.AddClass(p.Body(), "appear")

	if img := page.Find(p.Main(), page.Tag("img")); img != nil {
		page.SetAttr(img, "loading", "eager")
	}
	return ctx.Err()
}
