package decor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/pagedeco/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Block and section status values carried in data-*-status attributes.
const (
	StatusInitialized = "initialized"
	StatusLoading     = "loading"
	StatusLoaded      = "loaded"
)

// Cell is the content of one block column.
type Cell []*html.Node

// Row is one block row.
type Row []Cell

// BuildBlock creates a block element: div.<name> > div (row) > div (column),
// moving the given nodes into their columns.
func BuildBlock(name string, rows ...Row) *html.Node {
	block := page.Element("div", "class", name)
	for _, row := range rows {
		rowEl := page.Element("div")
		for _, col := range row {
			colEl := page.Element("div")
			for _, n := range col {
				if n != nil {
					page.AppendChild(colEl, n)
				}
			}
			rowEl.AppendChild(colEl)
		}
		block.AppendChild(rowEl)
	}
	return block
}

// DecorateBlock marks block as a block named after its first class.
func DecorateBlock(block *html.Node) {
	name := page.FirstClass(block)
	if name == "" {
		return
	}
	page.AddClass(block, "block")
	page.SetAttr(block, "data-block-name", name)
	page.SetAttr(block, "data-block-status", StatusInitialized)
	if wrapper := block.Parent; wrapper != nil && wrapper.Type == html.ElementNode {
		page.AddClass(wrapper, name+"-wrapper")
	}
	if section := closest(block, page.Class("section")); section != nil {
		page.AddClass(section, name+"-container")
	}
}

// DecorateBlocks decorates every div.section > div > div under main.
func DecorateBlocks(main *html.Node) {
	isDiv := page.Tag("div")
	blocks := page.FindAll(main, page.ChildOf(
		page.ChildOf(page.All(isDiv, page.Class("section")), isDiv),
		isDiv,
	))
	for _, b := range blocks {
		DecorateBlock(b)
	}
}

// LoadBlock loads the stylesheet and decorator of a decorated block. Blocks
// already loading or loaded are skipped. A failing decorator is logged and
// the block still ends up loaded.
func (l *Library) LoadBlock(ctx context.Context, p *page.Page, block *html.Node) error {
	status := page.Attr(block, "data-block-status")
	if status == StatusLoading || status == StatusLoaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := page.Attr(block, "data-block-name")
	page.SetAttr(block, "data-block-status", StatusLoading)
	l.LoadCSS(p, fmt.Sprintf("%s/blocks/%s/%s.css", l.codeBasePath, name, name))
	if dec, ok := l.blocks[name]; ok {
		if err := dec(ctx, p, block); err != nil {
			l.log.Error("failed to load block", "block", name, "error", err)
		}
	}
	page.SetAttr(block, "data-block-status", StatusLoaded)
	return nil
}

// LoadBlocks loads every block under main in document order, updating
// section status as blocks finish.
func (l *Library) LoadBlocks(ctx context.Context, p *page.Page, main *html.Node) error {
	updateSectionsStatus(main)
	blocks := page.FindAll(main, page.All(page.Tag("div"), page.Class("block")))
	for _, b := range blocks {
		if err := l.LoadBlock(ctx, p, b); err != nil {
			return fmt.Errorf("load block %s: %w", page.Attr(b, "data-block-name"), err)
		}
		updateSectionsStatus(main)
	}
	return nil
}

// updateSectionsStatus marks sections loaded in order, stopping at the first
// one that still has a pending block.
func updateSectionsStatus(main *html.Node) {
	pending := func(n *html.Node) bool {
		if !page.HasClass(n, "block") {
			return false
		}
		s := page.Attr(n, "data-block-status")
		return s == StatusInitialized || s == StatusLoading
	}
	for _, section := range page.ChildElements(main) {
		if section.DataAtom != atom.Div || !page.HasClass(section, "section") {
			continue
		}
		if page.Attr(section, "data-section-status") == StatusLoaded {
			continue
		}
		if page.Find(section, pending) != nil {
			page.SetAttr(section, "data-section-status", StatusLoading)
			return
		}
		page.SetAttr(section, "data-section-status", StatusLoaded)
		if page.Attr(section, "style") == hiddenStyle {
			page.RemoveAttr(section, "style")
		}
	}
}

// ReadBlockConfig reads a two-column key/value block. Keys are class-name
// normalized; values are link targets when the value cell holds links,
// otherwise its text.
func ReadBlockConfig(block *html.Node) map[string]string {
	cfg := make(map[string]string)
	for _, row := range page.ChildElements(block) {
		cols := page.ChildElements(row)
		if len(cols) < 2 {
			continue
		}
		key := ToClassName(page.TextContent(cols[0]))
		if key == "" {
			continue
		}
		if links := page.FindAll(cols[1], page.Tag("a")); len(links) > 0 {
			hrefs := make([]string, 0, len(links))
			for _, a := range links {
				hrefs = append(hrefs, page.Attr(a, "href"))
			}
			cfg[key] = strings.Join(hrefs, ", ")
			continue
		}
		cfg[key] = page.TextContent(cols[1])
	}
	return cfg
}

func closest(n *html.Node, m page.Matcher) *html.Node {
	for a := range n.Ancestors() {
		if a.Type == html.ElementNode && m(a) {
			return a
		}
	}
	return nil
}
